package invitation

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/humaniq-ai/humaniq-core/internal/controller/httperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/middleware"
	"github.com/humaniq-ai/humaniq-core/internal/service"
)

type InvitationController struct {
	invitationService service.InvitationService
}

func NewInvitationController(is service.InvitationService) *InvitationController {
	return &InvitationController{invitationService: is}
}

// CreateInvitation godoc
// @Summary Invite someone to a company
// @Tags Invitations
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN or MANAGER)"
// @Param invitation body dto.InvitationCreateDTO true "Invitation"
// @Success 201 {object} dto.InvitationResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Company or test not found"
// @Failure 500 {object} dto.ErrorResponse
// @Router /invitations [post]
func (c *InvitationController) CreateInvitation(ctx *gin.Context) {
	var req dto.InvitationCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(ctx, "CreateInvitation", err)
		return
	}
	resp, err := c.invitationService.CreateInvitation(ctx.Request.Context(), req)
	if err != nil {
		httperr.Respond(ctx, "CreateInvitation", err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// MarkSent godoc
// @Summary Record that an invitation was delivered
// @Tags Invitations
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN or MANAGER)"
// @Param token path string true "Invitation token"
// @Success 200 {object} dto.InvitationResponseDTO
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already accepted"
// @Router /invitations/{token}/sent [post]
func (c *InvitationController) MarkSent(ctx *gin.Context) {
	resp, err := c.invitationService.MarkSent(ctx.Request.Context(), ctx.Param("token"))
	if err != nil {
		httperr.Respond(ctx, "MarkSent", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetInvitation godoc
// @Summary Look up an invitation by token
// @Tags Invitations
// @Produce json
// @Param token path string true "Invitation token"
// @Success 200 {object} dto.InvitationResponseDTO
// @Failure 404 {object} dto.ErrorResponse
// @Router /invitations/{token} [get]
func (c *InvitationController) GetInvitation(ctx *gin.Context) {
	resp, err := c.invitationService.GetInvitation(ctx.Request.Context(), ctx.Param("token"))
	if err != nil {
		httperr.Respond(ctx, "GetInvitation", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// AcceptInvitation godoc
// @Summary Accept an invitation as the calling user
// @Tags Invitations
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param token path string true "Invitation token"
// @Success 200 {object} dto.InvitationAcceptResponseDTO
// @Failure 403 {object} dto.ErrorResponse "Expired"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already used"
// @Router /invitations/{token}/accept [post]
func (c *InvitationController) AcceptInvitation(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	resp, err := c.invitationService.AcceptInvitation(ctx.Request.Context(), ctx.Param("token"), userID)
	if err != nil {
		httperr.Respond(ctx, "AcceptInvitation", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
