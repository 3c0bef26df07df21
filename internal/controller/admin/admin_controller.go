package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/humaniq-ai/humaniq-core/internal/controller/httperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/service"
)

type AdminController struct {
	adminService service.AdminService
}

func NewAdminController(adminService service.AdminService) *AdminController {
	return &AdminController{adminService: adminService}
}

// CreateCompany godoc
// @Summary (Admin) Create a company
// @Tags Admin
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN)"
// @Param company body dto.CompanyCreateDTO true "Company"
// @Success 201 {object} dto.CompanyResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/companies [post]
func (c *AdminController) CreateCompany(ctx *gin.Context) {
	var req dto.CompanyCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(ctx, "Admin CreateCompany", err)
		return
	}
	resp, err := c.adminService.CreateCompany(ctx.Request.Context(), req)
	if err != nil {
		httperr.Respond(ctx, "Admin CreateCompany", err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// CreateUser godoc
// @Summary (Admin) Create a user
// @Tags Admin
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN)"
// @Param user body dto.UserCreateDTO true "User"
// @Success 201 {object} dto.UserResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Email already registered"
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/users [post]
func (c *AdminController) CreateUser(ctx *gin.Context) {
	var req dto.UserCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(ctx, "Admin CreateUser", err)
		return
	}
	resp, err := c.adminService.CreateUser(ctx.Request.Context(), req)
	if err != nil {
		httperr.Respond(ctx, "Admin CreateUser", err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// CreateTest godoc
// @Summary (Admin) Create a new complete test
// @Description Admin creates a test with its rubric dimensions and questions in one request.
// @Tags Admin
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN)"
// @Param test_data body dto.TestCreateDTO true "Test with dimensions and questions"
// @Success 201 {object} dto.TestResponseDTO "Test created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid rubric or missing fields"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /admin/tests [post]
func (c *AdminController) CreateTest(ctx *gin.Context) {
	var req dto.TestCreateDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(ctx, "Admin CreateTest", err)
		return
	}
	resp, err := c.adminService.CreateTest(ctx.Request.Context(), req)
	if err != nil {
		httperr.Respond(ctx, "Admin CreateTest", err)
		return
	}
	ctx.JSON(http.StatusCreated, resp)
}

// SetTestActive godoc
// @Summary (Admin) Activate or deactivate a test
// @Tags Admin
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param X-User-Role header string true "Caller role (ADMIN)"
// @Param test_id path string true "Test ID"
// @Param body body dto.TestActiveDTO true "Active flag"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Failure 500 {object} dto.ErrorResponse
// @Router /admin/tests/{test_id}/active [patch]
func (c *AdminController) SetTestActive(ctx *gin.Context) {
	var req dto.TestActiveDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(ctx, "Admin SetTestActive", err)
		return
	}
	resp, err := c.adminService.SetTestActive(ctx.Request.Context(), ctx.Param("test_id"), *req.Active)
	if err != nil {
		httperr.Respond(ctx, "Admin SetTestActive", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}
