package user

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/humaniq-ai/humaniq-core/internal/controller/httperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/middleware"
	"github.com/humaniq-ai/humaniq-core/internal/service"
	"github.com/rs/zerolog/log"
)

type UserTestController struct {
	userTestService       service.UserTestService
	sessionService        service.SessionService
	answerService         service.AnswerService
	testSubmissionService service.TestSubmissionService
}

func NewUserTestController(
	uts service.UserTestService,
	ss service.SessionService,
	as service.AnswerService,
	tss service.TestSubmissionService,
) *UserTestController {
	return &UserTestController{
		userTestService:       uts,
		sessionService:        ss,
		answerService:         as,
		testSubmissionService: tss,
	}
}

func caller(ctx *gin.Context) service.Caller {
	userID, _ := middleware.UserID(ctx)
	return service.Caller{UserID: userID, Role: middleware.Role(ctx)}
}

// sessionAccess answers the request itself and reports false when the
// caller may not touch the session in the path.
func (c *UserTestController) sessionAccess(ctx *gin.Context, op string) bool {
	if err := c.sessionService.AuthorizeSession(ctx.Request.Context(), caller(ctx), ctx.Param("session_id")); err != nil {
		httperr.Respond(ctx, op, err)
		return false
	}
	return true
}

func (c *UserTestController) resultAccess(ctx *gin.Context, op string) bool {
	if err := c.testSubmissionService.AuthorizeResult(ctx.Request.Context(), caller(ctx), ctx.Param("result_id")); err != nil {
		httperr.Respond(ctx, op, err)
		return false
	}
	return true
}

// GetAllTests godoc
// @Summary (User) List all available tests
// @Description Get a list of tests. Inactive tests are included only when active_only=false.
// @Tags User - Tests & Sessions
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param active_only query bool false "Only active tests (default true)"
// @Success 200 {array} dto.TestSummaryDTO
// @Failure 400 {object} dto.ErrorResponse "Invalid active_only value"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /tests [get]
func (c *UserTestController) GetAllTests(ctx *gin.Context) {
	activeOnly := true
	if raw := ctx.Query("active_only"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid active_only value", Code: "invalid_query"})
			return
		}
		activeOnly = v
	}
	tests, err := c.userTestService.GetAllTests(ctx.Request.Context(), activeOnly)
	if err != nil {
		httperr.Respond(ctx, "User GetAllTests", err)
		return
	}
	ctx.JSON(http.StatusOK, tests)
}

// GetTestDetails godoc
// @Summary (User) Get details of a specific test
// @Description Get full details of a test, including its dimensions and questions.
// @Tags User - Tests & Sessions
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param test_id path string true "Test ID"
// @Success 200 {object} dto.TestResponseDTO
// @Failure 404 {object} dto.ErrorResponse "Test not found"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /tests/{test_id} [get]
func (c *UserTestController) GetTestDetails(ctx *gin.Context) {
	testDetails, err := c.userTestService.GetTestDetails(ctx.Request.Context(), ctx.Param("test_id"))
	if err != nil {
		httperr.Respond(ctx, "User GetTestDetails", err)
		return
	}
	ctx.JSON(http.StatusOK, testDetails)
}

// StartSession godoc
// @Summary (User) Start a session for a test
// @Description Opens a session for the calling user. totalQuestions is fixed at this point.
// @Tags User - Tests & Sessions
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param test_id path string true "Test ID"
// @Success 201 {object} dto.SessionResponseDTO
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Test inactive"
// @Failure 404 {object} dto.ErrorResponse "User or test not found"
// @Failure 500 {object} dto.ErrorResponse
// @Router /tests/{test_id}/sessions [post]
func (c *UserTestController) StartSession(ctx *gin.Context) {
	userID, _ := middleware.UserID(ctx)
	session, err := c.sessionService.CreateSession(ctx.Request.Context(), userID, ctx.Param("test_id"))
	if err != nil {
		httperr.Respond(ctx, "User StartSession", err)
		return
	}
	log.Info().Str("sessionID", session.ID).Str("userID", userID).Msg("User StartSession: Session ready")
	ctx.JSON(http.StatusCreated, session)
}

// GetSession godoc
// @Summary (User) Get a session
// @Tags User - Tests & Sessions
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionResponseDTO
// @Failure 403 {object} dto.ErrorResponse "Session belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 500 {object} dto.ErrorResponse
// @Router /sessions/{session_id} [get]
func (c *UserTestController) GetSession(ctx *gin.Context) {
	if !c.sessionAccess(ctx, "User GetSession") {
		return
	}
	session, err := c.sessionService.GetSession(ctx.Request.Context(), ctx.Param("session_id"))
	if err != nil {
		httperr.Respond(ctx, "User GetSession", err)
		return
	}
	ctx.JSON(http.StatusOK, session)
}

// SubmitAnswer godoc
// @Summary (User) Record an answer
// @Description Stores the answer for one question; a repeated answer replaces the previous one. The answer that completes the session also finalizes it.
// @Tags User - Tests & Sessions
// @Accept json
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param session_id path string true "Session ID"
// @Param question_id path string true "Question ID"
// @Param answer body dto.AnswerSubmitDTO true "Answer"
// @Success 200 {object} dto.AnswerResponseDTO
// @Failure 400 {object} dto.ErrorResponse "Missing value or question outside the session's test"
// @Failure 403 {object} dto.ErrorResponse "Session belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Session or question not found"
// @Failure 409 {object} dto.ErrorResponse "Session closed"
// @Failure 500 {object} dto.ErrorResponse
// @Router /sessions/{session_id}/answers/{question_id} [put]
func (c *UserTestController) SubmitAnswer(ctx *gin.Context) {
	if !c.sessionAccess(ctx, "User SubmitAnswer") {
		return
	}
	var req dto.AnswerSubmitDTO
	if err := ctx.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(ctx, "User SubmitAnswer", err)
		return
	}
	resp, err := c.answerService.RecordAnswer(ctx.Request.Context(), ctx.Param("session_id"), ctx.Param("question_id"), req)
	if err != nil {
		httperr.Respond(ctx, "User SubmitAnswer", err)
		return
	}
	ctx.JSON(http.StatusOK, resp)
}

// FinalizeSession godoc
// @Summary (User) Finalize a session
// @Description Scores the session. Finalizing again updates the same result.
// @Tags User - Tests & Sessions
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.ResultResponseDTO
// @Failure 403 {object} dto.ErrorResponse "Session belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 409 {object} dto.ErrorResponse "Session abandoned"
// @Failure 500 {object} dto.ErrorResponse
// @Router /sessions/{session_id}/finalize [post]
func (c *UserTestController) FinalizeSession(ctx *gin.Context) {
	if !c.sessionAccess(ctx, "User FinalizeSession") {
		return
	}
	result, err := c.testSubmissionService.FinalizeSession(ctx.Request.Context(), ctx.Param("session_id"))
	if err != nil {
		httperr.Respond(ctx, "User FinalizeSession", err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// AbandonSession godoc
// @Summary (User) Abandon a session
// @Tags User - Tests & Sessions
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param session_id path string true "Session ID"
// @Success 200 {object} dto.SessionResponseDTO
// @Failure 403 {object} dto.ErrorResponse "Session belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Session not found"
// @Failure 409 {object} dto.ErrorResponse "Session already completed"
// @Failure 500 {object} dto.ErrorResponse
// @Router /sessions/{session_id}/abandon [post]
func (c *UserTestController) AbandonSession(ctx *gin.Context) {
	if !c.sessionAccess(ctx, "User AbandonSession") {
		return
	}
	session, err := c.sessionService.AbandonSession(ctx.Request.Context(), ctx.Param("session_id"))
	if err != nil {
		httperr.Respond(ctx, "User AbandonSession", err)
		return
	}
	ctx.JSON(http.StatusOK, session)
}

// GetResult godoc
// @Summary (User) Get a result
// @Tags User - Results
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param result_id path string true "Result ID"
// @Success 200 {object} dto.ResultResponseDTO
// @Failure 403 {object} dto.ErrorResponse "Result belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Result not found"
// @Failure 500 {object} dto.ErrorResponse
// @Router /results/{result_id} [get]
func (c *UserTestController) GetResult(ctx *gin.Context) {
	if !c.resultAccess(ctx, "User GetResult") {
		return
	}
	result, err := c.testSubmissionService.GetResult(ctx.Request.Context(), ctx.Param("result_id"))
	if err != nil {
		httperr.Respond(ctx, "User GetResult", err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

// GetResultAnalyses godoc
// @Summary (User) List AI analyses of a result
// @Tags User - Results
// @Produce json
// @Param X-User-ID header string true "Caller id"
// @Param result_id path string true "Result ID"
// @Success 200 {array} dto.AnalysisResponseDTO
// @Failure 403 {object} dto.ErrorResponse "Result belongs to another user"
// @Failure 404 {object} dto.ErrorResponse "Result not found"
// @Failure 500 {object} dto.ErrorResponse
// @Router /results/{result_id}/analyses [get]
func (c *UserTestController) GetResultAnalyses(ctx *gin.Context) {
	if !c.resultAccess(ctx, "User GetResultAnalyses") {
		return
	}
	analyses, err := c.testSubmissionService.GetAnalyses(ctx.Request.Context(), ctx.Param("result_id"))
	if err != nil {
		httperr.Respond(ctx, "User GetResultAnalyses", err)
		return
	}
	ctx.JSON(http.StatusOK, analyses)
}
