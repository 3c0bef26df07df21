package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/internal/archive"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/middleware"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/humaniq-ai/humaniq-core/internal/service"
	"github.com/humaniq-ai/humaniq-core/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router *gin.Engine
	admin  service.AdminService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	cfg := &config.Config{}
	store, err := archive.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	companyRepo := repository.NewCompanyRepository(db)
	userRepo := repository.NewUserRepository(db)
	testRepo := repository.NewTestRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	sessionRepo := repository.NewTestSessionRepository(db)
	answerRepo := repository.NewAnswerRepository(db)
	resultRepo := repository.NewTestResultRepository(db)
	analysisRepo := repository.NewAIAnalysisRepository(db)

	sessions := service.NewSessionService(cfg, userRepo, testRepo, questionRepo, sessionRepo, answerRepo)
	submissions := service.NewTestSubmissionService(cfg, testRepo, sessionRepo, answerRepo, resultRepo, analysisRepo,
		service.NewScoreConverterService(), service.NewArchiveService(store, repository.NewArchiveIndexRepository(db)), db)
	answers := service.NewAnswerService(sessionRepo, questionRepo, answerRepo, submissions)
	c := NewUserTestController(service.NewUserTestService(testRepo), sessions, answers, submissions)

	r := gin.New()
	r.Use(middleware.Identity())
	g := r.Group("", middleware.RequireRole())
	g.GET("/tests", c.GetAllTests)
	g.GET("/tests/:test_id", c.GetTestDetails)
	g.POST("/tests/:test_id/sessions", c.StartSession)
	g.GET("/sessions/:session_id", c.GetSession)
	g.PUT("/sessions/:session_id/answers/:question_id", c.SubmitAnswer)
	g.POST("/sessions/:session_id/finalize", c.FinalizeSession)
	g.POST("/sessions/:session_id/abandon", c.AbandonSession)
	g.GET("/results/:result_id", c.GetResult)
	g.GET("/results/:result_id/analyses", c.GetResultAnalyses)

	return &testEnv{router: r, admin: service.NewAdminService(companyRepo, userRepo, testRepo)}
}

func (e *testEnv) createUser(t *testing.T, email string) string {
	t.Helper()
	u, err := e.admin.CreateUser(context.Background(), dto.UserCreateDTO{Email: email, Name: "Someone", Role: model.RoleEmployee})
	require.NoError(t, err)
	return u.ID
}

func (e *testEnv) createTest(t *testing.T) *dto.TestResponseDTO {
	t.Helper()
	questions := make([]dto.QuestionCreateDTO, 0, 2)
	for _, order := range []int{1, 2} {
		questions = append(questions, dto.QuestionCreateDTO{
			Text:        "How often?",
			Kind:        model.QuestionKindNumeric,
			OrderInTest: order,
			MinValue:    0,
			MaxValue:    100,
		})
	}
	test, err := e.admin.CreateTest(context.Background(), dto.TestCreateDTO{
		Name:      "Stress scan",
		Type:      model.TestTypeOther,
		Questions: questions,
	})
	require.NoError(t, err)
	return test
}

// do sends the request as userID/role; an empty userID is anonymous.
func (e *testEnv) do(method, target, body, userID, role string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(middleware.HeaderUserID, userID)
		req.Header.Set(middleware.HeaderUserRole, role)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestRoutesRequireIdentity(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/tests", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthenticated", decode[dto.ErrorResponse](t, w).Code)
}

func TestListAndDetailTests(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner@example.com")
	test := e.createTest(t)

	w := e.do(http.MethodGet, "/tests", "", owner, model.RoleEmployee)
	require.Equal(t, http.StatusOK, w.Code)
	tests := decode[[]dto.TestSummaryDTO](t, w)
	require.Len(t, tests, 1)
	assert.Equal(t, 2, tests[0].QuestionCount)

	w = e.do(http.MethodGet, "/tests?active_only=maybe", "", owner, model.RoleEmployee)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodGet, "/tests/"+test.ID, "", owner, model.RoleEmployee)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodGet, "/tests/missing", "", owner, model.RoleEmployee)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner@example.com")
	test := e.createTest(t)

	w := e.do(http.MethodPost, "/tests/missing/sessions", "", owner, model.RoleEmployee)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, "/tests/"+test.ID+"/sessions", "", owner, model.RoleEmployee)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	session := decode[dto.SessionResponseDTO](t, w)
	assert.Equal(t, owner, session.UserID)
	assert.Equal(t, 2, session.TotalQuestions)

	answerURL := "/sessions/" + session.ID + "/answers/" + test.Questions[0].ID
	w = e.do(http.MethodPut, answerURL, `{}`, owner, model.RoleEmployee)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPut, answerURL, `{"value":"40"}`, owner, model.RoleEmployee)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	answer := decode[dto.AnswerResponseDTO](t, w)
	assert.Equal(t, model.SessionInProgress, answer.Session.Status)
	assert.Nil(t, answer.Result)

	w = e.do(http.MethodPut, "/sessions/"+session.ID+"/answers/missing", `{"value":"40"}`, owner, model.RoleEmployee)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, "/sessions/"+session.ID+"/finalize", "", owner, model.RoleEmployee)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[dto.ResultResponseDTO](t, w)
	assert.Equal(t, model.ResultIncomplete, result.Status)
	require.NotNil(t, result.OverallScore)
	assert.Equal(t, 40.0, *result.OverallScore)

	w = e.do(http.MethodPut, answerURL, `{"value":"60"}`, owner, model.RoleEmployee)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = e.do(http.MethodPost, "/sessions/"+session.ID+"/abandon", "", owner, model.RoleEmployee)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodGet, "/results/"+result.ID, "", owner, model.RoleEmployee)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodGet, "/results/"+result.ID+"/analyses", "", owner, model.RoleEmployee)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]dto.AnalysisResponseDTO](t, w))
	w = e.do(http.MethodGet, "/results/missing", "", owner, model.RoleEmployee)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionAndResultRoutesCheckOwnership(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner@example.com")
	other := e.createUser(t, "other@example.com")
	test := e.createTest(t)

	w := e.do(http.MethodPost, "/tests/"+test.ID+"/sessions", "", owner, model.RoleEmployee)
	require.Equal(t, http.StatusCreated, w.Code)
	session := decode[dto.SessionResponseDTO](t, w)
	base := "/sessions/" + session.ID

	denied := []struct {
		method, target, body string
	}{
		{http.MethodGet, base, ""},
		{http.MethodPut, base + "/answers/" + test.Questions[0].ID, `{"value":"10"}`},
		{http.MethodPost, base + "/finalize", ""},
		{http.MethodPost, base + "/abandon", ""},
	}
	for _, d := range denied {
		w := e.do(d.method, d.target, d.body, other, model.RoleEmployee)
		assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", d.method, d.target)
		assert.Equal(t, "not_owner", decode[dto.ErrorResponse](t, w).Code)
	}

	// Nothing was changed by the rejected calls.
	w = e.do(http.MethodGet, base, "", owner, model.RoleEmployee)
	require.Equal(t, http.StatusOK, w.Code)
	current := decode[dto.SessionResponseDTO](t, w)
	assert.Equal(t, model.SessionStarted, current.Status)
	assert.Zero(t, current.AnsweredCount)

	w = e.do(http.MethodGet, base, "", other, model.RoleManager)
	assert.Equal(t, http.StatusOK, w.Code)
	w = e.do(http.MethodGet, "/sessions/missing", "", other, model.RoleEmployee)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(http.MethodPost, base+"/finalize", "", owner, model.RoleEmployee)
	require.Equal(t, http.StatusOK, w.Code)
	result := decode[dto.ResultResponseDTO](t, w)

	for _, target := range []string{"/results/" + result.ID, "/results/" + result.ID + "/analyses"} {
		w = e.do(http.MethodGet, target, "", other, model.RoleEmployee)
		assert.Equal(t, http.StatusForbidden, w.Code, target)
		w = e.do(http.MethodGet, target, "", other, model.RoleAdmin)
		assert.Equal(t, http.StatusOK, w.Code, target)
	}
}
