package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/archive"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/humaniq-ai/humaniq-core/internal/testutil"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db    *gorm.DB
	cfg   *config.Config
	store archive.BlobStore

	companyRepo    repository.CompanyRepository
	userRepo       repository.UserRepository
	testRepo       repository.TestRepository
	questionRepo   repository.QuestionRepository
	sessionRepo    repository.TestSessionRepository
	answerRepo     repository.AnswerRepository
	resultRepo     repository.TestResultRepository
	analysisRepo   repository.AIAnalysisRepository
	indexRepo      repository.ArchiveIndexRepository
	invitationRepo repository.InvitationRepository

	admin       AdminService
	sessions    SessionService
	answers     AnswerService
	submissions TestSubmissionService
	archives    ArchiveService
	retrieval   RetrievalService
	invitations InvitationService
}

func newFixture(t *testing.T, configure ...func(*config.Config)) *fixture {
	t.Helper()
	cfg := &config.Config{}
	for _, c := range configure {
		c(cfg)
	}
	store, err := archive.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	db := testutil.NewDB(t)
	f := &fixture{
		db:             db,
		cfg:            cfg,
		store:          store,
		companyRepo:    repository.NewCompanyRepository(db),
		userRepo:       repository.NewUserRepository(db),
		testRepo:       repository.NewTestRepository(db),
		questionRepo:   repository.NewQuestionRepository(db),
		sessionRepo:    repository.NewTestSessionRepository(db),
		answerRepo:     repository.NewAnswerRepository(db),
		resultRepo:     repository.NewTestResultRepository(db),
		analysisRepo:   repository.NewAIAnalysisRepository(db),
		indexRepo:      repository.NewArchiveIndexRepository(db),
		invitationRepo: repository.NewInvitationRepository(db),
	}
	f.admin = NewAdminService(f.companyRepo, f.userRepo, f.testRepo)
	f.sessions = NewSessionService(cfg, f.userRepo, f.testRepo, f.questionRepo, f.sessionRepo, f.answerRepo)
	f.archives = NewArchiveService(store, f.indexRepo)
	f.submissions = NewTestSubmissionService(cfg, f.testRepo, f.sessionRepo, f.answerRepo, f.resultRepo,
		f.analysisRepo, NewScoreConverterService(), f.archives, db)
	f.answers = NewAnswerService(f.sessionRepo, f.questionRepo, f.answerRepo, f.submissions)
	f.retrieval = NewRetrievalService(f.indexRepo)
	f.invitations = NewInvitationService(cfg, f.invitationRepo, f.companyRepo, f.userRepo,
		f.testRepo, f.questionRepo, f.sessionRepo, db)
	return f
}

func (f *fixture) createCompany(t *testing.T) string {
	t.Helper()
	c, err := f.admin.CreateCompany(context.Background(), dto.CompanyCreateDTO{Name: "Acme"})
	require.NoError(t, err)
	return c.ID
}

func (f *fixture) createUser(t *testing.T) string {
	t.Helper()
	u, err := f.admin.CreateUser(context.Background(), dto.UserCreateDTO{
		Email: fmt.Sprintf("%s@example.com", uuid.NewString()[:8]),
		Name:  "Test User",
		Role:  model.RoleEmployee,
	})
	require.NoError(t, err)
	return u.ID
}

func (f *fixture) createTest(t *testing.T, req dto.TestCreateDTO) *dto.TestResponseDTO {
	t.Helper()
	if req.Name == "" {
		req.Name = "Big Five"
	}
	if req.Type == "" {
		req.Type = model.TestTypePersonality
	}
	test, err := f.admin.CreateTest(context.Background(), req)
	require.NoError(t, err)
	return test
}

// twoDimensionTest has three questions on "A" and two on "B", each 0-100.
func (f *fixture) twoDimensionTest(t *testing.T) *dto.TestResponseDTO {
	return f.createTest(t, dto.TestCreateDTO{
		Dimensions: []dto.DimensionCreateDTO{{Name: "A"}, {Name: "B"}},
		Questions: []dto.QuestionCreateDTO{
			numericQuestion(1, "A"),
			numericQuestion(2, "A"),
			numericQuestion(3, "A"),
			numericQuestion(4, "B"),
			numericQuestion(5, "B"),
		},
	})
}

func numericQuestion(order int, dimension string) dto.QuestionCreateDTO {
	q := dto.QuestionCreateDTO{
		Text:        fmt.Sprintf("Question %d", order),
		Kind:        model.QuestionKindNumeric,
		OrderInTest: order,
		MinValue:    0,
		MaxValue:    100,
	}
	if dimension != "" {
		q.Dimension = &dimension
	}
	return q
}

func (f *fixture) startSession(t *testing.T, userID, testID string) *dto.SessionResponseDTO {
	t.Helper()
	s, err := f.sessions.CreateSession(context.Background(), userID, testID)
	require.NoError(t, err)
	return s
}

func requireAppErr(t *testing.T, err error, kind apperr.Kind, code string) {
	t.Helper()
	require.Error(t, err)
	e, ok := apperr.As(err)
	require.True(t, ok, "expected an apperr, got %v", err)
	require.Equal(t, kind, e.Kind)
	require.Equal(t, code, e.Code)
}

func ptr(v float64) *float64 { return &v }
