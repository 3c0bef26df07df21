package service

import (
	"context"
	"errors"
	"maps"
	"time"

	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/archive"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/humaniq-ai/humaniq-core/internal/scoring"
	"github.com/jinzhu/copier"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TestSubmissionService scores sessions and serves their results.
type TestSubmissionService interface {
	// FinalizeSession scores the session and stores its result. Calling it
	// again updates the same result in place.
	FinalizeSession(ctx context.Context, sessionID string) (*dto.ResultResponseDTO, error)
	GetResult(ctx context.Context, resultID string) (*dto.ResultResponseDTO, error)
	GetAnalyses(ctx context.Context, resultID string) ([]dto.AnalysisResponseDTO, error)
	// AuthorizeResult fails with Forbidden unless caller owns the result or
	// is privileged. A missing result is NotFound.
	AuthorizeResult(ctx context.Context, caller Caller, resultID string) error
}

type testSubmissionService struct {
	testRepo          repository.TestRepository
	sessionRepo       repository.TestSessionRepository
	answerRepo        repository.AnswerRepository
	resultRepo        repository.TestResultRepository
	analysisRepo      repository.AIAnalysisRepository
	scoreConverter    ScoreConverterService
	archiver          ArchiveService
	archiveOnFinalize bool
	db                *gorm.DB // Used for transactions within service methods
	now               func() time.Time
}

func NewTestSubmissionService(
	cfg *config.Config,
	testRepo repository.TestRepository,
	sessionRepo repository.TestSessionRepository,
	answerRepo repository.AnswerRepository,
	resultRepo repository.TestResultRepository,
	analysisRepo repository.AIAnalysisRepository,
	scoreConverter ScoreConverterService,
	archiver ArchiveService,
	db *gorm.DB,
) TestSubmissionService {
	return &testSubmissionService{
		testRepo:          testRepo,
		sessionRepo:       sessionRepo,
		answerRepo:        answerRepo,
		resultRepo:        resultRepo,
		analysisRepo:      analysisRepo,
		scoreConverter:    scoreConverter,
		archiver:          archiver,
		archiveOnFinalize: cfg.Archive.OnFinalize,
		db:                db,
		now:               utcNow,
	}
}

func (s *testSubmissionService) FinalizeSession(ctx context.Context, sessionID string) (*dto.ResultResponseDTO, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "session_not_found", "session")
	}
	if session.Status == model.SessionAbandoned {
		return nil, apperr.Conflict("session_abandoned", "session %s was abandoned", sessionID)
	}

	test, err := s.testRepo.FindByIDWithQuestions(ctx, session.TestID)
	if err != nil {
		log.Error().Err(err).Str("sessionID", sessionID).Str("testID", session.TestID).Msg("FinalizeSession: Test not found")
		return nil, lookupError(err, "test_not_found", "test")
	}

	// Answers are read once; later writes are picked up by finalizing again.
	answers, err := s.answerRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal("failed to load answers", err)
	}

	rubric := s.scoreConverter.BuildRubric(test)
	outcome := scoring.Score(rubric, s.scoreConverter.ConvertAnswers(test.Questions, answers))

	answered := answeredQuestions(test.Questions, answers)
	status := model.ResultCompleted
	if answered < len(test.Questions) {
		status = model.ResultIncomplete
	}

	var result *model.TestResult
	// A concurrent first finalize may win the unique session_id insert; the
	// retry then takes the update path.
	for attempt := 0; attempt < 2; attempt++ {
		result, err = s.persist(ctx, session, test, outcome, status, answered)
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			break
		}
	}
	if _, ok := apperr.As(err); ok {
		return nil, err
	}
	if err != nil {
		log.Error().Err(err).Str("sessionID", sessionID).Msg("FinalizeSession: Failed to persist result")
		return nil, apperr.Internal("failed to store result", err)
	}

	logEvent := log.Info().
		Str("sessionID", sessionID).
		Str("resultID", result.ID).
		Str("status", result.Status).
		Str("analysisStatus", result.AnalysisStatus)
	if result.OverallScore != nil {
		logEvent = logEvent.Float64("overallScore", *result.OverallScore)
	}
	logEvent.Msg("FinalizeSession: Result stored")

	if s.archiveOnFinalize {
		// Best effort; the result row stays authoritative.
		if _, err := s.archiver.Archive(ctx, resultDocument(result), ArchiveOptions{
			AutoIndex:         true,
			CreateDirectories: true,
			Overwrite:         true,
		}); err != nil {
			log.Error().Err(err).Str("resultID", result.ID).Msg("FinalizeSession: Archiving result failed")
		}
	}

	return resultResponse(result), nil
}

// persist writes the result and completes the session in one transaction.
func (s *testSubmissionService) persist(
	ctx context.Context,
	session *model.TestSession,
	test *model.Test,
	outcome scoring.Outcome,
	status string,
	answered int,
) (*model.TestResult, error) {
	var result *model.TestResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		results := s.resultRepo.WithTx(tx)
		sessions := s.sessionRepo.WithTx(tx)

		now := s.now()
		if _, err := sessions.TransitionStatus(ctx, session.ID,
			[]string{model.SessionStarted, model.SessionInProgress}, model.SessionCompleted, &now); err != nil {
			return err
		}
		completed, err := sessions.FindByID(ctx, session.ID)
		if err != nil {
			return err
		}
		if completed.Status != model.SessionCompleted {
			return apperr.Conflict("session_abandoned", "session %s was abandoned", session.ID)
		}
		completedAt := now
		if completed.CompletedAt != nil {
			completedAt = *completed.CompletedAt
		}

		metadata := datatypes.JSONMap{
			"answeredQuestions": answered,
			"totalQuestions":    session.TotalQuestions,
		}
		if len(outcome.Skipped) > 0 {
			metadata["skippedDimensions"] = outcome.Skipped
		}

		existing, err := results.FindBySessionID(ctx, session.ID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			result = &model.TestResult{
				SessionID:       session.ID,
				UserID:          session.UserID,
				TestID:          session.TestID,
				TestType:        test.Type,
				OverallScore:    outcome.OverallScore,
				DimensionScores: datatypes.NewJSONType(model.DimensionScores(outcome.DimensionScores)),
				Status:          status,
				CompletedAt:     completedAt,
				Metadata:        metadata,
				AnalysisStatus:  model.AnalysisReady,
			}
			return results.Create(ctx, result)
		case err != nil:
			return err
		}

		// Unchanged scores keep the analysis already done for them.
		if !sameScores(existing, outcome) {
			existing.AnalysisStatus = model.AnalysisReady
			existing.AnalyzedAt = nil
			existing.AnalysisLeaseUntil = nil
		}
		existing.OverallScore = outcome.OverallScore
		existing.DimensionScores = datatypes.NewJSONType(model.DimensionScores(outcome.DimensionScores))
		existing.Status = status
		existing.TestType = test.Type
		existing.Metadata = metadata
		result = existing
		return results.Save(ctx, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func sameScores(r *model.TestResult, outcome scoring.Outcome) bool {
	switch {
	case r.OverallScore == nil && outcome.OverallScore == nil:
	case r.OverallScore == nil || outcome.OverallScore == nil:
		return false
	case *r.OverallScore != *outcome.OverallScore:
		return false
	}
	return maps.Equal(map[string]float64(r.DimensionScores.Data()), outcome.DimensionScores)
}

func answeredQuestions(questions []model.Question, answers []model.Answer) int {
	ids := make(map[string]bool, len(questions))
	for _, q := range questions {
		ids[q.ID] = true
	}
	n := 0
	for _, a := range answers {
		if ids[a.QuestionID] {
			n++
		}
	}
	return n
}

func (s *testSubmissionService) GetResult(ctx context.Context, resultID string) (*dto.ResultResponseDTO, error) {
	result, err := s.resultRepo.FindByID(ctx, resultID)
	if err != nil {
		return nil, lookupError(err, "result_not_found", "result")
	}
	return resultResponse(result), nil
}

func (s *testSubmissionService) AuthorizeResult(ctx context.Context, caller Caller, resultID string) error {
	result, err := s.resultRepo.FindByID(ctx, resultID)
	if err != nil {
		return lookupError(err, "result_not_found", "result")
	}
	if err := authorizeOwner(caller, result.UserID, "result", resultID); err != nil {
		log.Warn().Str("resultID", resultID).Str("callerID", caller.UserID).Msg("AuthorizeResult: Access denied")
		return err
	}
	return nil
}

func (s *testSubmissionService) GetAnalyses(ctx context.Context, resultID string) ([]dto.AnalysisResponseDTO, error) {
	if _, err := s.resultRepo.FindByID(ctx, resultID); err != nil {
		return nil, lookupError(err, "result_not_found", "result")
	}
	analyses, err := s.analysisRepo.FindByResultID(ctx, resultID)
	if err != nil {
		return nil, apperr.Internal("failed to load analyses", err)
	}
	resp := make([]dto.AnalysisResponseDTO, 0, len(analyses))
	if err := copier.Copy(&resp, &analyses); err != nil {
		return nil, apperr.Internal("failed to prepare analyses", err)
	}
	return resp, nil
}

// resultMetadata exposes the analysis pipeline columns under the metadata
// keys clients read.
func resultMetadata(r *model.TestResult) map[string]any {
	md := make(map[string]any, len(r.Metadata)+2)
	maps.Copy(md, r.Metadata)
	md["status"] = r.AnalysisStatus
	if r.AnalyzedAt != nil {
		md["analyzedAt"] = r.AnalyzedAt.UTC()
	}
	return md
}

func resultResponse(r *model.TestResult) *dto.ResultResponseDTO {
	scores := map[string]float64(r.DimensionScores.Data())
	if scores == nil {
		scores = map[string]float64{}
	}
	return &dto.ResultResponseDTO{
		ID:              r.ID,
		SessionID:       r.SessionID,
		UserID:          r.UserID,
		TestID:          r.TestID,
		TestType:        r.TestType,
		OverallScore:    r.OverallScore,
		DimensionScores: scores,
		Status:          r.Status,
		CompletedAt:     r.CompletedAt,
		Metadata:        resultMetadata(r),
	}
}

// resultDocument is the archive form of a stored result.
func resultDocument(r *model.TestResult) archive.Document {
	md := resultMetadata(r)
	md["sessionId"] = r.SessionID
	md["dimensionScores"] = map[string]float64(r.DimensionScores.Data())
	return archive.Document{
		ID:          r.ID,
		UserID:      r.UserID,
		TestType:    r.TestType,
		TestID:      r.TestID,
		CompletedAt: r.CompletedAt,
		Status:      r.Status,
		Score:       r.OverallScore,
		Metadata:    md,
	}
}
