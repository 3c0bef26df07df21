package service

import (
	"context"
	"errors"

	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type SessionService interface {
	CreateSession(ctx context.Context, userID, testID string) (*dto.SessionResponseDTO, error)
	GetSession(ctx context.Context, sessionID string) (*dto.SessionResponseDTO, error)
	AbandonSession(ctx context.Context, sessionID string) (*dto.SessionResponseDTO, error)
	// AuthorizeSession fails with Forbidden unless caller owns the session or
	// is privileged. A missing session is NotFound.
	AuthorizeSession(ctx context.Context, caller Caller, sessionID string) error
}

type sessionService struct {
	userRepo     repository.UserRepository
	testRepo     repository.TestRepository
	questionRepo repository.QuestionRepository
	sessionRepo  repository.TestSessionRepository
	answerRepo   repository.AnswerRepository
	reuseActive  bool
}

func NewSessionService(
	cfg *config.Config,
	userRepo repository.UserRepository,
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	sessionRepo repository.TestSessionRepository,
	answerRepo repository.AnswerRepository,
) SessionService {
	return &sessionService{
		userRepo:     userRepo,
		testRepo:     testRepo,
		questionRepo: questionRepo,
		sessionRepo:  sessionRepo,
		answerRepo:   answerRepo,
		reuseActive:  cfg.Sessions.ReuseActive,
	}
}

// CreateSession opens a session for (user, test). With session reuse
// enabled the newest unfinished session for the pair is returned instead.
func (s *sessionService) CreateSession(ctx context.Context, userID, testID string) (*dto.SessionResponseDTO, error) {
	session, err := newSession(ctx, s.userRepo, s.testRepo, s.questionRepo, userID, testID)
	if err != nil {
		return nil, err
	}

	if s.reuseActive {
		existing, err := s.sessionRepo.FindLatestOpen(ctx, userID, testID)
		switch {
		case err == nil:
			log.Info().Str("sessionID", existing.ID).Str("userID", userID).Msg("CreateSession: Reusing open session")
			return s.respond(ctx, existing)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperr.Internal("failed to look up open session", err)
		}
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		log.Error().Err(err).Str("userID", userID).Str("testID", testID).Msg("CreateSession: Failed to create session")
		return nil, apperr.Internal("failed to create session", err)
	}
	log.Info().
		Str("sessionID", session.ID).
		Str("userID", userID).
		Str("testID", testID).
		Int("totalQuestions", session.TotalQuestions).
		Msg("CreateSession: Session started")
	return sessionResponse(session, 0), nil
}

// newSession checks that the user exists and the test exists and is
// active, and returns an unsaved session. totalQuestions is counted here
// and never recomputed.
func newSession(
	ctx context.Context,
	userRepo repository.UserRepository,
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	userID, testID string,
) (*model.TestSession, error) {
	if _, err := userRepo.FindByID(ctx, userID); err != nil {
		return nil, lookupError(err, "user_not_found", "user")
	}
	test, err := testRepo.FindByID(ctx, testID)
	if err != nil {
		return nil, lookupError(err, "test_not_found", "test")
	}
	if !test.Active {
		return nil, apperr.Forbidden("test_inactive", "test %s is not active", testID)
	}
	total, err := questionRepo.CountByTestID(ctx, testID)
	if err != nil {
		return nil, apperr.Internal("failed to count questions", err)
	}
	return &model.TestSession{
		UserID:         userID,
		TestID:         testID,
		Status:         model.SessionStarted,
		TotalQuestions: int(total),
	}, nil
}

func (s *sessionService) GetSession(ctx context.Context, sessionID string) (*dto.SessionResponseDTO, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "session_not_found", "session")
	}
	return s.respond(ctx, session)
}

func (s *sessionService) AuthorizeSession(ctx context.Context, caller Caller, sessionID string) error {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return lookupError(err, "session_not_found", "session")
	}
	if err := authorizeOwner(caller, session.UserID, "session", sessionID); err != nil {
		log.Warn().Str("sessionID", sessionID).Str("callerID", caller.UserID).Msg("AuthorizeSession: Access denied")
		return err
	}
	return nil
}

func (s *sessionService) AbandonSession(ctx context.Context, sessionID string) (*dto.SessionResponseDTO, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "session_not_found", "session")
	}
	if session.Status == model.SessionAbandoned {
		return s.respond(ctx, session)
	}

	changed, err := s.sessionRepo.TransitionStatus(ctx, sessionID,
		[]string{model.SessionStarted, model.SessionInProgress}, model.SessionAbandoned, nil)
	if err != nil {
		return nil, apperr.Internal("failed to abandon session", err)
	}
	if !changed {
		current, err := s.sessionRepo.FindByID(ctx, sessionID)
		if err != nil {
			return nil, lookupError(err, "session_not_found", "session")
		}
		if current.Status != model.SessionAbandoned {
			return nil, apperr.Conflict("session_closed", "session %s is already completed", sessionID)
		}
	}
	session.Status = model.SessionAbandoned
	log.Info().Str("sessionID", sessionID).Msg("AbandonSession: Session abandoned")
	return s.respond(ctx, session)
}

func (s *sessionService) respond(ctx context.Context, session *model.TestSession) (*dto.SessionResponseDTO, error) {
	answered, err := s.answerRepo.CountBySessionID(ctx, session.ID)
	if err != nil {
		return nil, apperr.Internal("failed to count answers", err)
	}
	return sessionResponse(session, int(answered)), nil
}

func sessionResponse(session *model.TestSession, answered int) *dto.SessionResponseDTO {
	return &dto.SessionResponseDTO{
		ID:              session.ID,
		UserID:          session.UserID,
		TestID:          session.TestID,
		Status:          session.Status,
		TotalQuestions:  session.TotalQuestions,
		CurrentQuestion: session.CurrentQuestion,
		AnsweredCount:   answered,
		StartedAt:       session.StartedAt,
		CompletedAt:     session.CompletedAt,
	}
}
