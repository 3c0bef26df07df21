package service

import (
	"context"
	"strings"

	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
)

type AnswerService interface {
	// RecordAnswer stores the answer for (session, question); a repeated
	// answer replaces the earlier one. The session is finalized once every
	// question has an answer.
	RecordAnswer(ctx context.Context, sessionID, questionID string, req dto.AnswerSubmitDTO) (*dto.AnswerResponseDTO, error)
}

type answerService struct {
	sessionRepo  repository.TestSessionRepository
	questionRepo repository.QuestionRepository
	answerRepo   repository.AnswerRepository
	finalizer    TestSubmissionService
}

func NewAnswerService(
	sessionRepo repository.TestSessionRepository,
	questionRepo repository.QuestionRepository,
	answerRepo repository.AnswerRepository,
	finalizer TestSubmissionService,
) AnswerService {
	return &answerService{
		sessionRepo:  sessionRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		finalizer:    finalizer,
	}
}

func (s *answerService) RecordAnswer(ctx context.Context, sessionID, questionID string, req dto.AnswerSubmitDTO) (*dto.AnswerResponseDTO, error) {
	if strings.TrimSpace(req.Value) == "" {
		return nil, apperr.Validation("value_required", "value is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, lookupError(err, "session_not_found", "session")
	}
	if !session.Open() {
		return nil, apperr.Conflict("session_closed", "session %s is %s", sessionID, strings.ToLower(session.Status))
	}
	question, err := s.questionRepo.FindByID(ctx, questionID)
	if err != nil {
		return nil, lookupError(err, "question_not_found", "question")
	}
	if question.TestID != session.TestID {
		return nil, apperr.Validation("question_not_in_test", "question %s does not belong to the session's test", questionID)
	}

	answer := model.Answer{
		SessionID:  sessionID,
		QuestionID: questionID,
		Value:      strings.TrimSpace(req.Value),
		Metadata:   datatypes.JSONMap(req.Metadata),
	}
	if err := s.answerRepo.Upsert(ctx, &answer); err != nil {
		log.Error().Err(err).Str("sessionID", sessionID).Str("questionID", questionID).Msg("RecordAnswer: Failed to store answer")
		return nil, apperr.Internal("failed to store answer", err)
	}
	stored, err := s.answerRepo.Find(ctx, sessionID, questionID)
	if err != nil {
		return nil, apperr.Internal("failed to reload answer", err)
	}

	if session.Status == model.SessionStarted {
		if _, err := s.sessionRepo.TransitionStatus(ctx, sessionID,
			[]string{model.SessionStarted}, model.SessionInProgress, nil); err != nil {
			return nil, apperr.Internal("failed to update session status", err)
		}
		session.Status = model.SessionInProgress
	}

	// Progress is refreshed after the write and may lag under concurrent answers.
	answered, err := s.answerRepo.CountBySessionID(ctx, sessionID)
	if err != nil {
		return nil, apperr.Internal("failed to count answers", err)
	}
	if err := s.sessionRepo.UpdateProgress(ctx, sessionID, int(answered)); err != nil {
		log.Warn().Err(err).Str("sessionID", sessionID).Msg("RecordAnswer: Failed to update progress")
	} else {
		session.CurrentQuestion = int(answered)
	}

	resp := &dto.AnswerResponseDTO{
		ID:         stored.ID,
		SessionID:  stored.SessionID,
		QuestionID: stored.QuestionID,
		Value:      stored.Value,
	}

	if session.TotalQuestions > 0 && int(answered) >= session.TotalQuestions {
		result, err := s.finalizer.FinalizeSession(ctx, sessionID)
		if err != nil {
			// The answer is stored; finalize can be requested explicitly.
			log.Error().Err(err).Str("sessionID", sessionID).Msg("RecordAnswer: Automatic finalize failed")
		} else {
			resp.Result = result
			if refreshed, err := s.sessionRepo.FindByID(ctx, sessionID); err == nil {
				session = refreshed
			}
		}
	}

	resp.Session = *sessionResponse(session, int(answered))
	return resp, nil
}
