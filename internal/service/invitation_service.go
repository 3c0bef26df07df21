package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/humaniq-ai/humaniq-core/internal/repository"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const defaultInvitationTTL = 30 * 24 * time.Hour

type InvitationService interface {
	CreateInvitation(ctx context.Context, req dto.InvitationCreateDTO) (*dto.InvitationResponseDTO, error)
	MarkSent(ctx context.Context, token string) (*dto.InvitationResponseDTO, error)
	GetInvitation(ctx context.Context, token string) (*dto.InvitationResponseDTO, error)
	// AcceptInvitation consumes the token for userID. It succeeds at most
	// once per token, and opens a session when the invitation names a test.
	AcceptInvitation(ctx context.Context, token, userID string) (*dto.InvitationAcceptResponseDTO, error)
}

type invitationService struct {
	invitationRepo repository.InvitationRepository
	companyRepo    repository.CompanyRepository
	userRepo       repository.UserRepository
	testRepo       repository.TestRepository
	questionRepo   repository.QuestionRepository
	sessionRepo    repository.TestSessionRepository
	db             *gorm.DB
	ttl            time.Duration
	now            func() time.Time
}

func NewInvitationService(
	cfg *config.Config,
	invitationRepo repository.InvitationRepository,
	companyRepo repository.CompanyRepository,
	userRepo repository.UserRepository,
	testRepo repository.TestRepository,
	questionRepo repository.QuestionRepository,
	sessionRepo repository.TestSessionRepository,
	db *gorm.DB,
) InvitationService {
	ttl := cfg.Invitations.TTL
	if ttl <= 0 {
		ttl = defaultInvitationTTL
	}
	return &invitationService{
		invitationRepo: invitationRepo,
		companyRepo:    companyRepo,
		userRepo:       userRepo,
		testRepo:       testRepo,
		questionRepo:   questionRepo,
		sessionRepo:    sessionRepo,
		db:             db,
		ttl:            ttl,
		now:            utcNow,
	}
}

func (s *invitationService) CreateInvitation(ctx context.Context, req dto.InvitationCreateDTO) (*dto.InvitationResponseDTO, error) {
	if _, err := s.companyRepo.FindByID(ctx, req.CompanyID); err != nil {
		return nil, lookupError(err, "company_not_found", "company")
	}
	if req.TestID != nil {
		if _, err := s.testRepo.FindByID(ctx, *req.TestID); err != nil {
			return nil, lookupError(err, "test_not_found", "test")
		}
	}

	inv := model.Invitation{
		Token:     uuid.NewString(),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		CompanyID: req.CompanyID,
		TestID:    req.TestID,
		Status:    model.InvitationPending,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.invitationRepo.Create(ctx, &inv); err != nil {
		log.Error().Err(err).Str("companyID", req.CompanyID).Msg("CreateInvitation: Failed to create invitation")
		return nil, apperr.Internal("failed to create invitation", err)
	}
	log.Info().Str("invitationID", inv.ID).Str("companyID", inv.CompanyID).Time("expiresAt", inv.ExpiresAt).Msg("CreateInvitation: Invitation created")
	return s.response(&inv), nil
}

func (s *invitationService) MarkSent(ctx context.Context, token string) (*dto.InvitationResponseDTO, error) {
	inv, err := s.invitationRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, lookupError(err, "invitation_not_found", "invitation")
	}
	switch inv.Status {
	case model.InvitationSent:
		return s.response(inv), nil
	case model.InvitationAccepted:
		return nil, apperr.Conflict("invitation_used", "invitation was already accepted")
	}

	if _, err := s.invitationRepo.MarkSent(ctx, token, s.now()); err != nil {
		return nil, apperr.Internal("failed to update invitation", err)
	}
	inv, err = s.invitationRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, lookupError(err, "invitation_not_found", "invitation")
	}
	return s.response(inv), nil
}

func (s *invitationService) GetInvitation(ctx context.Context, token string) (*dto.InvitationResponseDTO, error) {
	inv, err := s.invitationRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, lookupError(err, "invitation_not_found", "invitation")
	}
	return s.response(inv), nil
}

func (s *invitationService) AcceptInvitation(ctx context.Context, token, userID string) (*dto.InvitationAcceptResponseDTO, error) {
	inv, err := s.invitationRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, lookupError(err, "invitation_not_found", "invitation")
	}
	now := s.now()
	if err := invitationUsable(inv, now); err != nil {
		return nil, err
	}

	var session *model.TestSession
	if inv.TestID != nil {
		session, err = newSession(ctx, s.userRepo, s.testRepo, s.questionRepo, userID, *inv.TestID)
		if err != nil {
			return nil, err
		}
	} else if _, err := s.userRepo.FindByID(ctx, userID); err != nil {
		return nil, lookupError(err, "user_not_found", "user")
	}

	errLost := errors.New("invitation consumed concurrently")
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		accepted, err := s.invitationRepo.WithTx(tx).Accept(ctx, token, userID, now)
		if err != nil {
			return err
		}
		if !accepted {
			return errLost
		}
		if session != nil {
			return s.sessionRepo.WithTx(tx).Create(ctx, session)
		}
		return nil
	})
	if errors.Is(err, errLost) {
		current, ferr := s.invitationRepo.FindByToken(ctx, token)
		if ferr != nil {
			return nil, lookupError(ferr, "invitation_not_found", "invitation")
		}
		if uerr := invitationUsable(current, now); uerr != nil {
			return nil, uerr
		}
		return nil, apperr.Conflict("invitation_used", "invitation was already accepted")
	}
	if err != nil {
		log.Error().Err(err).Str("invitationID", inv.ID).Str("userID", userID).Msg("AcceptInvitation: Failed to accept invitation")
		return nil, apperr.Internal("failed to accept invitation", err)
	}

	accepted, err := s.invitationRepo.FindByToken(ctx, token)
	if err != nil {
		return nil, lookupError(err, "invitation_not_found", "invitation")
	}
	resp := &dto.InvitationAcceptResponseDTO{Invitation: *s.response(accepted)}
	if session != nil {
		resp.Session = sessionResponse(session, 0)
	}
	log.Info().Str("invitationID", inv.ID).Str("userID", userID).Msg("AcceptInvitation: Invitation accepted")
	return resp, nil
}

func invitationUsable(inv *model.Invitation, now time.Time) error {
	if inv.AcceptedAt != nil {
		return apperr.Conflict("invitation_used", "invitation was already accepted")
	}
	if !now.Before(inv.ExpiresAt) {
		return apperr.Forbidden("invitation_expired", "invitation expired at %s", inv.ExpiresAt.UTC().Format(time.RFC3339))
	}
	return nil
}

func (s *invitationService) response(inv *model.Invitation) *dto.InvitationResponseDTO {
	return &dto.InvitationResponseDTO{
		Token:      inv.Token,
		Email:      inv.Email,
		CompanyID:  inv.CompanyID,
		TestID:     inv.TestID,
		Status:     inv.Status,
		ExpiresAt:  inv.ExpiresAt,
		SentAt:     inv.SentAt,
		AcceptedAt: inv.AcceptedAt,
		Valid:      inv.ValidAt(s.now()),
	}
}
