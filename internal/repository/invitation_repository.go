package repository

import (
	"context"
	"time"

	"github.com/humaniq-ai/humaniq-core/internal/model"
	"gorm.io/gorm"
)

type InvitationRepository interface {
	WithTx(tx *gorm.DB) InvitationRepository
	Create(ctx context.Context, inv *model.Invitation) error
	FindByToken(ctx context.Context, token string) (*model.Invitation, error)
	MarkSent(ctx context.Context, token string, sentAt time.Time) (bool, error)
	// Accept sets acceptedAt only if the invitation is still unused and
	// unexpired at now; false means another caller won or it lapsed.
	Accept(ctx context.Context, token, userID string, now time.Time) (bool, error)
}

type invitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) WithTx(tx *gorm.DB) InvitationRepository {
	return &invitationRepository{db: tx}
}

func (r *invitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *invitationRepository) FindByToken(ctx context.Context, token string) (*model.Invitation, error) {
	var inv model.Invitation
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invitationRepository) MarkSent(ctx context.Context, token string, sentAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Invitation{}).
		Where("token = ? AND status = ?", token, model.InvitationPending).
		Updates(map[string]any{"status": model.InvitationSent, "sent_at": sentAt})
	return res.RowsAffected == 1, res.Error
}

func (r *invitationRepository) Accept(ctx context.Context, token, userID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Invitation{}).
		Where("token = ? AND accepted_at IS NULL AND expires_at > ?", token, now).
		Updates(map[string]any{
			"status":      model.InvitationAccepted,
			"accepted_at": now,
			"accepted_by": userID,
		})
	return res.RowsAffected == 1, res.Error
}
