package service

import (
	"context"
	"testing"
	"time"

	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvitationLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	companyID := f.createCompany(t)
	userID := f.createUser(t)
	test := f.twoDimensionTest(t)

	inv, err := f.invitations.CreateInvitation(ctx, dto.InvitationCreateDTO{
		Email:     " New.Hire@Example.com ",
		CompanyID: companyID,
		TestID:    &test.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "new.hire@example.com", inv.Email)
	assert.Equal(t, model.InvitationPending, inv.Status)
	assert.True(t, inv.Valid)
	assert.NotEmpty(t, inv.Token)
	assert.WithinDuration(t, time.Now().Add(defaultInvitationTTL), inv.ExpiresAt, time.Minute)

	sent, err := f.invitations.MarkSent(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, model.InvitationSent, sent.Status)
	require.NotNil(t, sent.SentAt)

	resent, err := f.invitations.MarkSent(ctx, inv.Token)
	require.NoError(t, err)
	assert.Equal(t, sent.SentAt.Unix(), resent.SentAt.Unix())

	accepted, err := f.invitations.AcceptInvitation(ctx, inv.Token, userID)
	require.NoError(t, err)
	assert.Equal(t, model.InvitationAccepted, accepted.Invitation.Status)
	assert.False(t, accepted.Invitation.Valid)
	require.NotNil(t, accepted.Session)
	assert.Equal(t, userID, accepted.Session.UserID)
	assert.Equal(t, test.ID, accepted.Session.TestID)
	assert.Equal(t, 5, accepted.Session.TotalQuestions)

	_, err = f.sessions.GetSession(ctx, accepted.Session.ID)
	require.NoError(t, err)

	_, err = f.invitations.AcceptInvitation(ctx, inv.Token, userID)
	requireAppErr(t, err, apperr.KindConflict, "invitation_used")

	_, err = f.invitations.MarkSent(ctx, inv.Token)
	requireAppErr(t, err, apperr.KindConflict, "invitation_used")

	got, err := f.invitations.GetInvitation(ctx, inv.Token)
	require.NoError(t, err)
	assert.False(t, got.Valid)
}

func TestInvitationExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	companyID := f.createCompany(t)
	userID := f.createUser(t)

	inv, err := f.invitations.CreateInvitation(ctx, dto.InvitationCreateDTO{Email: "late@example.com", CompanyID: companyID})
	require.NoError(t, err)

	svc := f.invitations.(*invitationService)
	svc.now = func() time.Time { return inv.ExpiresAt }

	got, err := f.invitations.GetInvitation(ctx, inv.Token)
	require.NoError(t, err)
	assert.False(t, got.Valid)

	_, err = f.invitations.AcceptInvitation(ctx, inv.Token, userID)
	requireAppErr(t, err, apperr.KindForbidden, "invitation_expired")
}

func TestInvitationWithoutTestOpensNoSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	companyID := f.createCompany(t)
	userID := f.createUser(t)

	inv, err := f.invitations.CreateInvitation(ctx, dto.InvitationCreateDTO{Email: "x@example.com", CompanyID: companyID})
	require.NoError(t, err)

	accepted, err := f.invitations.AcceptInvitation(ctx, inv.Token, userID)
	require.NoError(t, err)
	assert.Nil(t, accepted.Session)
	assert.Equal(t, model.InvitationAccepted, accepted.Invitation.Status)
}

func TestInvitationLookups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	companyID := f.createCompany(t)

	_, err := f.invitations.GetInvitation(ctx, "missing")
	requireAppErr(t, err, apperr.KindNotFound, "invitation_not_found")

	_, err = f.invitations.CreateInvitation(ctx, dto.InvitationCreateDTO{Email: "a@example.com", CompanyID: "missing"})
	requireAppErr(t, err, apperr.KindNotFound, "company_not_found")

	missingTest := "missing"
	_, err = f.invitations.CreateInvitation(ctx, dto.InvitationCreateDTO{Email: "a@example.com", CompanyID: companyID, TestID: &missingTest})
	requireAppErr(t, err, apperr.KindNotFound, "test_not_found")

	inv, err := f.invitations.CreateInvitation(ctx, dto.InvitationCreateDTO{Email: "a@example.com", CompanyID: companyID})
	require.NoError(t, err)
	_, err = f.invitations.AcceptInvitation(ctx, inv.Token, "missing-user")
	requireAppErr(t, err, apperr.KindNotFound, "user_not_found")
}
