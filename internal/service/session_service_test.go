package service

import (
	"context"
	"testing"

	"github.com/humaniq-ai/humaniq-core/config"
	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/humaniq-ai/humaniq-core/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSessionSnapshotsQuestionCount(t *testing.T) {
	f := newFixture(t)
	userID := f.createUser(t)
	test := f.twoDimensionTest(t)

	s := f.startSession(t, userID, test.ID)

	assert.Equal(t, model.SessionStarted, s.Status)
	assert.Equal(t, 5, s.TotalQuestions)
	assert.Equal(t, 0, s.AnsweredCount)
	assert.False(t, s.StartedAt.IsZero())
	assert.Nil(t, s.CompletedAt)
}

func TestCreateSessionRejectsUnknownUserAndTest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.createUser(t)
	test := f.twoDimensionTest(t)

	_, err := f.sessions.CreateSession(ctx, "missing-user", test.ID)
	requireAppErr(t, err, apperr.KindNotFound, "user_not_found")

	_, err = f.sessions.CreateSession(ctx, userID, "missing-test")
	requireAppErr(t, err, apperr.KindNotFound, "test_not_found")
}

func TestCreateSessionRejectsInactiveTest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.createUser(t)
	test := f.twoDimensionTest(t)

	_, err := f.admin.SetTestActive(ctx, test.ID, false)
	require.NoError(t, err)

	_, err = f.sessions.CreateSession(ctx, userID, test.ID)
	requireAppErr(t, err, apperr.KindForbidden, "test_inactive")
}

func TestCreateSessionReuseActive(t *testing.T) {
	t.Run("disabled creates a new session each time", func(t *testing.T) {
		f := newFixture(t)
		userID := f.createUser(t)
		test := f.twoDimensionTest(t)

		first := f.startSession(t, userID, test.ID)
		second := f.startSession(t, userID, test.ID)
		assert.NotEqual(t, first.ID, second.ID)
	})

	t.Run("enabled returns the open session", func(t *testing.T) {
		f := newFixture(t, func(c *config.Config) { c.Sessions.ReuseActive = true })
		userID := f.createUser(t)
		test := f.twoDimensionTest(t)

		first := f.startSession(t, userID, test.ID)
		second := f.startSession(t, userID, test.ID)
		assert.Equal(t, first.ID, second.ID)

		_, err := f.sessions.AbandonSession(context.Background(), first.ID)
		require.NoError(t, err)
		third := f.startSession(t, userID, test.ID)
		assert.NotEqual(t, first.ID, third.ID)
	})
}

func TestAbandonSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.createUser(t)
	test := f.twoDimensionTest(t)
	s := f.startSession(t, userID, test.ID)

	abandoned, err := f.sessions.AbandonSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionAbandoned, abandoned.Status)

	again, err := f.sessions.AbandonSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionAbandoned, again.Status)

	_, err = f.answers.RecordAnswer(ctx, s.ID, test.Questions[0].ID, dto.AnswerSubmitDTO{Value: "10"})
	requireAppErr(t, err, apperr.KindConflict, "session_closed")

	_, err = f.submissions.FinalizeSession(ctx, s.ID)
	requireAppErr(t, err, apperr.KindConflict, "session_abandoned")
}

func TestAbandonCompletedSessionConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	userID := f.createUser(t)
	test := f.twoDimensionTest(t)
	s := f.startSession(t, userID, test.ID)

	_, err := f.submissions.FinalizeSession(ctx, s.ID)
	require.NoError(t, err)

	_, err = f.sessions.AbandonSession(ctx, s.ID)
	requireAppErr(t, err, apperr.KindConflict, "session_closed")
}

func TestGetSessionNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.sessions.GetSession(context.Background(), "nope")
	requireAppErr(t, err, apperr.KindNotFound, "session_not_found")
}

func TestAuthorizeSessionChecksOwnership(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	owner := f.createUser(t)
	other := f.createUser(t)
	test := f.twoDimensionTest(t)
	s := f.startSession(t, owner, test.ID)

	tests := []struct {
		name    string
		caller  Caller
		allowed bool
	}{
		{"owner", Caller{UserID: owner, Role: model.RoleEmployee}, true},
		{"other employee", Caller{UserID: other, Role: model.RoleEmployee}, false},
		{"other candidate", Caller{UserID: other, Role: model.RoleCandidate}, false},
		{"manager", Caller{UserID: other, Role: model.RoleManager}, true},
		{"admin", Caller{UserID: other, Role: model.RoleAdmin}, true},
		{"anonymous", Caller{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.sessions.AuthorizeSession(ctx, tt.caller, s.ID)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			requireAppErr(t, err, apperr.KindForbidden, "not_owner")
		})
	}

	err := f.sessions.AuthorizeSession(ctx, Caller{UserID: owner}, "missing")
	requireAppErr(t, err, apperr.KindNotFound, "session_not_found")
}
