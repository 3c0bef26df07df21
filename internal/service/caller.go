package service

import (
	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/model"
)

// Caller is the identity a request acts under.
type Caller struct {
	UserID string
	Role   string
}

// Privileged callers may act on sessions and results of any user.
func (c Caller) Privileged() bool {
	return c.Role == model.RoleAdmin || c.Role == model.RoleManager
}

func authorizeOwner(caller Caller, ownerID, what, id string) error {
	if caller.UserID != "" && (caller.UserID == ownerID || caller.Privileged()) {
		return nil
	}
	return apperr.Forbidden("not_owner", "%s %s belongs to another user", what, id)
}
