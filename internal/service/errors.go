package service

import (
	"errors"
	"time"

	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"gorm.io/gorm"
)

// lookupError turns a repository read failure into NotFound when the row
// is missing and Internal otherwise. what names the entity ("session").
func lookupError(err error, code, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(code, "%s not found", what)
	}
	return apperr.Internal("failed to load "+what, err)
}

func utcNow() time.Time { return time.Now().UTC() }
