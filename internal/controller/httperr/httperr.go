// Package httperr writes service errors as JSON responses.
package httperr

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/humaniq-ai/humaniq-core/internal/apperr"
	"github.com/humaniq-ai/humaniq-core/internal/dto"
	"github.com/rs/zerolog/log"
)

// Respond maps err to its status. Internal causes are logged with op and
// never sent to the client.
func Respond(ctx *gin.Context, op string, err error) {
	status := apperr.HTTPStatus(err)
	e, ok := apperr.As(err)
	if !ok || e.Kind == apperr.KindInternal {
		log.Error().Err(err).Str("path", ctx.FullPath()).Msg(op + ": Internal error")
		ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "Internal server error", Code: "internal_error"})
		return
	}
	log.Warn().Err(err).Str("code", e.Code).Int("status", status).Msg(op + ": Request rejected")
	ctx.JSON(status, dto.ErrorResponse{Error: e.Message, Code: e.Code})
}

// BadRequest answers a request-binding failure.
func BadRequest(ctx *gin.Context, op string, err error) {
	log.Warn().Err(err).Msg(op + ": Failed to bind request")
	ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{
		Error:   "Invalid request",
		Code:    "invalid_request",
		Details: []string{err.Error()},
	})
}
