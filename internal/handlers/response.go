package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oultic/oultic-backend/internal/repos"
	"github.com/oultic/oultic-backend/internal/services"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// RespondServiceError maps the well-known service errors to HTTP statuses so
// every handler reports them the same way.
func RespondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, repos.ErrNotFound):
		RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrTFACodeInvalid),
		errors.Is(err, services.ErrTFATicketStale):
		RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, services.ErrNotVideoOwner),
		errors.Is(err, services.ErrNotCommentAuthor),
		errors.Is(err, services.ErrVideoNotVisible):
		RespondError(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrUsernameTaken):
		RespondError(c, http.StatusConflict, "conflict", err)
	case errors.Is(err, services.ErrUploadTooLarge):
		RespondError(c, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.Is(err, services.ErrUploadUnsupported),
		errors.Is(err, services.ErrInvalidCategory),
		errors.Is(err, services.ErrCommentTooDeep),
		errors.Is(err, services.ErrCannotSubscribeSelf),
		errors.Is(err, services.ErrNotAChannel):
		RespondError(c, http.StatusBadRequest, "bad_request", err)
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
	}
}
