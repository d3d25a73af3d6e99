package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/logging"
	"github.com/dmitrijs2005/lango/internal/server/password"
)

const internalErrorMessage = "Internal Server Error"

// statusFor maps an error onto an HTTP status code.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorValidation), errors.Is(err, common.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrBadSignature),
		errors.Is(err, common.ErrMalformedToken):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// errorResponse turns err into an {"error": ...} response. Server faults are
// logged with full detail and answered with an opaque message.
func errorResponse(ctx context.Context, log logging.Logger, err error) Response {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error(ctx, "request failed", "error", err)
		return reply(status, errorBody{Error: internalErrorMessage})
	}

	msg := http.StatusText(status)
	var ce *common.Error
	var pe *password.PolicyError
	switch {
	case errors.As(err, &ce):
		msg = ce.Message
	case errors.As(err, &pe):
		msg = pe.Error()
	}
	return reply(status, errorBody{Error: msg})
}
