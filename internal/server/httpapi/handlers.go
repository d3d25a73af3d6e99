package httpapi

import (
	"context"

	"github.com/dmitrijs2005/lango/internal/logging"
)

type handlers struct {
	users UserService
	vocab VocabService
	log   logging.Logger
}

func (h *handlers) fail(ctx context.Context, err error) Response {
	return errorResponse(ctx, h.log, err)
}
