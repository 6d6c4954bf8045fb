package errorhandler

import (
	"context"
	"net/http"

	"github.com/adspredia/adspredia-api/internal/pkg/logger"
	"github.com/adspredia/adspredia-api/internal/pkg/response"
)

// Internal logs err with the request-scoped logger and answers 500.
// The error text never reaches the client.
func Internal(ctx context.Context, w http.ResponseWriter, err error, message string) {
	logger.FromContext(ctx).Error().
		Err(err).
		Int("status_code", http.StatusInternalServerError).
		Msg(message)

	response.InternalError(w)
}

// Validation logs rejected fields at warn level and answers 422 with them
func Validation(ctx context.Context, w http.ResponseWriter, fields map[string]string) {
	logger.FromContext(ctx).Warn().
		Interface("validation_errors", fields).
		Msg("Validation error")

	response.ValidationError(w, fields)
}

// Panic logs a recovered panic with its stack and answers 500
func Panic(ctx context.Context, w http.ResponseWriter, recovered interface{}, stack []byte) {
	logger.FromContext(ctx).Error().
		Interface("panic_error", recovered).
		Str("panic_stack", truncate(string(stack), 8192)).
		Msg("Panic recovered")

	response.InternalError(w)
}

func truncate(s string, maxLen int) string {
	if len(s) > maxLen {
		return s[:maxLen] + "...<truncated>"
	}
	return s
}
