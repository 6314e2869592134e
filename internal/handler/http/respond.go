package http

import (
	"log/slog"
	"net/http"

	"github.com/cloudrep/voicedesk/pkg/httputil"
)

// The handler package reuses the shared response envelope so every endpoint,
// including the webhook receiver, speaks the same wire format.
type (
	response      = httputil.Response
	errorResponse = httputil.ErrorResponse
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	httputil.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	httputil.WriteError(w, r, err, logger)
}

func writeValidationError(w http.ResponseWriter, err error) {
	httputil.WriteValidationError(w, err)
}

func writeInvalidBody(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, response{
		Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
	})
}
