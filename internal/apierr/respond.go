// SPDX-License-Identifier: MIT

package apierr

import (
	"encoding/json"
	"net/http"

	"github.com/nordlock/sentrygate/internal/log"
)

// Response is the JSON body written for any non-2xx API response.
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// Respond writes err as a structured JSON error response, choosing the
// status code via StatusCode(err.Kind).
func Respond(w http.ResponseWriter, r *http.Request, err *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusCode(err.Kind))
	resp := Response{
		Code:      string(err.Kind),
		Message:   err.Message,
		RequestID: log.RequestIDFromContext(r.Context()),
	}
	if encErr := json.NewEncoder(w).Encode(resp); encErr != nil {
		http.Error(w, err.Message, StatusCode(err.Kind))
	}
}
