package httpx

import (
	"context"
	"encoding/json"
	"net/http"
)

// Response is the canonical JSON success envelope returned by the API.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// WriteJSON writes a success envelope with the provided payload.
func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	if status == 0 {
		status = http.StatusOK
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{
		Success: true,
		Message: sanitize(message, 512),
		Data:    data,
	})
}
