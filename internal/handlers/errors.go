package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/iyunix/go-chatsync/internal/middleware"
	"github.com/iyunix/go-chatsync/internal/services/chat"
)

const notFoundMessage = "Chat not found"

// writeServiceError maps the chat error taxonomy onto HTTP. Internal causes are logged, never returned.
func (h *ChatHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := middleware.RequestIDFromContext(r.Context())

	switch chat.TypeOf(err) {
	case chat.ErrTypeUnauthorized:
		writeError(w, "Unauthorized", http.StatusUnauthorized)
	case chat.ErrTypeForbidden:
		writeError(w, "Forbidden", http.StatusForbidden)
	case chat.ErrTypeNotFound:
		writeError(w, notFoundMessage, http.StatusNotFound)
	case chat.ErrTypeValidation:
		var chatErr *chat.ChatError
		errors.As(err, &chatErr)
		writeError(w, chatErr.Message, http.StatusBadRequest)
	case chat.ErrTypeInference:
		h.logger.Error("inference failed", "request_id", requestID, "path", r.URL.Path, "error", err)
		writeError(w, "Could not get a reply from the model", http.StatusInternalServerError)
	default:
		h.logger.Error("request failed", "request_id", requestID, "path", r.URL.Path, "error", err)
		writeError(w, "Could not process chat", http.StatusInternalServerError)
	}
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
