package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
)

// ClientLogPayload is a log line reported by a client, e.g. a failed turn that was rolled back.
type ClientLogPayload struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Context any    `json:"context,omitempty"`
}

type LogHandler struct {
	logger Logger
}

func NewLogHandler(logger Logger) *LogHandler {
	return &LogHandler{logger: logger}
}

// LogClientEvent records a client-side event at the level it asks for.
func (h *LogHandler) LogClientEvent(w http.ResponseWriter, r *http.Request) {
	var payload ClientLogPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	fields := []interface{}{"source", "client", "message", payload.Message, "context", payload.Context}
	switch strings.ToLower(payload.Level) {
	case "error":
		h.logger.Error("CLIENT_LOG", fields...)
	case "warn", "warning":
		h.logger.Warn("CLIENT_LOG", fields...)
	case "debug":
		h.logger.Debug("CLIENT_LOG", fields...)
	default:
		h.logger.Info("CLIENT_LOG", fields...)
	}

	w.WriteHeader(http.StatusNoContent)
}
