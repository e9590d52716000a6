// File: internal/handlers/chat_handler.go
package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"

	"github.com/iyunix/go-chatsync/internal/domain"
	"github.com/iyunix/go-chatsync/internal/services/chat"
)

// Logger defines the logging interface used by the handlers
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type ChatHandler struct {
	ChatService chat.Service
	markdown    goldmark.Markdown
	logger      Logger
}

func NewChatHandler(cs chat.Service, logger Logger) *ChatHandler {
	return &ChatHandler{
		ChatService: cs,
		markdown:    goldmark.New(),
		logger:      logger,
	}
}

// RegisterRoutes mounts the chat API on api. turnLimit wraps the three turn endpoints; nil disables it.
func (h *ChatHandler) RegisterRoutes(api *mux.Router, turnLimit func(http.Handler) http.Handler) {
	if turnLimit == nil {
		turnLimit = func(next http.Handler) http.Handler { return next }
	}

	api.Handle("/turn", turnLimit(http.HandlerFunc(h.CompleteTurn))).Methods(http.MethodPost)
	api.Handle("/turn/stream", turnLimit(http.HandlerFunc(h.StreamTurn))).Methods(http.MethodPost)
	api.Handle("/turn/save", turnLimit(http.HandlerFunc(h.SaveTurn))).Methods(http.MethodPost)

	api.HandleFunc("/chats", h.GetUserChats).Methods(http.MethodGet)
	api.HandleFunc("/chats/recap", h.GetRecap).Methods(http.MethodGet)
	api.HandleFunc("/chats/{id:[0-9]+}", h.GetChat).Methods(http.MethodGet)
	api.HandleFunc("/chats/{id:[0-9]+}/messages", h.GetChatMessages).Methods(http.MethodGet)
}

type turnRequest struct {
	ChatID   *uint            `json:"chatId,omitempty"`
	Messages []domain.Message `json:"messages"`
}

type chatSummary struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type recapMessage struct {
	Role    domain.Role `json:"role"`
	Content string      `json:"content"`
	HTML    string      `json:"html,omitempty"`
}

type recapChat struct {
	ID        uint           `json:"id"`
	Name      string         `json:"name"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Messages  []recapMessage `json:"messages"`
}

// CompleteTurn runs one whole-response turn and returns the authoritative transcript.
func (h *ChatHandler) CompleteTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.ChatService.CompleteTurn(r.Context(), req.ChatID, req.Messages)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// SaveTurn persists a transcript the client already reassembled from a stream.
func (h *ChatHandler) SaveTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Messages == nil {
		writeError(w, "Messages array is required", http.StatusBadRequest)
		return
	}

	result, err := h.ChatService.SaveTurn(r.Context(), req.ChatID, req.Messages)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// StreamTurn writes the assistant reply as raw UTF-8 fragments, flushing after each one.
// Failures before the first fragment get a JSON error. Later failures abort the connection so the
// client sees a truncated body instead of a clean end and never stores a partial reply.
func (h *ChatHandler) StreamTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Messages array is required", http.StatusBadRequest)
		return
	}

	flusher, _ := w.(http.Flusher)
	started := false
	err := h.ChatService.StreamReply(r.Context(), req.Messages, func(delta string) error {
		if !started {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if _, err := w.Write([]byte(delta)); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	})

	switch {
	case err == nil && !started:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
	case err != nil && !started:
		h.writeServiceError(w, r, err)
	case err != nil:
		h.logger.Error("stream aborted after first fragment", "path", r.URL.Path, "error", err)
		panic(http.ErrAbortHandler)
	}
}

// GetUserChats handles the request to retrieve all chat summaries for the caller.
func (h *ChatHandler) GetUserChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.ChatService.ListChats(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	summaries := make([]chatSummary, 0, len(chats))
	for _, c := range chats {
		summaries = append(summaries, chatSummary{
			ID:        c.ID,
			Name:      c.Name,
			Label:     domain.MenuLabel(c.Name),
			UpdatedAt: c.UpdatedAt,
		})
	}
	writeJSON(w, http.StatusOK, summaries)
}

// GetRecap returns the most recently updated chats with assistant replies rendered to HTML.
func (h *ChatHandler) GetRecap(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	chats, err := h.ChatService.ListRecent(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	recap := make([]recapChat, 0, len(chats))
	for _, c := range chats {
		messages := make([]recapMessage, 0, len(c.Messages))
		for _, m := range c.Messages {
			rm := recapMessage{Role: m.Role, Content: m.Content}
			if m.Role == domain.RoleAssistant {
				rm.HTML = h.renderMarkdown(m.Content)
			}
			messages = append(messages, rm)
		}
		recap = append(recap, recapChat{ID: c.ID, Name: c.Name, UpdatedAt: c.UpdatedAt, Messages: messages})
	}
	writeJSON(w, http.StatusOK, recap)
}

// GetChat returns the full chat when the caller owns it.
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.chatID(w, r)
	if !ok {
		return
	}

	c, err := h.ChatService.GetChat(r.Context(), chatID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetChatMessages handles the request to retrieve all messages for a specific chat.
func (h *ChatHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	chatID, ok := h.chatID(w, r)
	if !ok {
		return
	}

	messages, err := h.ChatService.GetMessages(r.Context(), chatID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// chatID parses the path id. Ids that cannot exist get the same 404 as chats the caller cannot see.
func (h *ChatHandler) chatID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	if err != nil || id == 0 {
		writeError(w, notFoundMessage, http.StatusNotFound)
		return 0, false
	}
	return uint(id), true
}

func (h *ChatHandler) renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(content), &buf); err != nil {
		h.logger.Warn("markdown render failed", "error", err)
		return ""
	}
	return buf.String()
}
