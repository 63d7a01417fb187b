package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/healthchat/internal/apperror"
	"github.com/sakif/healthchat/internal/auth"
	"github.com/sakif/healthchat/internal/service"
)

// Asker answers chat questions.
type Asker interface {
	Ask(ctx context.Context, in service.ChatInput) (*service.ChatResult, error)
}

// ChatHandler serves POST /api/chat. It runs behind auth.OptionalAuth, so the
// caller may be anonymous.
type ChatHandler struct {
	chat   Asker
	logger *slog.Logger
}

// NewChatHandler creates a ChatHandler. A nil Asker means no model server is
// configured and every request gets 503.
func NewChatHandler(chat Asker, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// HandleChat answers one question.
//
// HTTP: POST /api/chat  {question, max_length?, conversation_id?}
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	if h.chat == nil {
		writeError(w, apperror.Unavailable("inference"))
		return
	}

	var in service.ChatInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	in.UserID, _ = auth.UserIDFromContext(r.Context())

	res, err := h.chat.Ask(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
