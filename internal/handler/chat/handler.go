package chat

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/glowlabs/glowchat/backend/internal/model/chat"
	"github.com/glowlabs/glowchat/backend/internal/service/ai"
	"github.com/glowlabs/glowchat/backend/internal/service/conversation"
	"github.com/glowlabs/glowchat/backend/internal/upstream"
	"github.com/glowlabs/glowchat/backend/pkg/utils"
)

// Handler relays chat messages between the widget and the model.
type Handler struct {
	conversations *conversation.Service
	completer     ai.Completer
}

// New creates the chat handler. completer may be nil when no model is
// configured; chat requests then report unavailable.
func New(conversations *conversation.Service, completer ai.Completer) *Handler {
	return &Handler{
		conversations: conversations,
		completer:     completer,
	}
}

// RegisterRoutes mounts the chat endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Delete("/chat/{conversationID}", h.handleClear)
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversationId"`
	}

	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	if h.completer == nil {
		utils.RespondError(w, http.StatusInternalServerError, "ai model not configured")
		return
	}

	ctx := r.Context()
	session, isNew := h.conversations.GetOrCreate(ctx, payload.ConversationID)
	if isNew && payload.ConversationID != "" {
		log.Printf("[chat] unknown conversation %s, started %s", payload.ConversationID, session.ID)
	}

	// The user turn stays appended even when the model call fails below, so
	// the conversation survives a transient upstream failure and the next
	// attempt carries the full context.
	h.conversations.AppendTurn(ctx, session.ID, chat.RoleUser, payload.Message)

	transcript, ok := h.conversations.Transcript(ctx, session.ID)
	if !ok {
		// Swept between append and read; extremely tight window.
		utils.RespondError(w, http.StatusInternalServerError, "conversation expired")
		return
	}

	reply, err := h.completer.Complete(ctx, transcript)
	if err != nil {
		log.Printf("[chat] completion failed for conversation=%s: %v", session.ID, err)
		utils.RespondError(w, upstream.HTTPStatus(err), "failed to get response from AI")
		return
	}

	h.conversations.AppendTurn(ctx, session.ID, chat.RoleAssistant, reply)

	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"message":        reply,
		"conversationId": session.ID,
	})
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	if !h.conversations.Delete(r.Context(), conversationID) {
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "conversation cleared"})
}
