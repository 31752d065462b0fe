package api

import (
	"net/http"
	"strconv"

	"github.com/soulrag/soulrag-go/pkg/history"
)

type chatRequest struct {
	Text string `json:"text"`
}

type chatResponse struct {
	Response string `json:"response"`
	UserID   string `json:"user_id"`
}

// handleChat runs one full conversation turn: persist the user's message,
// generate the answer, persist it, and index the exchange for retrieval in
// later sessions.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	ctx := r.Context()
	userID := strconv.FormatInt(currentUser(r).ID, 10)

	// The engine reads the history window before this turn is appended, so
	// both sides of the exchange are persisted only once the answer exists.
	answer := s.engine.Chat(ctx, userID, req.Text)

	if _, err := s.history.Append(ctx, userID, history.RoleUser, req.Text); err != nil {
		s.logger.Error("failed to persist user turn", "user_id", userID, "err", err)
	}
	if _, err := s.history.Append(ctx, userID, history.RoleAssistant, answer); err != nil {
		s.logger.Error("failed to persist assistant turn", "user_id", userID, "err", err)
	}

	// Best effort: a failed indexing must not fail the chat.
	if err := s.engine.IndexExchange(ctx, userID, req.Text, answer); err != nil {
		s.logger.Warn("failed to index exchange", "user_id", userID, "err", err)
	}

	s.respondJSON(w, http.StatusOK, chatResponse{Response: answer, UserID: userID})
}
