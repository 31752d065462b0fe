package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/soulrag/soulrag-go/pkg/core"
	"github.com/soulrag/soulrag-go/pkg/history"
)

type historyListResponse struct {
	UserID     string          `json:"user_id"`
	Items      []*history.Turn `json:"items"`
	NextOffset *int            `json:"next_offset,omitempty"`
}

type historyAppendRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	userID := strconv.FormatInt(currentUser(r).ID, 10)

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			s.respondError(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "offset must be non-negative")
			return
		}
		offset = n
	}

	role := r.URL.Query().Get("role")
	if role != "" && !history.ValidRole(role) {
		s.respondError(w, http.StatusBadRequest, "role must be 'user' or 'assistant'")
		return
	}

	turns, err := s.history.List(r.Context(), userID, history.ListOptions{
		Role:   role,
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		s.logger.Error("failed to list history", "user_id", userID, "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to list history")
		return
	}

	resp := historyListResponse{UserID: userID, Items: turns}
	if resp.Items == nil {
		resp.Items = []*history.Turn{}
	}
	if len(turns) == limit {
		next := offset + len(turns)
		resp.NextOffset = &next
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAppendHistory(w http.ResponseWriter, r *http.Request) {
	var req historyAppendRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	userID := strconv.FormatInt(currentUser(r).ID, 10)
	turn, err := s.history.Append(r.Context(), userID, req.Role, req.Content)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			s.respondError(w, http.StatusBadRequest, "role must be 'user' or 'assistant'")
			return
		}
		s.logger.Error("failed to append history", "user_id", userID, "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to append history")
		return
	}

	s.respondJSON(w, http.StatusCreated, turn)
}

func (s *Server) handleCountHistory(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")
	if role != "" && !history.ValidRole(role) {
		s.respondError(w, http.StatusBadRequest, "role must be 'user' or 'assistant'")
		return
	}

	userID := strconv.FormatInt(currentUser(r).ID, 10)
	total, err := s.history.Count(r.Context(), userID, role)
	if err != nil {
		s.logger.Error("failed to count history", "user_id", userID, "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to count history")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]int64{"total": total})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	userID := strconv.FormatInt(currentUser(r).ID, 10)
	if _, err := s.history.DeleteAll(r.Context(), userID); err != nil {
		s.logger.Error("failed to delete history", "user_id", userID, "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to delete history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteHistoryBefore(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("before")
	if raw == "" {
		s.respondError(w, http.StatusBadRequest, "before query parameter is required")
		return
	}
	before, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "before must be an RFC 3339 timestamp")
		return
	}

	userID := strconv.FormatInt(currentUser(r).ID, 10)
	if _, err := s.history.DeleteBefore(r.Context(), userID, before); err != nil {
		s.logger.Error("failed to delete history", "user_id", userID, "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to delete history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
