package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/soulrag/soulrag-go/pkg/core"
	"github.com/soulrag/soulrag-go/pkg/soul"
)

func (s *Server) handleGetSoulSettings(w http.ResponseWriter, r *http.Request) {
	userID := strconv.FormatInt(currentUser(r).ID, 10)
	profile, err := s.souls.Resolve(r.Context(), userID)
	if err != nil {
		s.logger.Error("failed to resolve soul settings", "user_id", userID, "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to load settings")
		return
	}
	s.respondJSON(w, http.StatusOK, profile)
}

func (s *Server) handleUpdateSoulSettings(w http.ResponseWriter, r *http.Request) {
	var update soul.Update
	if !s.decodeJSON(w, r, &update) {
		return
	}

	userID := strconv.FormatInt(currentUser(r).ID, 10)
	profile, err := s.souls.Update(r.Context(), userID, &update)
	if err != nil {
		if errors.Is(err, core.ErrInvalidInput) {
			// Surface the validation detail without the internal error prefix.
			detail := err.Error()
			var serr *core.SoulError
			if errors.As(err, &serr) {
				detail = serr.Err.Error()
			}
			s.respondError(w, http.StatusBadRequest, detail)
			return
		}
		s.logger.Error("failed to update soul settings", "user_id", userID, "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to update settings")
		return
	}
	s.respondJSON(w, http.StatusOK, profile)
}
