package api

import (
	"net/http"
	"strconv"
)

type uploadRequest struct {
	Text string `json:"text"`
}

// handleUpload ingests raw text into the caller's knowledge base.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	userID := strconv.FormatInt(currentUser(r).ID, 10)
	chunks, err := s.engine.IngestDocument(r.Context(), userID, req.Text)
	if err != nil {
		s.logger.Error("upload failed", "user_id", userID, "err", err)
		s.respondError(w, http.StatusInternalServerError, "failed to embed text")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Text uploaded and embedded successfully",
		"chunks":  chunks,
	})
}
