package api

import (
	"errors"
	"net/http"

	"github.com/soulrag/soulrag-go/pkg/core"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	user, err := s.auth.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrEmailTaken):
			s.respondError(w, http.StatusBadRequest, "email does not work or already registered")
		case errors.Is(err, core.ErrInvalidInput):
			s.respondError(w, http.StatusBadRequest, "email and password are required")
		default:
			s.logger.Error("register failed", "err", err)
			s.respondError(w, http.StatusInternalServerError, "registration failed")
		}
		return
	}

	s.respondJSON(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		s.respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}
