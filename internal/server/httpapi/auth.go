package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/fintrack/internal/api"
	"github.com/dmitrijs2005/fintrack/internal/common"
)

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req api.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	user, err := s.users.Register(r.Context(), req.Username, req.Salt, req.Verifier)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.RegisterResponse{UserID: user.ID})
}

func (s *Server) salt(w http.ResponseWriter, r *http.Request) {
	var req api.SaltRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	salt, err := s.users.GetSalt(r.Context(), req.Username)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.SaltResponse{Salt: salt})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req api.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}

	pair, err := s.users.Login(r.Context(), req.Username, req.Verifier)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.LoginResponse{
		UserID:       pair.UserID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req api.RefreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	if req.RefreshToken == "" {
		s.writeError(r.Context(), w, common.ErrUnauthorized)
		return
	}

	pair, err := s.users.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		s.writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.RefreshResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.PingResponse{Status: "ok", Time: s.now().UTC()})
}
