package api

import (
	"net/http"

	"github.com/google/uuid"

	identity "github.com/felixgeelhaar/tempo/internal/identity/domain"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

func newUserResponse(u *identity.User) userResponse {
	return userResponse{ID: u.ID(), Email: u.Email().String()}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		s.writeError(w, r, badRequest("email and password are required"))
		return
	}

	user, err := s.deps.Auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User registered successfully",
		"user":    newUserResponse(user),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		s.writeError(w, r, badRequest("email and password are required"))
		return
	}

	session, err := s.deps.Auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": session.Token,
		"token_type":   "bearer",
		"expires_at":   session.ExpiresAt.UTC(),
		"user":         newUserResponse(session.User),
	})
}

// handleLogout exists for client symmetry. Tokens are stateless and expire
// on their own.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "Logout handled client-side")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.deps.Auth.Me(r.Context(), currentUser(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newUserResponse(user))
}
