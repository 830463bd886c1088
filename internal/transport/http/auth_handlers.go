package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"quizforge-service/internal/auth"
	"quizforge-service/internal/domain"
)

// AuthHandlers exposes the identity provider over plain JSON endpoints.
type AuthHandlers struct {
	auth *auth.Service
}

func NewAuthHandlers(authSvc *auth.Service) *AuthHandlers {
	return &AuthHandlers{auth: authSvc}
}

type credentialsRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

type tokenResponse struct {
	AccessToken string      `json:"accessToken"`
	User        domain.User `json:"user"`
}

func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	token, user, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrEmailTaken):
			writeError(w, http.StatusConflict, err.Error())
		case errors.Is(err, domain.ErrInvalidCredentials):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "sign up failed")
		}
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{AccessToken: token, User: user})
}

func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	token, user, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "sign in failed")
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, User: user})
}

// Me echoes the verified identity so clients can restore a signed-in state
// from a stored token.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"userId":      claims.Subject,
		"displayName": claims.Name,
	})
}

func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		writeError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	if err := h.auth.SignOut(r.Context(), strings.TrimPrefix(header, "Bearer ")); err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorPayload{Message: message})
}
