package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"studymate/internal/auth"
)

// Authenticator checks admin credentials.
type Authenticator interface {
	Login(username, password string) (string, error)
}

// AuthHandler serves the admin login.
type AuthHandler struct {
	Auth Authenticator
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

// Login handles POST /admin/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
		"ip":     r.RemoteAddr,
	})

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.WithError(err).Warn("login: invalid request body")
		respondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	token, err := h.Auth.Login(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondError(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		log.WithError(err).Error("login: failed to issue token")
		respondError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{AccessToken: token})
}
