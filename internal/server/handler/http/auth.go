// Package http provides the snapshot server's HTTP handlers: registration
// that issues client certificates, certificate-based login, and vault
// snapshot sync.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/atinyakov/auther/internal/certgen"
	"github.com/atinyakov/auther/internal/service"
)

// AuthService defines the interface for authentication operations
// required by the HTTP handlers.
type AuthService interface {
	// UserExists checks whether a user with the given login exists.
	UserExists(context.Context, string) (bool, error)
	// RegisterUser registers a new user with the given login.
	RegisterUser(context.Context, string) error
}

// AuthHandler handles HTTP requests for user registration and login.
type AuthHandler struct {
	AuthService AuthService
	// CA signs the client certificates handed out on registration.
	CA  *certgen.Authority
	Log *zap.Logger
}

// RegisterRequest represents the JSON payload for user registration.
type RegisterRequest struct {
	Login string `json:"login"`
}

// RegisterResponse carries the PEM-encoded client certificate and key.
type RegisterResponse struct {
	Cert string `json:"cert"`
	Key  string `json:"key"`
}

func (h *AuthHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

// Register handles user registration requests.
// It expects a JSON body with a non-empty "login" field. A new user gets a
// client certificate signed by the CA with the login as Common Name.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Login == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	exists, err := h.AuthService.UserExists(r.Context(), req.Login)
	if err != nil {
		h.logger().Error("user lookup failed", zap.String("login", req.Login), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if exists {
		http.Error(w, "user already exists", http.StatusConflict)
		return
	}

	if h.CA == nil {
		http.Error(w, "failed to load CA", http.StatusInternalServerError)
		return
	}
	certPEM, keyPEM, err := h.CA.GenerateUserCertificate(req.Login)
	if err != nil {
		h.logger().Error("certificate generation failed", zap.String("login", req.Login), zap.Error(err))
		http.Error(w, "failed to generate certificate", http.StatusInternalServerError)
		return
	}

	if err := h.AuthService.RegisterUser(r.Context(), req.Login); err != nil {
		if errors.Is(err, service.ErrInvalidLogin) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger().Error("user registration failed", zap.String("login", req.Login), zap.Error(err))
		http.Error(w, "failed to save user", http.StatusInternalServerError)
		return
	}

	h.logger().Info("user registered", zap.String("login", req.Login))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RegisterResponse{Cert: string(certPEM), Key: string(keyPEM)})
}

// Login handles certificate-based login requests.
// The CommonName from the client certificate is used as the login.
// If the user exists, it returns a JSON status "ok" and the username.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
		http.Error(w, "client certificate required", http.StatusUnauthorized)
		return
	}
	login := r.TLS.PeerCertificates[0].Subject.CommonName

	exists, err := h.AuthService.UserExists(r.Context(), login)
	if err != nil {
		h.logger().Error("user lookup failed", zap.String("login", login), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !exists {
		http.Error(w, "user not found", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "ok",
		"user":   login,
	})
}
