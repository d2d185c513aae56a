package auth

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/api/respond"
	"github.com/good-yellow-bee/fleetwatch/internal/metrics"
	"github.com/good-yellow-bee/fleetwatch/internal/storage"
)

// Handler handles authentication endpoints.
type Handler struct {
	storage      storage.Storage
	jwtService   *JWTService
	tokenService *TokenService
}

// NewHandler creates a new auth handler.
func NewHandler(store storage.Storage, jwt *JWTService, refreshTTL time.Duration) *Handler {
	return &Handler{
		storage:      store,
		jwtService:   jwt,
		tokenService: NewTokenService(store, refreshTTL),
	}
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// RefreshRequest is the request body for token refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// LogoutRequest is the request body for logout.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Login handles user login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "email and password required")
		return
	}

	ctx := r.Context()
	user, err := h.storage.Users().GetByEmail(ctx, req.Email)
	if err != nil {
		log.Printf("login error: get user: %v", err)
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}
	if user == nil || !user.Active {
		log.Printf("login failed: unknown or inactive account %s", req.Email)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid credentials")
		return
	}

	if !CheckPassword(user.PasswordHash, req.Password) {
		log.Printf("login failed: invalid password for %s", req.Email)
		metrics.LoginAttempts.WithLabelValues("failure").Inc()
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid credentials")
		return
	}

	accessToken, err := h.jwtService.GenerateToken(user)
	if err != nil {
		log.Printf("login error: generate access token: %v", err)
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	refreshToken, err := h.tokenService.CreateRefreshToken(ctx, user.ID)
	if err != nil {
		log.Printf("login error: generate refresh token: %v", err)
		metrics.LoginAttempts.WithLabelValues("error").Inc()
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	log.Printf("login success: %s", req.Email)
	metrics.LoginAttempts.WithLabelValues("success").Inc()

	respond.OK(w, &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    h.jwtService.TTLSeconds(),
		TokenType:    "Bearer",
	})
}

// Refresh handles token refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "refresh_token required")
		return
	}

	ctx := r.Context()

	user, err := h.tokenService.ValidateRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		log.Printf("refresh failed: %v", err)
		respond.Error(w, http.StatusUnauthorized, respond.CodeUnauthorized, "invalid or expired token")
		return
	}

	accessToken, err := h.jwtService.GenerateToken(user)
	if err != nil {
		log.Printf("refresh error: generate access token: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	// Rotate refresh token (revoke old, create new)
	newRefreshToken, err := h.tokenService.RotateRefreshToken(ctx, req.RefreshToken, user.ID)
	if err != nil {
		log.Printf("refresh error: rotate refresh token: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	log.Printf("token refresh success: %s", user.Email)

	respond.OK(w, &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		ExpiresIn:    h.jwtService.TTLSeconds(),
		TokenType:    "Bearer",
	})
}

// Logout handles user logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	var req LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid request body")
		return
	}

	if req.RefreshToken == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "refresh_token required")
		return
	}

	ctx := r.Context()

	if err := h.tokenService.RevokeRefreshToken(ctx, req.RefreshToken); err != nil {
		log.Printf("logout error: revoke token: %v", err)
		// Don't return error - token might already be revoked
	}

	respond.NoContent(w)
}
