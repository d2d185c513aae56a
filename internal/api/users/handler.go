// Package users provides HTTP handlers for user management.
package users

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/fleetwatch/internal/api/auth"
	"github.com/good-yellow-bee/fleetwatch/internal/api/middleware"
	"github.com/good-yellow-bee/fleetwatch/internal/api/respond"
	"github.com/good-yellow-bee/fleetwatch/internal/models"
	"github.com/good-yellow-bee/fleetwatch/internal/storage"
)

// Handler handles user management endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new user handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// CreateRequest is the request body for creating a user.
type CreateRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// UpdateRequest is the request body for updating a user.
type UpdateRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Create handles user creation (admin only).
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "name, email and password required")
		return
	}

	if err := auth.ValidatePasswordOrError(req.Password); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("create user: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	user := models.NewUser(req.Name, req.Email, models.ParseRole(req.Role))
	user.PasswordHash = hash

	if err := h.storage.Users().Create(r.Context(), user); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			respond.Error(w, http.StatusConflict, respond.CodeConflict, "a user with this email already exists")
			return
		}
		log.Printf("create user: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.Created(w, user)
}

// List handles user listing (admin only).
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.storage.Users().List(r.Context())
	if err != nil {
		log.Printf("list users: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.OK(w, list)
}

// GetByID handles fetching a single user (admin only).
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	user, err := h.storage.Users().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get user %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}
	if user == nil {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "user not found")
		return
	}

	respond.OK(w, user)
}

// GetCurrentUser returns the authenticated user's own record.
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	id := middleware.GetUserID(r.Context())

	user, err := h.storage.Users().GetByID(r.Context(), id)
	if err != nil {
		log.Printf("get current user %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}
	if user == nil {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "user not found")
		return
	}

	respond.OK(w, user)
}

// ChangePassword lets the authenticated user change their own password.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	id := middleware.GetUserID(ctx)

	user, err := h.storage.Users().GetByID(ctx, id)
	if err != nil || user == nil {
		log.Printf("change password: get user %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "current password is incorrect")
		return
	}

	if err := auth.ValidatePasswordOrError(req.NewPassword); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeValidationFailed, err.Error())
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		log.Printf("change password: %v", err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	user.PasswordHash = hash
	now := time.Now().UTC()
	user.UpdatedAt = &now

	if err := h.storage.Users().Update(ctx, user); err != nil {
		log.Printf("change password: update user %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.NoContent(w)
}

// Update handles user updates (admin only).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	user, err := h.storage.Users().GetByID(ctx, id)
	if err != nil {
		log.Printf("get user %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}
	if user == nil {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "user not found")
		return
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		user.Role = models.ParseRole(*req.Role)
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	now := time.Now().UTC()
	user.UpdatedAt = &now

	if err := h.storage.Users().Update(ctx, user); err != nil {
		log.Printf("update user %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.OK(w, user)
}

// Delete deactivates a user (admin only). Event history references users, so
// rows are never removed.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if id == middleware.GetUserID(r.Context()) {
		respond.Error(w, http.StatusBadRequest, respond.CodeBadRequest, "cannot deactivate your own account")
		return
	}

	ctx := r.Context()
	user, err := h.storage.Users().GetByID(ctx, id)
	if err != nil {
		log.Printf("get user %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}
	if user == nil {
		respond.Error(w, http.StatusNotFound, respond.CodeNotFound, "user not found")
		return
	}

	if err := h.storage.Users().SetActive(ctx, id, false); err != nil {
		log.Printf("deactivate user %s: %v", id, err)
		respond.Error(w, http.StatusInternalServerError, respond.CodeInternalError, "internal server error")
		return
	}

	respond.NoContent(w)
}
