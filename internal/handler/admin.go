package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studenthub/internal/httputil"
	"studenthub/internal/model"
	"studenthub/internal/service"
	"studenthub/internal/transport/http/middleware"
)

// AdminHandler serves the dashboard's account management endpoints. Routes are
// mounted behind RequireAdmin; course management lives on CourseHandler.
type AdminHandler struct {
	adminService *service.AdminService
}

func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// ListUsers handles GET /admin/users?cursor=&limit=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	users, nextCursor, err := h.adminService.ListUsers(r.Context(), cursor, limit)
	if err != nil {
		log.Printf("[ERROR] Admin list users handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to list users")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users":       users,
		"next_cursor": nextCursor,
	})
}

// UpdateUser handles PATCH /admin/users/:id
// Toggles the admin role or deactivates an account.
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid user ID")
		return
	}

	var req model.AdminUpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.IsAdmin == nil && req.IsActive == nil {
		httputil.WriteBadRequest(w, "Nothing to update")
		return
	}

	// Admins cannot strip or deactivate their own account; locking out the
	// last admin is a support ticket nobody wants.
	if actorID, ok := middleware.GetUserIDFromContext(r.Context()); ok && actorID == userID {
		httputil.WriteForbidden(w, "Cannot modify your own account")
		return
	}

	user, err := h.adminService.UpdateUser(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] Admin update user handler: id=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to update user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}
