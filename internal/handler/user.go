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

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GetProfile handles GET /students/:id
// Returns a student's public profile.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid student ID")
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "Student not found")
			return
		}
		log.Printf("[ERROR] Get profile handler: id=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, profile)
}

// UpdateProfile handles PATCH /me
// Applies a partial profile update for the authenticated student.
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			httputil.WriteNotFound(w, "User not found")
			return
		}
		log.Printf("[ERROR] Update profile handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to update profile")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// Directory handles GET /students?q=&cursor=&limit=
// Lists students alphabetically, optionally filtered by a username prefix.
func (h *UserHandler) Directory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

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

	resp, err := h.userService.Directory(r.Context(), query, cursor, limit)
	if err != nil {
		log.Printf("[ERROR] Directory handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to list students")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
