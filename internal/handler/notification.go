package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"studenthub/internal/httputil"
	"studenthub/internal/model"
	"studenthub/internal/service"
	"studenthub/internal/transport/http/middleware"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// List handles GET /notifications?limit=
// Replies come back individually; course activity comes back aggregated.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil {
			limit = parsed
		}
	}

	resp, err := h.notificationService.GetNotifications(r.Context(), userID, limit)
	if err != nil {
		log.Printf("[ERROR] List notifications handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to list notifications")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// MarkRead handles POST /notifications/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if len(req.NotificationIDs) == 0 {
		httputil.WriteBadRequest(w, "notification_ids is required")
		return
	}

	if err := h.notificationService.MarkAsRead(r.Context(), userID, req.NotificationIDs); err != nil {
		log.Printf("[ERROR] Mark read handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to mark notifications read")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Notifications marked read"})
}

// MarkAllRead handles POST /notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	if err := h.notificationService.MarkAllAsRead(r.Context(), userID); err != nil {
		log.Printf("[ERROR] Mark all read handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to mark notifications read")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "All notifications marked read"})
}

// UnreadCount handles GET /notifications/unread-count
// Cheap endpoint for the badge; polled by clients.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	count, err := h.notificationService.GetUnreadCount(r.Context(), userID)
	if err != nil {
		log.Printf("[ERROR] Unread count handler: user=%d err=%v", userID, err)
		httputil.WriteInternalError(w, "Failed to get unread count")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]int{"unread_count": count})
}
