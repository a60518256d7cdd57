package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"studenthub/internal/httputil"
	"studenthub/internal/metrics"
	"studenthub/internal/model"
	"studenthub/internal/realtime"
	"studenthub/internal/service"
	"studenthub/internal/transport/http/middleware"
)

type CommentHandler struct {
	commentService *service.CommentService
	hub            *realtime.Hub
}

func NewCommentHandler(commentService *service.CommentService, hub *realtime.Hub) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		hub:            hub,
	}
}

// GetThread handles GET /courses/:id/comments
// Returns the full comment tree plus the viewer's collapsed-thread state.
func (h *CommentHandler) GetThread(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid course ID")
		return
	}

	resp, err := h.commentService.GetThread(r.Context(), courseID, userID)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCourseNotFound):
			httputil.WriteNotFound(w, "Course not found")
		default:
			log.Printf("[ERROR] Get thread handler: user=%d course=%d err=%v", userID, courseID, err)
			httputil.WriteInternalError(w, "Failed to load comments")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Create handles POST /courses/:id/comments
// Creates a comment or reply on a course page.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid course ID")
		return
	}

	var req model.CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	comment, err := h.commentService.Create(r.Context(), courseID, userID, req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCourseNotFound):
			httputil.WriteNotFound(w, "Course not found")
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Parent comment not found")
		case errors.Is(err, model.ErrParentWrongCourse):
			httputil.WriteBadRequest(w, "Parent comment does not belong to this course")
		case errors.Is(err, model.ErrNotEnrolled):
			httputil.WriteForbidden(w, "Enroll in the course to comment")
		case errors.Is(err, model.ErrContentRequired):
			httputil.WriteBadRequest(w, "Comment content is required")
		case errors.Is(err, model.ErrContentTooLong):
			httputil.WriteBadRequest(w, "Comment content too long")
		default:
			log.Printf("[ERROR] Create comment handler: user=%d course=%d err=%v", userID, courseID, err)
			httputil.WriteInternalError(w, "Failed to create comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, comment)
}

// Delete handles DELETE /courses/:id/comments/:commentId
// Deletes a comment and its reply subtree (author or admin only).
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	isAdmin := middleware.GetIsAdminFromContext(r.Context())

	commentID, err := strconv.ParseInt(chi.URLParam(r, "commentId"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid comment ID")
		return
	}

	if err := h.commentService.Delete(r.Context(), commentID, userID, isAdmin); err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		case errors.Is(err, model.ErrNotCommentAuthor):
			httputil.WriteForbidden(w, "Only the author or an admin can delete this comment")
		default:
			log.Printf("[ERROR] Delete comment handler: user=%d comment=%d err=%v", userID, commentID, err)
			httputil.WriteInternalError(w, "Failed to delete comment")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Comment deleted"})
}

// collapseRequest is the body for PUT /courses/:id/comments/:commentId/collapse
type collapseRequest struct {
	Collapsed bool `json:"collapsed"`
}

// SetCollapsed handles PUT /courses/:id/comments/:commentId/collapse
// Persists whether the viewer has a thread's replies hidden.
func (h *CommentHandler) SetCollapsed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid course ID")
		return
	}
	commentID, err := strconv.ParseInt(chi.URLParam(r, "commentId"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid comment ID")
		return
	}

	var req collapseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := h.commentService.SetCollapsed(r.Context(), courseID, userID, commentID, req.Collapsed); err != nil {
		switch {
		case errors.Is(err, model.ErrCommentNotFound):
			httputil.WriteNotFound(w, "Comment not found")
		default:
			log.Printf("[ERROR] Set collapsed handler: user=%d comment=%d err=%v", userID, commentID, err)
			httputil.WriteInternalError(w, "Failed to save thread state")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Thread state saved"})
}

// Live handles GET /courses/:id/comments/live
// Streams comment inserts and deletes for the course over Server-Sent Events
// until the client disconnects.
func (h *CommentHandler) Live(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.GetUserIDFromContext(r.Context()); !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid course ID")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteInternalError(w, "Streaming not supported")
		return
	}

	events, cancel, err := h.hub.Subscribe(r.Context(), courseID)
	if err != nil {
		log.Printf("[ERROR] Live handler subscribe: course=%d err=%v", courseID, err)
		httputil.WriteInternalError(w, "Failed to open live feed")
		return
	}
	defer cancel()

	metrics.LiveSubscriberOpened()
	defer metrics.LiveSubscriberClosed()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}
