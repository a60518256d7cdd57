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

type CourseHandler struct {
	courseService *service.CourseService
}

func NewCourseHandler(courseService *service.CourseService) *CourseHandler {
	return &CourseHandler{courseService: courseService}
}

// List handles GET /courses?cursor=&limit=
// Returns the paginated course catalog with the viewer's enrollment flags.
func (h *CourseHandler) List(w http.ResponseWriter, r *http.Request) {
	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

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

	resp, err := h.courseService.List(r.Context(), cursor, limit, viewerID)
	if err != nil {
		log.Printf("[ERROR] List courses handler: err=%v", err)
		httputil.WriteInternalError(w, "Failed to list courses")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /courses/:id
func (h *CourseHandler) Get(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid course ID")
		return
	}

	var viewerID *int64
	if id, ok := middleware.GetUserIDFromContext(r.Context()); ok {
		viewerID = &id
	}

	course, err := h.courseService.GetByID(r.Context(), courseID, viewerID)
	if err != nil {
		if errors.Is(err, model.ErrCourseNotFound) {
			httputil.WriteNotFound(w, "Course not found")
			return
		}
		log.Printf("[ERROR] Get course handler: id=%d err=%v", courseID, err)
		httputil.WriteInternalError(w, "Failed to get course")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, course)
}

// Create handles POST /admin/courses
func (h *CourseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	course, err := h.courseService.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCourseExists):
			httputil.WriteConflict(w, "Course code already exists")
		case errors.Is(err, model.ErrCodeRequired), errors.Is(err, model.ErrTitleRequired):
			httputil.WriteBadRequest(w, err.Error())
		default:
			log.Printf("[ERROR] Create course handler: err=%v", err)
			httputil.WriteBadRequest(w, err.Error())
		}
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, course)
}

// Update handles PATCH /admin/courses/:id
func (h *CourseHandler) Update(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid course ID")
		return
	}

	var req model.UpdateCourseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	course, err := h.courseService.Update(r.Context(), courseID, &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCourseNotFound):
			httputil.WriteNotFound(w, "Course not found")
		case errors.Is(err, model.ErrTitleRequired):
			httputil.WriteBadRequest(w, "Course title is required")
		default:
			log.Printf("[ERROR] Update course handler: id=%d err=%v", courseID, err)
			httputil.WriteInternalError(w, "Failed to update course")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, course)
}

// Delete handles DELETE /admin/courses/:id
func (h *CourseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid course ID")
		return
	}

	if err := h.courseService.Delete(r.Context(), courseID); err != nil {
		if errors.Is(err, model.ErrCourseNotFound) {
			httputil.WriteNotFound(w, "Course not found")
			return
		}
		log.Printf("[ERROR] Delete course handler: id=%d err=%v", courseID, err)
		httputil.WriteInternalError(w, "Failed to delete course")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Course deleted"})
}

// Enroll handles POST /courses/:id/enroll
func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) {
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

	if err := h.courseService.Enroll(r.Context(), userID, courseID); err != nil {
		switch {
		case errors.Is(err, model.ErrCourseNotFound):
			httputil.WriteNotFound(w, "Course not found")
		case errors.Is(err, model.ErrAlreadyEnrolled):
			httputil.WriteConflict(w, "Already enrolled in this course")
		default:
			log.Printf("[ERROR] Enroll handler: user=%d course=%d err=%v", userID, courseID, err)
			httputil.WriteInternalError(w, "Failed to enroll")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Enrolled"})
}

// Unenroll handles DELETE /courses/:id/enroll
func (h *CourseHandler) Unenroll(w http.ResponseWriter, r *http.Request) {
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

	if err := h.courseService.Unenroll(r.Context(), userID, courseID); err != nil {
		switch {
		case errors.Is(err, model.ErrNotEnrolled):
			httputil.WriteConflict(w, "Not enrolled in this course")
		default:
			log.Printf("[ERROR] Unenroll handler: user=%d course=%d err=%v", userID, courseID, err)
			httputil.WriteInternalError(w, "Failed to unenroll")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Unenrolled"})
}

// Roster handles GET /courses/:id/students?cursor=&limit=
func (h *CourseHandler) Roster(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid course ID")
		return
	}

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

	resp, err := h.courseService.GetRoster(r.Context(), courseID, cursor, limit)
	if err != nil {
		if errors.Is(err, model.ErrCourseNotFound) {
			httputil.WriteNotFound(w, "Course not found")
			return
		}
		log.Printf("[ERROR] Roster handler: course=%d err=%v", courseID, err)
		httputil.WriteInternalError(w, "Failed to get roster")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}
