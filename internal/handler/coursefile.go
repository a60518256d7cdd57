package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"studenthub/internal/httputil"
	"studenthub/internal/model"
	"studenthub/internal/service"
	"studenthub/internal/transport/http/middleware"
)

type CourseFileHandler struct {
	fileService  *service.CourseFileService
	mediaService *service.MediaService
}

func NewCourseFileHandler(fileService *service.CourseFileService, mediaService *service.MediaService) *CourseFileHandler {
	return &CourseFileHandler{
		fileService:  fileService,
		mediaService: mediaService,
	}
}

// Upload handles POST /courses/:id/files/upload
// Proxied multipart upload: bytes go through the server to R2, then the
// metadata row is registered in one request.
func (h *CourseFileHandler) Upload(w http.ResponseWriter, r *http.Request) {
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

	maxFormSize := int64(model.MaxCourseFileSize) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			httputil.WriteBadRequest(w, "Content-Type must be multipart/form-data")
			return
		}
		if strings.Contains(err.Error(), "request body too large") {
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "File exceeds 20MB limit")
			return
		}
		httputil.WriteBadRequest(w, "Invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.WriteBadRequest(w, "File is required")
		return
	}
	defer file.Close()

	upload, contentType, err := h.mediaService.UploadCourseFile(r.Context(), file, header)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "File exceeds 20MB limit")
		case errors.Is(err, model.ErrInvalidFileType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidFileType, "Unsupported file type")
		default:
			log.Printf("[ERROR] Upload course file handler: user=%d course=%d err=%v", userID, courseID, err)
			httputil.WriteInternalError(w, "Failed to upload file")
		}
		return
	}

	courseFile, err := h.fileService.Register(r.Context(), courseID, userID, header.Filename, upload.URL, upload.Key, contentType, header.Size)
	if err != nil {
		// The object is already in the bucket; orphan cleanup is the
		// registration failure path, not the client's problem.
		h.writeRegisterError(w, userID, courseID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, courseFile)
}

// Presign handles POST /courses/:id/files/presign
// Returns a short-lived direct-to-bucket upload URL for large files.
func (h *CourseFileHandler) Presign(w http.ResponseWriter, r *http.Request) {
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

	var req model.PresignFileUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	resp, err := h.mediaService.PresignCourseFileUpload(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrFileTooLarge):
			httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "File exceeds 20MB limit")
		case errors.Is(err, model.ErrInvalidFileType):
			httputil.WriteBadRequestWithCode(w, model.CodeInvalidFileType, "Unsupported file type")
		default:
			log.Printf("[ERROR] Presign handler: user=%d course=%d err=%v", userID, courseID, err)
			httputil.WriteBadRequest(w, err.Error())
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// registerRequest is the body for POST /courses/:id/files, completing a
// presigned upload by registering its metadata.
type registerRequest struct {
	FileName    string `json:"file_name"`
	FileURL     string `json:"file_url"`
	Key         string `json:"key"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

// Register handles POST /courses/:id/files
func (h *CourseFileHandler) Register(w http.ResponseWriter, r *http.Request) {
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

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.FileName == "" || req.FileURL == "" || req.Key == "" {
		httputil.WriteBadRequest(w, "file_name, file_url and key are required")
		return
	}

	courseFile, err := h.fileService.Register(r.Context(), courseID, userID, req.FileName, req.FileURL, req.Key, req.ContentType, req.SizeBytes)
	if err != nil {
		h.writeRegisterError(w, userID, courseID, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, courseFile)
}

// List handles GET /courses/:id/files
func (h *CourseFileHandler) List(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid course ID")
		return
	}

	resp, err := h.fileService.List(r.Context(), courseID)
	if err != nil {
		if errors.Is(err, model.ErrCourseNotFound) {
			httputil.WriteNotFound(w, "Course not found")
			return
		}
		log.Printf("[ERROR] List course files handler: course=%d err=%v", courseID, err)
		httputil.WriteInternalError(w, "Failed to list files")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /courses/:id/files/:fileId
func (h *CourseFileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	isAdmin := middleware.GetIsAdminFromContext(r.Context())

	fileID, err := strconv.ParseInt(chi.URLParam(r, "fileId"), 10, 64)
	if err != nil {
		httputil.WriteBadRequest(w, "Invalid file ID")
		return
	}

	if err := h.fileService.Delete(r.Context(), fileID, userID, isAdmin); err != nil {
		switch {
		case errors.Is(err, model.ErrFileNotFound):
			httputil.WriteNotFound(w, "File not found")
		case errors.Is(err, model.ErrNotFileUploader):
			httputil.WriteForbidden(w, "Only the uploader or an admin can delete this file")
		default:
			log.Printf("[ERROR] Delete course file handler: user=%d file=%d err=%v", userID, fileID, err)
			httputil.WriteInternalError(w, "Failed to delete file")
		}
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "File deleted"})
}

func (h *CourseFileHandler) writeRegisterError(w http.ResponseWriter, userID, courseID int64, err error) {
	switch {
	case errors.Is(err, model.ErrCourseNotFound):
		httputil.WriteNotFound(w, "Course not found")
	case errors.Is(err, model.ErrNotEnrolled):
		httputil.WriteForbidden(w, "Enroll in the course to upload files")
	default:
		log.Printf("[ERROR] Register course file handler: user=%d course=%d err=%v", userID, courseID, err)
		httputil.WriteInternalError(w, "Failed to register file")
	}
}
