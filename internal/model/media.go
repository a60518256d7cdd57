package model

import (
	"errors"
	"time"
)

const (
	MaxAvatarSizeBytes = 5 * 1024 * 1024 // 5MB limit
	AvatarWidth        = 200
	AvatarHeight       = 200
	AvatarFolder       = "avatars"
	AvatarExt          = ".jpg"
	AvatarCacheControl = "public, max-age=31536000" // 1 year
)

// Supported image content types for avatar upload validation
const (
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
	ContentTypeGIF  = "image/gif"
	ContentTypeWebP = "image/webp"
)

var allowedImageTypes = map[string]struct{}{
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

// Course file constraints
const (
	MaxCourseFileSize = 20 * 1024 * 1024 // 20MB per file
	CourseFileFolder  = "course-files"
	MaxFileNameLength = 255
)

// Supported content types for course file uploads. Lecture notes, slides,
// problem sets and archives; executables are deliberately not accepted.
var allowedFileTypes = map[string]struct{}{
	"application/pdf":    {},
	"application/zip":    {},
	"text/plain":         {},
	"text/markdown":      {},
	"text/csv":           {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
	"application/vnd.ms-powerpoint":                                           {},
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": {},
	ContentTypeJPEG: {},
	ContentTypePNG:  {},
	ContentTypeGIF:  {},
	ContentTypeWebP: {},
}

// Error codes for HTTP responses
const (
	CodeFileTooLarge     = "FILE_TOO_LARGE"
	CodeInvalidImageType = "INVALID_IMAGE_TYPE"
	CodeInvalidFileType  = "INVALID_FILE_TYPE"
)

// Domain errors for media operations
var (
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidImageType = errors.New("invalid image type")
	ErrInvalidFileType  = errors.New("invalid file type")
	ErrFileNotFound     = errors.New("file not found")
	ErrNotFileUploader  = errors.New("not the uploader of this file")
)

// CourseFile represents a file attached to a course page.
type CourseFile struct {
	ID          int64        `db:"id" json:"id"`
	CourseID    int64        `db:"course_id" json:"course_id"`
	UserID      int64        `db:"user_id" json:"user_id"`
	FileName    string       `db:"file_name" json:"file_name"`
	FileURL     string       `db:"file_url" json:"file_url"`
	FileKey     string       `db:"file_key" json:"-"`
	ContentType string       `db:"content_type" json:"content_type"`
	SizeBytes   int64        `db:"size_bytes" json:"size_bytes"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	Uploader    *UserSummary `json:"uploader,omitempty"` // Joined field
}

// CourseFileListResponse is the file listing for a course page.
type CourseFileListResponse struct {
	Files []CourseFile `json:"files"`
}

// UploadResult represents the uploaded object location.
// URL is the public-facing URL (using the R2 public endpoint),
// Key is the object key inside the bucket (used for later deletes).
type UploadResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// PresignFileUploadRequest requests a presigned URL for uploading a course
// file directly to R2. Client uploads bytes to UploadURL, then registers the
// file with POST /courses/{id}/files using the returned key.
type PresignFileUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	FileSize    int64  `json:"file_size"` // Optional but recommended for validation
}

// PresignFileUploadResponse returns upload details for direct-to-R2 uploads.
type PresignFileUploadResponse struct {
	UploadURL  string `json:"upload_url"`
	PublicURL  string `json:"public_url"`
	Key        string `json:"key"`
	ExpiresInS int    `json:"expires_in"`
}

// IsAllowedImageType reports if the provided content type is a supported image
func IsAllowedImageType(contentType string) bool {
	_, ok := allowedImageTypes[contentType]
	return ok
}

// IsAllowedFileType reports if the provided content type is accepted for
// course file uploads
func IsAllowedFileType(contentType string) bool {
	_, ok := allowedFileTypes[contentType]
	return ok
}
