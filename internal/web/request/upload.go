package request

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// UploadConfig configures file upload handling
type UploadConfig struct {
	MaxFileSize  int64    // Maximum size per file (in bytes)
	AllowedTypes []string // Allowed MIME types or prefixes (empty = allow all)
}

// UploadedFile is a single multipart file read fully into memory
type UploadedFile struct {
	Filename    string // Original filename
	Size        int64  // File size in bytes
	ContentType string // Declared MIME type
	Data        []byte
}

// FileUploader reads uploaded files
type FileUploader struct {
	config UploadConfig
}

// NewFileUploader creates a new file uploader with config
func NewFileUploader(config UploadConfig) *FileUploader {
	return &FileUploader{config: config}
}

// GetFile reads the file in fieldName. The whole body is capped at
// MaxFileSize plus room for the multipart envelope.
func (u *FileUploader) GetFile(w http.ResponseWriter, r *http.Request, fieldName string) (*UploadedFile, error) {
	if r.MultipartForm == nil {
		r.Body = http.MaxBytesReader(w, r.Body, u.config.MaxFileSize+(64<<10))
		if err := r.ParseMultipartForm(u.config.MaxFileSize); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				return nil, fmt.Errorf("%w: file size exceeds maximum of %d bytes", ErrInvalidBody, u.config.MaxFileSize)
			}
			return nil, fmt.Errorf("%w: failed to parse multipart form: %v", ErrInvalidBody, err)
		}
	}

	file, header, err := r.FormFile(fieldName)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, fmt.Errorf("%w: no file uploaded for field %s", ErrInvalidBody, fieldName)
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	defer file.Close()

	if err := u.validateFile(header); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(file, u.config.MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(data)) > u.config.MaxFileSize {
		return nil, fmt.Errorf("%w: file size exceeds maximum of %d bytes", ErrInvalidBody, u.config.MaxFileSize)
	}

	return &UploadedFile{
		Filename:    header.Filename,
		Size:        int64(len(data)),
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (u *FileUploader) validateFile(header *multipart.FileHeader) error {
	if header.Size > u.config.MaxFileSize {
		return fmt.Errorf("%w: file size %d exceeds maximum of %d bytes", ErrInvalidBody, header.Size, u.config.MaxFileSize)
	}
	if header.Size == 0 {
		return fmt.Errorf("%w: file is empty", ErrInvalidBody)
	}

	if len(u.config.AllowedTypes) > 0 {
		contentType := header.Header.Get("Content-Type")
		if !isTypeAllowed(contentType, u.config.AllowedTypes) {
			return fmt.Errorf("%w: file content type %q not allowed", ErrInvalidBody, contentType)
		}
	}
	return nil
}

// isTypeAllowed accepts exact matches and prefixes ("image/" matches "image/jpeg")
func isTypeAllowed(contentType string, allowedTypes []string) bool {
	for _, allowed := range allowedTypes {
		if contentType == allowed || strings.HasPrefix(contentType, allowed) {
			return true
		}
	}
	return false
}
