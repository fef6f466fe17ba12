package validation

import (
	"fmt"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// FileConstraints defines validation rules for file uploads
type FileConstraints struct {
	AllowedMimeTypes  map[string]bool
	AllowedExtensions map[string]bool
	MaxSize           int64
}

const invalidTypeReason = "Invalid file type. Only PDF, JPG, and PNG are allowed."

// ImageConstraints accepts JPEG and PNG attachments.
func ImageConstraints(maxSize int64) FileConstraints {
	return FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
		},
		AllowedExtensions: map[string]bool{
			".jpg":  true,
			".jpeg": true,
			".png":  true,
		},
		MaxSize: maxSize,
	}
}

// DocumentConstraints accepts PDF attachments.
func DocumentConstraints(maxSize int64) FileConstraints {
	return FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"application/pdf": true,
		},
		AllowedExtensions: map[string]bool{
			".pdf": true,
		},
		MaxSize: maxSize,
	}
}

// UploadConstraints is the attachment policy for form submissions.
func UploadConstraints(maxSize int64) []FileConstraints {
	return []FileConstraints{ImageConstraints(maxSize), DocumentConstraints(maxSize)}
}

// SizeError is the rejection for an attachment larger than maxSize.
func SizeError(maxSize int64) *FileError {
	return &FileError{Reason: "File size is too large. Maximum size is " + formatSize(maxSize)}
}

// ValidateFile validates a file upload against one or more constraint sets
// If multiple constraints are provided, file must match at least one (OR logic)
// Failures are returned as *FileError.
func ValidateFile(header *multipart.FileHeader, constraints ...FileConstraints) error {
	if len(constraints) == 0 {
		return fmt.Errorf("no file constraints provided")
	}

	var lastErr error
	for _, constraint := range constraints {
		err := validateAgainstConstraint(header, constraint)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	return lastErr
}

// validateAgainstConstraint validates a file against a single constraint set
func validateAgainstConstraint(header *multipart.FileHeader, constraints FileConstraints) error {
	// Check file size first (before reading content)
	if header.Size > constraints.MaxSize {
		return SizeError(constraints.MaxSize)
	}

	// The declared type must be allowed unless the client sent none
	declared := header.Header.Get("Content-Type")
	if declared != "" {
		mediaType, _, err := mime.ParseMediaType(declared)
		if err != nil || (mediaType != "application/octet-stream" && !constraints.AllowedMimeTypes[mediaType]) {
			return &FileError{Reason: invalidTypeReason}
		}
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !constraints.AllowedExtensions[ext] {
		return &FileError{Reason: invalidTypeReason}
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// Detect the actual type from magic numbers, the header can be faked
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	for allowed := range constraints.AllowedMimeTypes {
		if detected.Is(allowed) {
			return nil
		}
	}

	return &FileError{Reason: invalidTypeReason}
}

func formatSize(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	if n >= 1<<10 && n%(1<<10) == 0 {
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%d bytes", n)
}
