package ingest

import (
	"mime"
	"path/filepath"
	"strings"
)

// MaxUploadBytes is the inclusive per-file size ceiling (10 MiB).
const MaxUploadBytes int64 = 10 * 1024 * 1024

const (
	mediaTypePDF  = "application/pdf"
	mediaTypeDoc  = "application/msword"
	mediaTypeDocx = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mediaTypeText = "text/plain"
)

// Validation failure reasons shown to the user.
const (
	ErrInvalidType  = "Invalid file type. Supported: PDF, DOC, DOCX, TXT"
	ErrSizeExceeded = "File size exceeds 10MB limit"
)

var allowedMediaTypes = map[string]struct{}{
	mediaTypePDF:  {},
	mediaTypeDoc:  {},
	mediaTypeDocx: {},
	mediaTypeText: {},
}

var allowedExtsLower = map[string]struct{}{
	".pdf": {}, ".doc": {}, ".docx": {}, ".txt": {},
}

// ValidationResult is the outcome of Validate. Error is empty when Valid.
type ValidationResult struct {
	Valid bool
	Error string
}

// Validate checks a candidate's type and size. The type passes when either
// the reported media type or the file extension is on the allow-list.
func Validate(c Candidate) ValidationResult {
	if !acceptedMediaType(c.MediaType) && !acceptedExtension(c.Name) {
		return ValidationResult{Error: ErrInvalidType}
	}
	if c.Size > MaxUploadBytes {
		return ValidationResult{Error: ErrSizeExceeded}
	}
	return ValidationResult{Valid: true}
}

func acceptedMediaType(raw string) bool {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return false
	}
	_, ok := allowedMediaTypes[strings.ToLower(mediaType)]
	return ok
}

func acceptedExtension(name string) bool {
	_, ok := allowedExtsLower[strings.ToLower(filepath.Ext(name))]
	return ok
}

func isPDF(c Candidate) bool {
	if strings.EqualFold(filepath.Ext(c.Name), ".pdf") {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(c.MediaType)
	return err == nil && strings.EqualFold(mediaType, mediaTypePDF)
}
