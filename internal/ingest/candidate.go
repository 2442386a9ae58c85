// Package ingest validates user-selected documents and uploads them one at a
// time, collecting the successfully stored ones for display.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// OpenFunc returns the raw payload of a candidate.
type OpenFunc func() (io.ReadCloser, error)

// Candidate is one file the user selected or dropped. It is consumed by a
// single batch and never stored.
type Candidate struct {
	Name      string
	Size      int64
	MediaType string
	open      OpenFunc
}

// NewCandidate builds a candidate around an arbitrary payload opener.
func NewCandidate(name, mediaType string, size int64, open OpenFunc) Candidate {
	return Candidate{Name: name, Size: size, MediaType: mediaType, open: open}
}

// CandidateFromBytes wraps an in-memory payload.
func CandidateFromBytes(name, mediaType string, data []byte) Candidate {
	return NewCandidate(name, mediaType, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	})
}

// CandidateFromPath stats a local file. The media type is derived from the
// extension only, the way a browser file picker reports it, so it may be empty.
func CandidateFromPath(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("ingest: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Candidate{}, fmt.Errorf("ingest: %s is a directory", path)
	}
	name := filepath.Base(path)
	return NewCandidate(name, mediaTypeForName(name), info.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

// Open returns the candidate payload.
func (c Candidate) Open() (io.ReadCloser, error) {
	if c.open == nil {
		return nil, fmt.Errorf("ingest: %s has no payload", c.Name)
	}
	return c.open()
}

func mediaTypeForName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	if known, ok := extensionMediaTypes[ext]; ok {
		return known
	}
	return mime.TypeByExtension(ext)
}

var extensionMediaTypes = map[string]string{
	".pdf":  mediaTypePDF,
	".doc":  mediaTypeDoc,
	".docx": mediaTypeDocx,
	".txt":  mediaTypeText,
}
