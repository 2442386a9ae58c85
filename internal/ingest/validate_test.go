package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsKnownExtensionsRegardlessOfMediaType(t *testing.T) {
	for _, name := range []string{"a.pdf", "B.DOC", "c.Docx", "notes.txt"} {
		for _, mediaType := range []string{"", "application/octet-stream", "image/png"} {
			result := Validate(NewCandidate(name, mediaType, 1024, nil))
			require.Truef(t, result.Valid, "%s with %q should be valid", name, mediaType)
			require.Empty(t, result.Error)
		}
	}
}

func TestValidateAcceptsAllowedMediaTypeWithoutExtension(t *testing.T) {
	for _, mediaType := range []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"text/plain",
		"text/plain; charset=utf-8",
	} {
		result := Validate(NewCandidate("README", mediaType, 10, nil))
		require.Truef(t, result.Valid, "media type %q should be valid", mediaType)
	}
}

func TestValidateRejectsUnknownType(t *testing.T) {
	result := Validate(NewCandidate("b.exe", "application/x-msdownload", 1<<20, nil))
	require.False(t, result.Valid)
	require.Equal(t, ErrInvalidType, result.Error)

	result = Validate(NewCandidate("archive.pdf.zip", "", 10, nil))
	require.Equal(t, ErrInvalidType, result.Error)
}

func TestValidateSizeCeilingIsInclusive(t *testing.T) {
	require.True(t, Validate(NewCandidate("max.pdf", "application/pdf", MaxUploadBytes, nil)).Valid)

	over := Validate(NewCandidate("over.pdf", "application/pdf", MaxUploadBytes+1, nil))
	require.False(t, over.Valid)
	require.Equal(t, ErrSizeExceeded, over.Error)
}

func TestValidateTypeCheckedBeforeSize(t *testing.T) {
	result := Validate(NewCandidate("huge.exe", "", MaxUploadBytes*2, nil))
	require.Equal(t, ErrInvalidType, result.Error)
}

func TestCandidateFromPathDerivesMediaTypeFromExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Policy.PDF")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	c, err := CandidateFromPath(path)
	require.NoError(t, err)
	require.Equal(t, "Policy.PDF", c.Name)
	require.Equal(t, int64(8), c.Size)
	require.Equal(t, "application/pdf", c.MediaType)

	_, err = CandidateFromPath(dir)
	require.Error(t, err)
	_, err = CandidateFromPath(filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
}
