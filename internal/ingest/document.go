package ingest

import (
	"bytes"
	"fmt"
	"math"
	"time"

	"github.com/ledongthuc/pdf"
)

// UploadedAtLayout renders the upload wall-clock time like a locale time string.
const UploadedAtLayout = "3:04:05 PM"

// UploadedDocument is a document the backend accepted during this session.
type UploadedDocument struct {
	Name            string
	SizeKiB         float64
	UploadedAtLabel string
	// Pages is the PDF page count, 0 when unknown or not a PDF.
	Pages int
}

// SizeLabel formats the size the way the document list shows it.
func (d UploadedDocument) SizeLabel() string {
	return fmt.Sprintf("%.2fKB", d.SizeKiB)
}

// Meta is the one-line summary under the document name.
func (d UploadedDocument) Meta() string {
	meta := fmt.Sprintf("%s • %s", d.SizeLabel(), d.UploadedAtLabel)
	if d.Pages > 0 {
		meta += fmt.Sprintf(" • %d page(s)", d.Pages)
	}
	return meta
}

func newUploadedDocument(c Candidate, at time.Time, payload []byte) UploadedDocument {
	doc := UploadedDocument{
		Name:            c.Name,
		SizeKiB:         toKiB(c.Size),
		UploadedAtLabel: at.Format(UploadedAtLayout),
	}
	if isPDF(c) {
		doc.Pages = pdfPageCount(payload)
	}
	return doc
}

func toKiB(size int64) float64 {
	return math.Round(float64(size)/1024*100) / 100
}

// pdfPageCount is best effort; malformed files report 0.
func pdfPageCount(payload []byte) (pages int) {
	if len(payload) == 0 {
		return 0
	}
	defer func() {
		if recover() != nil {
			pages = 0
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return 0
	}
	return reader.NumPage()
}
