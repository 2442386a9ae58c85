// Package session holds the per-run state of the compliance assistant and the
// transitions the controllers apply to it.
package session

import (
	"strings"
	"time"

	"github.com/kingrea/compliance-assistant/internal/ingest"
)

// ErrorClearDelay is how long an upload error stays visible after a batch
// in which at least one file succeeded. The clear belongs to the batch that
// scheduled it: once a newer batch has started, its error is left alone.
const ErrorClearDelay = 3 * time.Second

// DragKind identifies a drag-and-drop event on the drop target.
type DragKind int

const (
	DragEnter DragKind = iota
	DragOver
	DragLeave
	Drop
)

func (k DragKind) String() string {
	switch k {
	case DragEnter:
		return "dragenter"
	case DragOver:
		return "dragover"
	case DragLeave:
		return "dragleave"
	case Drop:
		return "drop"
	default:
		return "unknown"
	}
}

// State is everything the view renders. It lives for one program run and is
// never persisted. The zero value is an empty session.
type State struct {
	Documents   []ingest.UploadedDocument
	Uploading   bool
	UploadError string
	Question    string
	Answer      string
	Loading     bool
	DragActive  bool

	// batch counts started batches so a delayed clear from an older batch
	// cannot wipe the error of a newer one.
	batch    uint64
	accepted int
}

// BeginBatch marks the start of an upload batch and returns its token.
// It refuses empty batches and batches started while another is in flight.
func (s *State) BeginBatch(size int) (uint64, bool) {
	if size == 0 || s.Uploading {
		return 0, false
	}
	s.batch++
	s.accepted = 0
	s.Uploading = true
	s.UploadError = ""
	return s.batch, true
}

// RecordOutcome applies one file's result as soon as it is known. Accepted
// documents are appended; a failure replaces the shown error.
func (s *State) RecordOutcome(token uint64, o ingest.Outcome) {
	if token != s.batch || !s.Uploading {
		return
	}
	switch {
	case o.Failure != nil:
		s.UploadError = o.Failure.Message
	case o.Document != nil:
		s.Documents = append(s.Documents, *o.Document)
		s.accepted++
	}
}

// FinishBatch ends the in-flight window. It reports whether the upload error
// should be cleared after ErrorClearDelay, which is when any file of the
// batch was accepted.
func (s *State) FinishBatch(token uint64) bool {
	if token != s.batch || !s.Uploading {
		return false
	}
	s.Uploading = false
	return s.accepted > 0
}

// AbortBatch ends the in-flight window without a report.
func (s *State) AbortBatch(token uint64, reason string) {
	if token != s.batch {
		return
	}
	s.Uploading = false
	if reason != "" {
		s.UploadError = reason
	}
}

// ClearUploadError empties the upload error if no newer batch has started.
func (s *State) ClearUploadError(token uint64) bool {
	if token != s.batch || s.Uploading {
		return false
	}
	s.UploadError = ""
	return true
}

// RemoveDocument drops the document at index. Out-of-range is a no-op.
func (s *State) RemoveDocument(index int) bool {
	if index < 0 || index >= len(s.Documents) {
		return false
	}
	s.Documents = append(s.Documents[:index:index], s.Documents[index+1:]...)
	return true
}

// HandleDrag updates DragActive and reports whether the event is a drop that
// should start a batch.
func (s *State) HandleDrag(kind DragKind) bool {
	switch kind {
	case DragEnter, DragOver:
		s.DragActive = true
	case DragLeave:
		s.DragActive = false
	case Drop:
		s.DragActive = false
		return !s.Uploading
	}
	return false
}

// BeginQuestion starts a question round trip with the current draft. The
// draft is returned untrimmed. Blank drafts and drafts submitted while an
// answer is pending are ignored.
func (s *State) BeginQuestion() (string, bool) {
	if s.Loading || strings.TrimSpace(s.Question) == "" {
		return "", false
	}
	s.Loading = true
	s.Answer = ""
	return s.Question, true
}

// FinishQuestion shows the answer and ends the loading window.
func (s *State) FinishQuestion(answer string) {
	s.Answer = answer
	s.Loading = false
}

// ClearQuestion empties the draft.
func (s *State) ClearQuestion() {
	if s.Loading {
		return
	}
	s.Question = ""
}

// DismissAnswer closes the response panel.
func (s *State) DismissAnswer() {
	if s.Loading {
		return
	}
	s.Answer = ""
}

// Clone returns a deep copy suitable for rendering outside the owner.
func (s *State) Clone() State {
	out := *s
	out.Documents = append([]ingest.UploadedDocument(nil), s.Documents...)
	return out
}
