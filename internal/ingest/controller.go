package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/compliance-assistant/internal/backend"
	"github.com/kingrea/compliance-assistant/internal/logbook"
)

// Uploader sends one file to the analysis backend.
type Uploader interface {
	Upload(ctx context.Context, file backend.UploadFile) (*backend.UploadResponse, error)
}

// FailureKind classifies why a candidate did not make it into the session.
type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureTransport  FailureKind = "transport"
	FailureRejected   FailureKind = "rejected"
)

// Failure is one per-file entry of a batch report.
type Failure struct {
	Name    string
	Kind    FailureKind
	Message string
}

// Report is the outcome of one batch, in submission order.
type Report struct {
	BatchID   string
	Documents []UploadedDocument
	Failures  []Failure
}

// LastError returns the most recent failure message, or "" when every file
// was accepted. The UI shows only this one line.
func (r Report) LastError() string {
	if len(r.Failures) == 0 {
		return ""
	}
	return r.Failures[len(r.Failures)-1].Message
}

// Controller runs upload batches. It holds no session state of its own.
type Controller struct {
	uploader Uploader
	now      func() time.Time
	newID    func() string
	logbook  *logbook.Logbook
}

// Option customizes controller construction.
type Option func(*Controller)

// WithClock allows tests to control upload timestamps.
func WithClock(clock func() time.Time) Option {
	return func(c *Controller) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithLogbook records validation failures and backend replies.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(c *Controller) {
		c.logbook = lb
	}
}

// NewController prepares a controller that uploads through u.
func NewController(u Uploader, opts ...Option) *Controller {
	c := &Controller{
		uploader: u,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Outcome is the result for one candidate. Exactly one field is set.
type Outcome struct {
	Document *UploadedDocument
	Failure  *Failure
}

// Add folds one outcome into the report.
func (r *Report) Add(o Outcome) {
	switch {
	case o.Failure != nil:
		r.Failures = append(r.Failures, *o.Failure)
	case o.Document != nil:
		r.Documents = append(r.Documents, *o.Document)
	}
}

// Batch is an upload batch in progress. Every file uploaded through it
// carries the batch id as its trace id.
type Batch struct {
	ID   string
	ctx  context.Context
	ctrl *Controller
}

// NewBatch starts a batch of size files.
func (c *Controller) NewBatch(ctx context.Context, size int) *Batch {
	id := c.newID()
	c.logbook.Info("Batch %s · %d file(s)", id, size)
	return &Batch{ID: id, ctx: backend.WithTraceID(ctx, id), ctrl: c}
}

// Upload validates and uploads one candidate. It never fails: problems come
// back as Outcome.Failure.
func (b *Batch) Upload(candidate Candidate) Outcome {
	doc, failure := b.ctrl.uploadOne(b.ctx, candidate)
	if failure != nil {
		return Outcome{Failure: failure}
	}
	return Outcome{Document: &doc}
}

// Run validates and uploads candidates strictly in order. A failing file
// never stops the batch, and Run itself never fails: every problem ends up
// in Report.Failures.
func (c *Controller) Run(ctx context.Context, candidates []Candidate) Report {
	return c.RunEach(ctx, candidates, nil)
}

// RunEach is Run with onFile called after each candidate, before the next
// one starts.
func (c *Controller) RunEach(ctx context.Context, candidates []Candidate, onFile func(Outcome)) (report Report) {
	batch := c.NewBatch(ctx, len(candidates))
	report.BatchID = batch.ID
	for _, candidate := range candidates {
		outcome := batch.Upload(candidate)
		report.Add(outcome)
		if onFile != nil {
			onFile(outcome)
		}
	}
	return report
}

func (c *Controller) uploadOne(ctx context.Context, candidate Candidate) (doc UploadedDocument, failure *Failure) {
	defer func() {
		if r := recover(); r != nil {
			c.logbook.Error("Error uploading %s: %v", candidate.Name, r)
			failure = &Failure{Name: candidate.Name, Kind: FailureTransport, Message: networkErrorMessage(candidate.Name)}
		}
	}()

	if result := Validate(candidate); !result.Valid {
		c.logbook.Warn("File validation failed: %s (%s)", result.Error, candidate.Name)
		return doc, &Failure{Name: candidate.Name, Kind: FailureValidation, Message: result.Error}
	}

	payload, err := readPayload(candidate)
	if err != nil {
		c.logbook.Error("Error uploading %s: %v", candidate.Name, err)
		return doc, &Failure{Name: candidate.Name, Kind: FailureTransport, Message: networkErrorMessage(candidate.Name)}
	}

	if c.uploader == nil {
		return doc, &Failure{Name: candidate.Name, Kind: FailureTransport, Message: networkErrorMessage(candidate.Name)}
	}
	resp, err := c.uploader.Upload(ctx, backend.UploadFile{
		Name:      candidate.Name,
		MediaType: candidate.MediaType,
		Body:      bytes.NewReader(payload),
	})
	if err != nil {
		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			c.logbook.Error("Upload failed for %s: %v", candidate.Name, err)
			reason := statusErr.Message
			if reason == "" {
				reason = "Unknown error"
			}
			return doc, &Failure{
				Name:    candidate.Name,
				Kind:    FailureRejected,
				Message: fmt.Sprintf("Failed to upload %s: %s", candidate.Name, reason),
			}
		}
		c.logbook.Error("Error uploading %s: %v", candidate.Name, err)
		return doc, &Failure{Name: candidate.Name, Kind: FailureTransport, Message: networkErrorMessage(candidate.Name)}
	}

	if resp != nil {
		c.logbook.Info("Upload response: %s", string(resp.Raw))
	}
	c.logbook.Info("Successfully uploaded: %s", candidate.Name)
	return newUploadedDocument(candidate, c.now(), payload), nil
}

func readPayload(candidate Candidate) ([]byte, error) {
	rc, err := candidate.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	// Size was validated from metadata; cap the read in case the file grew since.
	data, err := io.ReadAll(io.LimitReader(rc, MaxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > MaxUploadBytes {
		return nil, fmt.Errorf("ingest: %s grew past the size limit", candidate.Name)
	}
	return data, nil
}

func networkErrorMessage(name string) string {
	return fmt.Sprintf("Network error uploading %s", name)
}
