package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kingrea/compliance-assistant/internal/ingest"
	"github.com/kingrea/compliance-assistant/internal/logbook"
	"github.com/kingrea/compliance-assistant/internal/query"
)

// Controller owns a State behind a mutex and runs the session operations as
// blocking calls. The terminal UI drives State directly; Controller serves
// the batch subcommands.
type Controller struct {
	mu    sync.Mutex
	state State

	ingest     *ingest.Controller
	query      *query.Controller
	logbook    *logbook.Logbook
	clearDelay time.Duration
	timers     []*time.Timer
}

// ControllerOption customizes controller construction.
type ControllerOption func(*Controller)

// WithClearDelay overrides ErrorClearDelay.
func WithClearDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.clearDelay = d
		}
	}
}

// WithLogbook records batch panics.
func WithLogbook(lb *logbook.Logbook) ControllerOption {
	return func(c *Controller) {
		c.logbook = lb
	}
}

// NewController wires the ingestion and query controllers into one session.
func NewController(ing *ingest.Controller, q *query.Controller, opts ...ControllerOption) *Controller {
	c := &Controller{
		ingest:     ing,
		query:      q,
		clearDelay: ErrorClearDelay,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// ProcessBatch uploads candidates in order and folds each file's result into
// the session as soon as it is known. It returns the batch report; an
// ignored batch returns an empty one.
func (c *Controller) ProcessBatch(ctx context.Context, candidates []ingest.Candidate) (report ingest.Report) {
	c.mu.Lock()
	token, ok := c.state.BeginBatch(len(candidates))
	c.mu.Unlock()
	if !ok {
		return report
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		r := recover()
		c.logbook.Error("Upload batch aborted: %v", r)
		c.mu.Lock()
		c.state.AbortBatch(token, fmt.Sprintf("Upload batch aborted: %v", r))
		c.mu.Unlock()
	}()

	if c.ingest != nil {
		report = c.ingest.RunEach(ctx, candidates, func(o ingest.Outcome) {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.state.RecordOutcome(token, o)
		})
	}
	finished = true

	c.mu.Lock()
	scheduleClear := c.state.FinishBatch(token)
	if scheduleClear {
		c.timers = append(c.timers, time.AfterFunc(c.clearDelay, func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.state.ClearUploadError(token)
		}))
	}
	c.mu.Unlock()
	return report
}

// RemoveUploadedDocument drops the document at index; out-of-range is ignored.
func (c *Controller) RemoveUploadedDocument(index int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.RemoveDocument(index)
}

// SubmitQuestion sets the draft to question and submits it. It reports false
// when the question was ignored (blank, or another answer pending).
func (c *Controller) SubmitQuestion(ctx context.Context, question string) (string, bool) {
	c.mu.Lock()
	if !c.state.Loading {
		c.state.Question = question
	}
	draft, ok := c.state.BeginQuestion()
	c.mu.Unlock()
	if !ok {
		return "", false
	}

	answer := query.ErrorAnswer
	defer func() {
		c.mu.Lock()
		c.state.FinishQuestion(answer)
		c.mu.Unlock()
	}()
	if c.query != nil {
		if result, err := c.query.Submit(ctx, draft); err == nil {
			answer = result.Answer
		}
	}
	return answer, true
}

// Close stops pending error-clear timers.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
}
