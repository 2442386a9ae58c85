// Package query sends a compliance question to the backend and turns every
// outcome into text the answer panel can show.
package query

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/compliance-assistant/internal/backend"
	"github.com/kingrea/compliance-assistant/internal/logbook"
)

// Fixed answer texts.
const (
	ErrorAnswer      = "Error: Unable to fetch response. Please check your connection and try again."
	NoResponseAnswer = "No response received. Please try again."
)

// Asker is the backend surface the controller needs.
type Asker interface {
	Ask(ctx context.Context, question string) (*backend.AskResponse, error)
}

// Result is what Submit produces. Answer is always displayable; Err keeps the
// underlying failure for logging and is nil on success.
type Result struct {
	Answer string
	Err    error
}

// Failed reports whether Answer is the generic error text.
func (r Result) Failed() bool {
	return r.Err != nil
}

// ErrBlankQuestion is returned by Submit when the question is empty after trimming.
var ErrBlankQuestion = errors.New("query: question is blank")

// Controller submits questions.
type Controller struct {
	asker   Asker
	logbook *logbook.Logbook
}

// Option customizes controller construction.
type Option func(*Controller)

// WithLogbook records questions and failures.
func WithLogbook(lb *logbook.Logbook) Option {
	return func(c *Controller) {
		c.logbook = lb
	}
}

// NewController prepares a controller that asks through a.
func NewController(a Asker, opts ...Option) *Controller {
	c := &Controller{asker: a}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Ready reports whether question would be sent by Submit.
func Ready(question string) bool {
	return strings.TrimSpace(question) != ""
}

// Submit sends question verbatim (untrimmed) when it has any non-space
// content. A blank question returns ErrBlankQuestion without touching the
// network; callers should treat that as a no-op.
func (c *Controller) Submit(ctx context.Context, question string) (Result, error) {
	if !Ready(question) {
		return Result{}, ErrBlankQuestion
	}
	if c.asker == nil {
		err := fmt.Errorf("query: no backend configured")
		c.logbook.Error("Error fetching answer: %v", err)
		return Result{Answer: ErrorAnswer, Err: err}, nil
	}
	c.logbook.Info("Question: %s", question)
	resp, err := c.asker.Ask(ctx, question)
	if err != nil {
		c.logbook.Error("Error fetching answer: %v", err)
		return Result{Answer: ErrorAnswer, Err: err}, nil
	}
	if resp == nil || resp.Answer == "" {
		c.logbook.Warn("Backend returned no answer")
		return Result{Answer: NoResponseAnswer}, nil
	}
	c.logbook.Info("Answer received (%d chars)", len(resp.Answer))
	return Result{Answer: resp.Answer}, nil
}
