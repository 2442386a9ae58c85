package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/compliance-assistant/internal/backend"
)

type fakeAsker struct {
	questions []string
	resp      *backend.AskResponse
	err       error
}

func (f *fakeAsker) Ask(_ context.Context, question string) (*backend.AskResponse, error) {
	f.questions = append(f.questions, question)
	return f.resp, f.err
}

func TestSubmitShowsAnswerExactly(t *testing.T) {
	asker := &fakeAsker{resp: &backend.AskResponse{StatusCode: 200, Answer: "Retention is 7 years."}}
	result, err := NewController(asker).Submit(context.Background(), "What is our data retention policy?")
	require.NoError(t, err)
	require.Equal(t, "Retention is 7 years.", result.Answer)
	require.False(t, result.Failed())
	require.Equal(t, []string{"What is our data retention policy?"}, asker.questions)
}

func TestSubmitSendsQuestionUntrimmed(t *testing.T) {
	asker := &fakeAsker{resp: &backend.AskResponse{Answer: "ok"}}
	_, err := NewController(asker).Submit(context.Background(), "  padded?\n")
	require.NoError(t, err)
	require.Equal(t, []string{"  padded?\n"}, asker.questions)
}

func TestSubmitBlankQuestionNeverCallsBackend(t *testing.T) {
	asker := &fakeAsker{}
	ctrl := NewController(asker)
	for _, q := range []string{"", "   ", "\n\t "} {
		_, err := ctrl.Submit(context.Background(), q)
		require.ErrorIs(t, err, ErrBlankQuestion)
	}
	require.Empty(t, asker.questions)
}

func TestSubmitMapsFailuresToErrorAnswer(t *testing.T) {
	cases := map[string]error{
		"status":    &backend.StatusError{Op: "ask", Code: 500, Message: "boom"},
		"transport": &backend.TransportError{Op: "ask", Err: errors.New("connection refused")},
		"decode":    errors.New("backend: decode ask response: invalid character"),
	}
	for name, failure := range cases {
		t.Run(name, func(t *testing.T) {
			result, err := NewController(&fakeAsker{err: failure}).Submit(context.Background(), "q")
			require.NoError(t, err)
			require.Equal(t, ErrorAnswer, result.Answer)
			require.True(t, result.Failed())
			require.ErrorIs(t, result.Err, failure)
		})
	}
}

func TestSubmitEmptyAnswerShowsPlaceholder(t *testing.T) {
	for _, resp := range []*backend.AskResponse{nil, {StatusCode: 200}} {
		result, err := NewController(&fakeAsker{resp: resp}).Submit(context.Background(), "q")
		require.NoError(t, err)
		require.Equal(t, NoResponseAnswer, result.Answer)
		require.False(t, result.Failed())
	}
}

func TestSubmitWithoutBackend(t *testing.T) {
	result, err := NewController(nil).Submit(context.Background(), "q")
	require.NoError(t, err)
	require.Equal(t, ErrorAnswer, result.Answer)
}
