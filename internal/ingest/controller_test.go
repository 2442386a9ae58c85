package ingest

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/compliance-assistant/internal/backend"
	"github.com/kingrea/compliance-assistant/internal/logbook"
)

type uploadCall struct {
	name    string
	payload []byte
}

type scriptedUploader struct {
	calls   []uploadCall
	results map[string]error
}

func (u *scriptedUploader) Upload(_ context.Context, file backend.UploadFile) (*backend.UploadResponse, error) {
	data, _ := io.ReadAll(file.Body)
	u.calls = append(u.calls, uploadCall{name: file.Name, payload: data})
	if err := u.results[file.Name]; err != nil {
		return nil, err
	}
	return &backend.UploadResponse{StatusCode: 200, Raw: []byte(`{"filename":"` + file.Name + `"}`)}, nil
}

func fixedClock() time.Time {
	return time.Date(2026, 10, 19, 14, 5, 9, 0, time.UTC)
}

func TestRunUploadsSequentiallyAndIsolatesFailures(t *testing.T) {
	uploader := &scriptedUploader{results: map[string]error{
		"offline.txt":  &backend.TransportError{Op: "upload", Err: errors.New("connection refused")},
		"rejected.pdf": &backend.StatusError{Op: "upload", Code: 500, Message: "Storage not configured"},
		"vague.docx":   &backend.StatusError{Op: "upload", Code: 502},
	}}
	ctrl := NewController(uploader, WithClock(fixedClock))

	report := ctrl.Run(context.Background(), []Candidate{
		CandidateFromBytes("one.txt", "text/plain", []byte("first")),
		CandidateFromBytes("bad.exe", "", []byte("nope")),
		CandidateFromBytes("offline.txt", "text/plain", []byte("x")),
		CandidateFromBytes("rejected.pdf", "application/pdf", []byte("x")),
		CandidateFromBytes("two.txt", "", []byte("second")),
		CandidateFromBytes("vague.docx", "", []byte("x")),
	})

	names := make([]string, 0, len(uploader.calls))
	for _, call := range uploader.calls {
		names = append(names, call.name)
	}
	require.Equal(t, []string{"one.txt", "offline.txt", "rejected.pdf", "two.txt", "vague.docx"}, names)
	require.Equal(t, []byte("first"), uploader.calls[0].payload)

	require.Len(t, report.Documents, 2)
	require.Equal(t, "one.txt", report.Documents[0].Name)
	require.Equal(t, "two.txt", report.Documents[1].Name)
	require.Equal(t, "2:05:09 PM", report.Documents[0].UploadedAtLabel)

	require.Equal(t, []Failure{
		{Name: "bad.exe", Kind: FailureValidation, Message: ErrInvalidType},
		{Name: "offline.txt", Kind: FailureTransport, Message: "Network error uploading offline.txt"},
		{Name: "rejected.pdf", Kind: FailureRejected, Message: "Failed to upload rejected.pdf: Storage not configured"},
		{Name: "vague.docx", Kind: FailureRejected, Message: "Failed to upload vague.docx: Unknown error"},
	}, report.Failures)
	require.Equal(t, "Failed to upload vague.docx: Unknown error", report.LastError())
	require.NotEmpty(t, report.BatchID)
}

func TestRunLastErrorWinsScenario(t *testing.T) {
	uploader := &scriptedUploader{}
	ctrl := NewController(uploader, WithClock(fixedClock))

	report := ctrl.Run(context.Background(), []Candidate{
		CandidateFromBytes("a.pdf", "application/pdf", make([]byte, 2*1000*1000)),
		NewCandidate("b.exe", "", 1*1000*1000, nil),
		NewCandidate("c.txt", "text/plain", 11*1024*1024, nil),
	})

	require.Len(t, uploader.calls, 1)
	require.Len(t, report.Documents, 1)
	require.Equal(t, "a.pdf", report.Documents[0].Name)
	require.Equal(t, 1953.13, report.Documents[0].SizeKiB)
	require.Equal(t, "1953.13KB", report.Documents[0].SizeLabel())
	require.Equal(t, 0, report.Documents[0].Pages)
	require.Equal(t, ErrSizeExceeded, report.LastError())
}

func TestRunPayloadReadFailureIsNetworkError(t *testing.T) {
	uploader := &scriptedUploader{}
	broken := NewCandidate("gone.txt", "text/plain", 4, func() (io.ReadCloser, error) {
		return nil, errors.New("file removed")
	})
	report := NewController(uploader).Run(context.Background(), []Candidate{broken})

	require.Empty(t, uploader.calls)
	require.Empty(t, report.Documents)
	require.Equal(t, "Network error uploading gone.txt", report.LastError())
}

type panickingUploader struct{}

func (panickingUploader) Upload(context.Context, backend.UploadFile) (*backend.UploadResponse, error) {
	panic("transport exploded")
}

func TestRunRecoversFromUploaderPanic(t *testing.T) {
	report := NewController(panickingUploader{}).Run(context.Background(), []Candidate{
		CandidateFromBytes("a.txt", "text/plain", []byte("x")),
	})
	require.Equal(t, "Network error uploading a.txt", report.LastError())
}

func TestRunSendsBatchTraceID(t *testing.T) {
	var traces []string
	uploader := uploaderFunc(func(ctx context.Context, file backend.UploadFile) (*backend.UploadResponse, error) {
		id, _ := backend.TraceIDFromContext(ctx)
		traces = append(traces, id)
		return &backend.UploadResponse{StatusCode: 200}, nil
	})
	ctrl := NewController(uploader)
	ctrl.newID = func() string { return "batch-42" }
	report := ctrl.Run(context.Background(), []Candidate{
		CandidateFromBytes("a.txt", "", []byte("x")),
		CandidateFromBytes("b.txt", "", []byte("y")),
	})
	require.Equal(t, "batch-42", report.BatchID)
	require.Equal(t, []string{"batch-42", "batch-42"}, traces)
}

func TestRunWritesLogbook(t *testing.T) {
	book, err := logbook.New(filepath.Join(t.TempDir(), "session.log"))
	require.NoError(t, err)
	ctrl := NewController(&scriptedUploader{}, WithLogbook(book))
	ctrl.Run(context.Background(), []Candidate{
		CandidateFromBytes("a.txt", "", []byte("x")),
		CandidateFromBytes("b.exe", "", []byte("y")),
	})
	lines, _ := book.Tail(10)
	joined := strings.Join(lines, "\n")
	require.Contains(t, joined, "Successfully uploaded: a.txt")
	require.Contains(t, joined, "File validation failed")
}

type uploaderFunc func(ctx context.Context, file backend.UploadFile) (*backend.UploadResponse, error)

func (f uploaderFunc) Upload(ctx context.Context, file backend.UploadFile) (*backend.UploadResponse, error) {
	return f(ctx, file)
}

func TestRunEachReportsEveryFileBeforeTheNext(t *testing.T) {
	var events []string
	uploader := uploaderFunc(func(_ context.Context, file backend.UploadFile) (*backend.UploadResponse, error) {
		events = append(events, "upload "+file.Name)
		return &backend.UploadResponse{StatusCode: 200}, nil
	})
	report := NewController(uploader).RunEach(context.Background(), []Candidate{
		CandidateFromBytes("bad.exe", "", []byte("x")),
		CandidateFromBytes("good.txt", "", []byte("y")),
	}, func(o Outcome) {
		if o.Failure != nil {
			events = append(events, "failed "+o.Failure.Name+": "+o.Failure.Message)
			return
		}
		events = append(events, "accepted "+o.Document.Name)
	})

	require.Equal(t, []string{
		"failed bad.exe: " + ErrInvalidType,
		"upload good.txt",
		"accepted good.txt",
	}, events)
	require.Len(t, report.Documents, 1)
	require.Len(t, report.Failures, 1)
}

func TestBatchUploadSharesTraceID(t *testing.T) {
	var traces []string
	uploader := uploaderFunc(func(ctx context.Context, _ backend.UploadFile) (*backend.UploadResponse, error) {
		id, _ := backend.TraceIDFromContext(ctx)
		traces = append(traces, id)
		return &backend.UploadResponse{StatusCode: 200}, nil
	})
	ctrl := NewController(uploader, WithClock(fixedClock))
	ctrl.newID = func() string { return "batch-7" }
	batch := ctrl.NewBatch(context.Background(), 2)
	require.Equal(t, "batch-7", batch.ID)

	first := batch.Upload(CandidateFromBytes("a.txt", "", []byte("x")))
	require.NotNil(t, first.Document)
	require.Equal(t, "2:05:09 PM", first.Document.UploadedAtLabel)
	second := batch.Upload(CandidateFromBytes("b.exe", "", []byte("x")))
	require.Nil(t, second.Document)
	require.Equal(t, FailureValidation, second.Failure.Kind)
	require.Equal(t, []string{"batch-7"}, traces)
}
