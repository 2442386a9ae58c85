// Package backend talks to the remote analysis service: POST /upload for
// documents, POST /ask for questions and GET / as a reachability probe.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// TraceHeader carries the batch trace id on every upload of one batch.
const TraceHeader = "X-Trace-Id"

// UploadFile is one raw document handed to Upload.
type UploadFile struct {
	Name      string
	MediaType string
	Body      io.Reader
}

// UploadResponse is the decoded 2xx reply of /upload. Fields is whatever
// JSON object the backend returned; it is logged, never required.
type UploadResponse struct {
	StatusCode int
	Fields     map[string]any
	Raw        []byte
}

// AskResponse is the decoded 2xx reply of /ask.
type AskResponse struct {
	StatusCode int
	Answer     string
}

// Client issues the backend calls against a single origin.
type Client struct {
	origin string
	http   *http.Client
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client. The default has no
// timeout; failures surface only when the transport reports them.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New prepares a client for the given origin (scheme://host[:port]).
func New(origin string, opts ...Option) *Client {
	c := &Client{
		origin: strings.TrimRight(strings.TrimSpace(origin), "/"),
		http:   &http.Client{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Origin returns the configured backend origin.
func (c *Client) Origin() string {
	return c.origin
}

type traceKey struct{}

// WithTraceID attaches a trace id that outgoing requests send in TraceHeader.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// TraceIDFromContext reports the trace id set by WithTraceID.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(traceKey{}).(string)
	return id, ok && id != ""
}

// Upload posts one file as multipart field "file".
func (c *Client) Upload(ctx context.Context, file UploadFile) (*UploadResponse, error) {
	if file.Body == nil {
		return nil, &TransportError{Op: "upload", Err: fmt.Errorf("empty body for %s", file.Name)}
	}
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreatePart(filePartHeader(file))
	if err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}
	if _, err := io.Copy(part, file.Body); err != nil {
		return nil, &TransportError{Op: "upload", Err: fmt.Errorf("read %s: %w", file.Name, err)}
	}
	if err := writer.Close(); err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.origin+"/upload", &buf)
	if err != nil {
		return nil, &TransportError{Op: "upload", Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	status, body, err := c.do(req, "upload")
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, newStatusError("upload", status, body)
	}
	resp := &UploadResponse{StatusCode: status, Raw: body}
	var fields map[string]any
	if json.Unmarshal(body, &fields) == nil {
		resp.Fields = fields
	}
	return resp, nil
}

// Ask posts {"question": question} and returns the answer field, which may be empty.
func (c *Client) Ask(ctx context.Context, question string) (*AskResponse, error) {
	payload, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return nil, fmt.Errorf("backend: encode question: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.origin+"/ask", bytes.NewReader(payload))
	if err != nil {
		return nil, &TransportError{Op: "ask", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	status, body, err := c.do(req, "ask")
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, newStatusError("ask", status, body)
	}
	var parsed struct {
		Answer *string `json:"answer"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("backend: decode ask response: %w", err)
	}
	resp := &AskResponse{StatusCode: status}
	if parsed.Answer != nil {
		resp.Answer = *parsed.Answer
	}
	return resp, nil
}

// Health calls GET / and returns the backend's "message" field.
func (c *Client) Health(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.origin+"/", nil)
	if err != nil {
		return "", &TransportError{Op: "health", Err: err}
	}
	status, body, err := c.do(req, "health")
	if err != nil {
		return "", err
	}
	if !isSuccess(status) {
		return "", newStatusError("health", status, body)
	}
	var parsed struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &parsed)
	return parsed.Message, nil
}

func (c *Client) do(req *http.Request, op string) (int, []byte, error) {
	if id, ok := TraceIDFromContext(req.Context()); ok {
		req.Header.Set(TraceHeader, id)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}
	return resp.StatusCode, body, nil
}

func filePartHeader(file UploadFile) textproto.MIMEHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(file.Name)))
	mediaType := strings.TrimSpace(file.MediaType)
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	h.Set("Content-Type", mediaType)
	return h
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
