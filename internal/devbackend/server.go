// Package devbackend is a local stand-in for the remote analysis backend. It
// stores uploaded documents in a directory and answers questions from a
// keyword index over their text.
package devbackend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ServerStatus reports runtime lifecycle states for the HTTP server.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDraining ServerStatus = "draining"
)

// RootMessage is the body of GET /.
const RootMessage = "Compliance Bot API is running"

// Logger is the printf-style sink the server writes to.
type Logger interface {
	Printf(format string, args ...any)
}

// Server wraps the HTTP listener and handlers of the development backend.
type Server struct {
	settings Settings
	logger   Logger
	store    *Store
	index    *Index
	engine   *gin.Engine

	mu       sync.RWMutex
	server   *http.Server
	listener net.Listener
	status   ServerStatus
}

// Option customizes server construction.
type Option func(*Server)

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewServer prepares the store, indexes documents already in the data
// directory and builds the router.
func NewServer(settings Settings, opts ...Option) (*Server, error) {
	settings.normalize()
	s := &Server{
		settings: settings,
		logger:   nopLogger{},
		index:    NewIndex(),
		status:   StatusStarting,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	store, err := NewStore(settings.DataDir)
	if err != nil {
		return nil, err
	}
	s.store = store
	s.reindex()
	s.engine = s.routes()
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), traceMiddleware(), requestLogger(s.logger))
	r.GET("/", s.handleRoot)
	r.POST("/upload", s.handleUpload)
	r.POST("/ask", s.handleAsk)
	return r
}

func (s *Server) reindex() {
	names, err := s.store.Names()
	if err != nil {
		s.logger.Printf("devbackend: %v", err)
		return
	}
	for _, name := range names {
		data, err := s.store.Get(name)
		if err != nil {
			s.logger.Printf("devbackend: read %s: %v", name, err)
			continue
		}
		s.indexDocument(name, data)
	}
	s.logger.Printf("devbackend: indexed %d of %d stored document(s)", s.index.Documents(), len(names))
}

func (s *Server) indexDocument(name string, data []byte) {
	blocks, err := extractText(name, data)
	if err != nil {
		s.index.Remove(name)
		if !errors.Is(err, errNotIndexable) {
			s.logger.Printf("devbackend: extract %s: %v", name, err)
		}
		return
	}
	n := s.index.Add(name, blocks)
	s.logger.Printf("devbackend: %s -> %d chunk(s)", name, n)
}

// Start binds the TCP listener and begins serving HTTP traffic.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("devbackend: server is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return fmt.Errorf("devbackend: server already started")
	}
	addr := s.settings.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("devbackend: listen %s: %w", addr, err)
	}
	s.listener = listener
	server := &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.settings.ReadTimeout,
		WriteTimeout: s.settings.WriteTimeout,
		IdleTimeout:  s.settings.IdleTimeout,
	}
	if ctx != nil {
		server.BaseContext = func(net.Listener) context.Context { return ctx }
	}
	s.server = server
	s.status = StatusReady
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("devbackend: serve error: %v", err)
		}
	}()
	s.logger.Printf("devbackend: listening on %s (data: %s)", listener.Addr().String(), s.store.Dir())
	return nil
}

// Shutdown stops accepting new connections and waits for in-flight requests to exit.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil || s.server == nil {
		return nil
	}
	s.status = StatusDraining
	deadline := ctx
	if deadline == nil {
		var cancel context.CancelFunc
		deadline, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
	}
	if err := s.server.Shutdown(deadline); err != nil {
		return err
	}
	s.listener = nil
	s.server = nil
	return nil
}

// Addr returns the bound TCP address once the server has started.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// BaseURL returns the HTTP base URL (scheme + host:port) for the running server.
func (s *Server) BaseURL() string {
	addr := s.Addr()
	if addr == "" {
		return s.settings.URL()
	}
	return "http://" + addr
}

// Status reports the server's lifecycle state.
func (s *Server) Status() ServerStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": RootMessage})
}

func (s *Server) handleUpload(c *gin.Context) {
	limit := s.settings.MaxUploadBytes
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+multipartOverhead)
	file, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if file.Size > limit {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	name, err := sanitizeName(file.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid file name"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.store.Put(name, data); err != nil {
		s.logger.Printf("devbackend: upload error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.indexDocument(name, data)
	c.JSON(http.StatusOK, gin.H{
		"message":  fmt.Sprintf("File %s uploaded successfully", name),
		"filename": name,
	})
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}
	hits := s.index.Search(req.Question, s.settings.TopK)
	s.logger.Printf("devbackend: ask trace=%s hits=%d", TraceIDFromContext(c.Request.Context()), len(hits))
	c.JSON(http.StatusOK, gin.H{"answer": composeAnswer(req.Question, hits)})
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}
