// Package web serves the job board: the job listing, job detail pages and a
// WebSocket feed of sync progress events.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/jobboard/jobboard/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// SiteInfo is injected into every page.
type SiteInfo struct {
	Title       string
	Description string
}

// Server serves pages from the store and broadcasts sync events to
// connected WebSocket clients.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	handler  http.Handler

	db          *store.DB
	site        SiteInfo
	jobsPerPage int
	pages       pageTemplates

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Addr to listen on (default: ":8080")
	Addr string

	// DB is the store pages are read from. Required.
	DB *store.DB

	// Site title and description shown on every page
	Site SiteInfo

	// JobsPerPage is the listing page size (default: 20)
	JobsPerPage int

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

const defaultJobsPerPage = 20

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Addr:        ":8080",
		Site:        SiteInfo{Title: "Site Title", Description: "Site Description"},
		JobsPerPage: defaultJobsPerPage,
		Logger:      log.New(os.Stderr, "[web] ", log.LstdFlags),
	}
}

// NewServer creates a new server. It does not listen until Start is called;
// Handler can be used without starting it.
func NewServer(config *Config) (*Server, error) {
	if config == nil || config.DB == nil {
		return nil, errors.New("web: a store is required")
	}
	defaults := DefaultConfig()
	if config.Addr == "" {
		config.Addr = defaults.Addr
	}
	if config.JobsPerPage <= 0 {
		config.JobsPerPage = defaults.JobsPerPage
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:        config.Addr,
		db:          config.DB,
		site:        config.Site,
		jobsPerPage: config.JobsPerPage,
		pages:       pages,
		clients:     make(map[*websocket.Conn]bool),
		broadcast:   make(chan Message, 100),
		ctx:         ctx,
		cancel:      cancel,
		logger:      config.Logger,
	}
	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		// The embed directive guarantees the directory exists.
		panic(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /job/{id}/{$}", s.handleDetail)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	return withCORS(mux)
}

// withCORS allows cross-origin reads from any origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start begins the HTTP server and the broadcast loop
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Listening on http://%s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()

	s.logger.Println("Server stopped")
	return nil
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// handleHealth reports whether the store answers.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.RawDB().PingContext(r.Context()); err != nil {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  status,
		"clients": s.ClientCount(),
	})
}
