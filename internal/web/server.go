package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/support1122/flashfire-dashboard/internal/board"
)

// Config holds server configuration
type Config struct {
	Port        int
	StaticDir   string // css, js and an optional SPA build under dist/
	CORSOrigins []string
	Version     string
}

// BoardLookup resolves open boards by session ID.
type BoardLookup interface {
	Get(id uuid.UUID) (*board.Board, bool)
	Len() int
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	config     *Config
	listener   net.Listener
	boards     BoardLookup
	hub        *Hub // WebSocket Hub
}

// NewServer creates a new HTTP server. boards and hub may be nil.
func NewServer(cfg *Config, boards BoardLookup, hub *Hub) *Server {
	router := chi.NewRouter()

	srv := &Server{
		router: router,
		config: cfg,
		boards: boards,
		hub:    hub,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Session-ID", "HX-Request", "HX-Target"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	s.router.Use(middleware.Compress(5))
}

func (s *Server) origins() []string {
	if len(s.config.CORSOrigins) == 0 {
		return []string{"*"}
	}
	return s.config.CORSOrigins
}

func (s *Server) setupRoutes() {
	if s.config.StaticDir != "" {
		distDir := filepath.Join(s.config.StaticDir, "dist")

		// Serve SPA build assets
		assetsFS := http.FileServer(http.Dir(filepath.Join(distDir, "assets")))
		s.router.Handle("/assets/*", http.StripPrefix("/assets/", assetsFS))

		fileServer := http.FileServer(http.Dir(s.config.StaticDir))
		s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))
	}

	// WebSocket; the long-lived connection must not sit behind the
	// request timeout
	if s.hub != nil {
		s.router.Get("/ws", s.serveWs)
	}

	// Health endpoint
	s.router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		version := s.config.Version
		if version == "" {
			version = "dev"
		}
		body := map[string]any{"status": "ok", "version": version}
		if s.boards != nil {
			body["boards"] = s.boards.Len()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			_ = err // Client disconnected
		}
	})
}

func (s *Server) serveWs(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("board"); raw != "" && s.boards != nil {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid board id", http.StatusBadRequest)
			return
		}
		if _, ok := s.boards.Get(id); !ok {
			http.Error(w, "board not found", http.StatusNotFound)
			return
		}
	}
	ServeWs(s.hub, w, r)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	// Create listener
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s.httpServer.Serve(listener)
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// BaseURL returns the server's base URL
func (s *Server) BaseURL() string {
	if s.listener != nil {
		return fmt.Sprintf("http://%s", s.listener.Addr().String())
	}
	return fmt.Sprintf("http://localhost:%d", s.config.Port)
}

// RegisterBoardHandler registers the server-rendered board pages.
func (s *Server) RegisterBoardHandler(handler interface{}) {
	type boardHandler interface {
		Page(w http.ResponseWriter, r *http.Request)
		Column(w http.ResponseWriter, r *http.Request)
	}

	if h, ok := handler.(boardHandler); ok {
		s.router.Route("/board/{id}", func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/", h.Page)
			r.Get("/columns/{status}", h.Column)
		})
	}
}

// RegisterAPI mounts the REST API. The handler sees full /api/... paths.
func (s *Server) RegisterAPI(h http.Handler) {
	s.router.Handle("/api/*", h)
}

// Router returns the underlying Chi router for external route mounting.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// SetupSPAFallback adds SPA fallback routing. Call this after all API routes are registered.
func (s *Server) SetupSPAFallback() {
	if s.config.StaticDir == "" {
		return
	}

	distDir := filepath.Join(s.config.StaticDir, "dist")
	indexPath := filepath.Join(distDir, "index.html")

	// Check if index.html exists
	if _, err := os.Stat(indexPath); os.IsNotExist(err) {
		return
	}

	// Serve index.html for SPA routes
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		// Only serve index.html for non-API, non-asset routes
		path := r.URL.Path
		if strings.HasPrefix(path, "/api/") ||
			strings.HasPrefix(path, "/assets/") ||
			strings.HasPrefix(path, "/static/") ||
			path == "/ws" ||
			path == "/health" {
			http.NotFound(w, r)
			return
		}

		http.ServeFile(w, r, indexPath)
	})
}
