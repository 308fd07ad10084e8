package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-fuego/fuego"
	"github.com/go-fuego/fuego/option"
)

// SessionHeader carries the board session ID on every board request.
const SessionHeader = "X-Session-ID"

// Server represents the Fuego API server.
type Server struct {
	fuego   *fuego.Server
	deps    *Dependencies
	version string
}

// Dependencies contains all service dependencies. Auth may be nil.
type Dependencies struct {
	Boards BoardRegistry
	Auth   AuthStore
}

// Config holds API server configuration.
type Config struct {
	Port        int
	Title       string
	Description string
	Version     string
}

// NewServer creates a new Fuego API server.
func NewServer(cfg *Config, deps *Dependencies) *Server {
	s := fuego.NewServer(
		fuego.WithAddr(fmt.Sprintf(":%d", cfg.Port)),
		fuego.WithEngineOptions(
			fuego.WithOpenAPIConfig(fuego.OpenAPIConfig{
				PrettyFormatJSON: true,
				JSONFilePath:     "openapi.json",
				SwaggerURL:       "/docs",
				SpecURL:          "/openapi.json",
				UIHandler: func(specURL string) http.Handler {
					return ScalarHandler(specURL, cfg.Title, cfg.Description)
				},
			}),
		),
	)

	s.OpenAPI.Description().Info.Title = cfg.Title
	s.OpenAPI.Description().Info.Description = cfg.Description
	s.OpenAPI.Description().Info.Version = cfg.Version

	// Chi middleware works as-is; Fuego is net/http compatible
	fuego.Use(s, middleware.RequestID)
	fuego.Use(s, middleware.RealIP)
	fuego.Use(s, middleware.Logger)
	fuego.Use(s, middleware.Recoverer)

	version := cfg.Version
	if version == "" {
		version = "dev"
	}

	srv := &Server{
		fuego:   s,
		deps:    deps,
		version: version,
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) registerRoutes() {
	fuego.Get(s.fuego, "/api/v1/health", s.healthCheck,
		option.Summary("Health Check"),
		option.Description("Returns the health status of the API"),
		option.Tags("System"),
	)

	// Sessions
	sessionGroup := fuego.Group(s.fuego, "/api/v1/session",
		option.Tags("Session"),
	)

	fuego.Post(sessionGroup, "", s.openSession,
		option.Summary("Open Session"),
		option.Description("Opens a board for an account and loads its jobs. Without a token the cached login is reused."),
	)

	fuego.Delete(sessionGroup, "", s.closeSession,
		option.Summary("Close Session"),
		option.Description("Closes the board and forgets the cached login"),
		option.Header(SessionHeader, "Board session ID"),
	)

	// Board
	boardGroup := fuego.Group(s.fuego, "/api/v1/board",
		option.Tags("Board"),
		option.Header(SessionHeader, "Board session ID returned by POST /api/v1/session"),
	)

	fuego.Get(boardGroup, "", s.getBoard,
		option.Summary("Get Board"),
		option.Description("Returns every column at its current page, open gates and counts"),
	)

	fuego.Post(boardGroup, "/refresh", s.refreshBoard,
		option.Summary("Refresh Board"),
		option.Description("Fetches the canonical job list from the job API"),
	)

	fuego.Get(boardGroup, "/stats", s.getStats,
		option.Summary("Get Statistics"),
		option.Description("Returns the number of jobs in each column"),
	)

	fuego.Get(boardGroup, "/columns/{status}", s.getColumn,
		option.Summary("Get Column"),
		option.Description("Returns one column at its current page"),
	)

	fuego.Put(boardGroup, "/columns/{status}/page", s.setPage,
		option.Summary("Set Column Page"),
		option.Description("Switches the page shown for a column"),
	)

	fuego.Post(boardGroup, "/jobs/{id}/move", s.moveJob,
		option.Summary("Move Job"),
		option.Description("Drops a job on a column. The move is shown at once and confirmed in the background. Moving a saved job forward answers 409 and opens an attachment gate."),
	)

	fuego.Post(boardGroup, "/jobs/{id}/attachment", s.confirmAttachment,
		option.Summary("Confirm Attachment"),
		option.Description("Resolves an open gate with the uploaded file and runs the held move"),
	)

	fuego.Delete(boardGroup, "/jobs/{id}/gate", s.cancelGate,
		option.Summary("Cancel Gate"),
		option.Description("Dismisses an open gate, leaving the job where it was"),
	)

	// Jobs
	jobsGroup := fuego.Group(s.fuego, "/api/v1/jobs",
		option.Tags("Jobs"),
		option.Header(SessionHeader, "Board session ID"),
	)

	fuego.Post(jobsGroup, "", s.addJob,
		option.Summary("Add Job"),
		option.Description("Creates a job; it starts as saved unless a status is given"),
	)

	fuego.Put(jobsGroup, "/{id}", s.editJob,
		option.Summary("Edit Job"),
		option.Description("Updates a job's descriptive fields. The status is not changed."),
	)

	fuego.Delete(jobsGroup, "/{id}", s.deleteJob,
		option.Summary("Delete Job"),
		option.Description("Removes a job from the board"),
	)
}

// Start starts the API server on its own port.
func (s *Server) Start() error {
	return s.fuego.Run()
}

// Mux returns the underlying ServeMux for mounting on another router.
func (s *Server) Mux() *http.ServeMux {
	return s.fuego.Mux
}

// MountDocsOn mounts the OpenAPI documentation routes (/docs, /openapi.json)
// on a Chi router. This allows using Fuego's OpenAPI generation with an
// existing router.
func (s *Server) MountDocsOn(r interface {
	Get(pattern string, handlerFn http.HandlerFunc)
}, title, description string) {
	scalarHandler := ScalarHandler("/openapi.json", title, description)
	r.Get("/docs", func(w http.ResponseWriter, req *http.Request) {
		scalarHandler.ServeHTTP(w, req)
	})

	r.Get("/openapi.json", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		spec := s.fuego.OpenAPI.Description()
		if err := json.NewEncoder(w).Encode(spec); err != nil {
			http.Error(w, "Failed to encode OpenAPI spec", http.StatusInternalServerError)
		}
	})
}
