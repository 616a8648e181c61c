package api

import (
	"net/http"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Server is the API server for ingesting and querying the quarry corpus
type Server struct {
	config Config
	logger *zap.Logger
	app    *fiber.App
}

// NewServer creates a new API server. Collaborators are injected through
// Config so they can be shared with the watcher and CLI commands.
func NewServer(config Config, logger *zap.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/v1/documents", s.handleUpload)
	app.Get("/v1/search", s.handleSearchEndpoint)
	app.Get("/v1/export", s.handleExport)
	app.Post("/v1/themes", s.handleThemes)
	app.Get("/v1/stats", s.handleStats)

	return s
}

// MountMCP exposes an MCP streamable HTTP handler under the given path.
func (s *Server) MountMCP(path string, handler http.Handler) {
	s.app.All(path, adaptor.HTTPHandler(handler))
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		zap.String("listen", s.config.ListenAddr),
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
