// Package web exposes the face analysis pipeline over HTTP: a JSON
// extraction endpoint for single images and a websocket endpoint for
// streaming frames.
package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/openvisage/visage/internal/log"
	"github.com/openvisage/visage/pkg/analysis"
)

// Server serves the analysis API.
type Server struct {
	app      *fiber.App
	analyzer *analysis.Analyzer
	port     string
}

// NewServer creates the API server around an analyzer.
func NewServer(analyzer *analysis.Analyzer, port string) *Server {
	s := &Server{
		analyzer: analyzer,
		port:     port,
	}

	app := fiber.New(fiber.Config{
		AppName:               "visage",
		DisableStartupMessage: true,
		BodyLimit:             32 * 1024 * 1024, // large base64 images
	})

	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", s.handleHealth)
	app.Get("/info", s.handleInfo)
	app.Post("/extract", s.handleExtract)

	// WebSocket upgrade middleware
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/frames", websocket.New(s.handleFramesWS))

	s.app = app
	return s
}

// App returns the underlying fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Start blocks serving the API.
func (s *Server) Start() error {
	log.Info("serving analysis API", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
