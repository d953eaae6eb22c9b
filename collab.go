package collab

import (
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	srv "github.com/AGDonato/Synapse-sub011/pkg/server"
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type CollabServer struct {
	App    *fiber.App
	Server *srv.Server
}

// New initializes a collaboration server with the given allowed origins and
// an optional activity recorder. The returned CollabServer carries the
// underlying server state and a fiber app with the WebSocket endpoint
// mounted at the root path.
func New(allowedOrigins []string, activity structs.ActivityRecorder) *CollabServer {
	s := srv.Initialize(allowedOrigins, activity)
	server := &CollabServer{Server: s}

	// Initialize app
	server.App = fiber.New()

	// Configure routes
	server.App.Use("/", s.Upgrader)
	server.App.Get("/", websocket.New(s.Handler))

	// Initialize middleware
	server.App.Use(logger.New())
	server.App.Use(recover.New())

	// Return created instance
	return server
}
