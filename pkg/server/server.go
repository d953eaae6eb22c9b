package server

import (
	"crypto/rand"
	"log"
	"sync"
	"time"

	"github.com/AGDonato/Synapse-sub011/pkg/server/handlers"
	"github.com/AGDonato/Synapse-sub011/pkg/server/message"
	"github.com/AGDonato/Synapse-sub011/pkg/server/origin"
	"github.com/AGDonato/Synapse-sub011/pkg/server/session"
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/oklog/ulid/v2"
	"github.com/valyala/fasthttp"
)

type Server structs.Server

// Initialize creates the shared collaboration state. The activity recorder
// may be nil, in which case no audit rows are written.
func Initialize(allowedOrigins []string, activity structs.ActivityRecorder) *Server {
	return &Server{
		AuthorizedOriginsStorage: origin.CompilePatterns(allowedOrigins),
		Lock:                     &sync.RWMutex{},
		Rooms:                    make(map[string]*structs.Room),
		Locks:                    make(map[string]*structs.Lock),
		Sessions:                 make(map[string]*structs.Client),
		Activity:                 activity,
	}
}

// AuthorizedOrigins checks if the incoming request's origin is allowed to
// connect to the server.
func (s *Server) AuthorizedOrigins(r *fasthttp.Request) bool {
	result := origin.IsAllowed(string(r.Header.Peek("Origin")), s.AuthorizedOriginsStorage)
	if !result {
		log.Printf("Origin %s was rejected during connect", r.Header.Peek("Origin"))
	}
	return result
}

// Upgrader checks that the client supplied an identity and requested a
// websocket upgrade. Identity comes from the session layer via query
// parameters; the coordinator never authenticates users itself.
func (s *Server) Upgrader(c *fiber.Ctx) error {
	if c.Query("userId") == "" {
		err := fiber.ErrBadRequest
		err.Message = "A userId query parameter is required to open a collaboration session."
		return err
	}

	if !s.AuthorizedOrigins(c.Request()) {
		err := fiber.ErrForbidden
		err.Message = "This origin is not permitted to connect to this endpoint."
		return err
	}

	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}

	err := fiber.ErrUpgradeRequired
	err.Message = "This endpoint requires a WebSocket upgrade."
	return err
}

// Handler runs one collaboration session: it registers the connection,
// reads frames until the socket closes, and tears down the session's rooms
// and locks afterwards.
func (srv *Server) Handler(conn *websocket.Conn) {
	client := &structs.Client{
		Conn:         conn,
		Lock:         &sync.Mutex{},
		TransmitLock: &sync.Mutex{},
		SessionID:    ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		UserID:       conn.Query("userId"),
		UserName:     conn.Query("userName"),
		Rooms:        make(map[string]bool),
	}

	registerClient(srv, client)
	defer closeClient(srv, client)
	runClient(srv, client)
}

func registerClient(state *Server, c *structs.Client) {
	state.Lock.Lock()
	state.Sessions[c.SessionID] = c
	state.Lock.Unlock()
	log.Printf("Session %s opened for %s (%s)", c.SessionID, c.UserID, c.UserName)
}

func closeClient(state *Server, c *structs.Client) {
	session.Destroy((*structs.Server)(state), c)
}

func runClient(state *Server, c *structs.Client) {
	for {
		msg, err := message.Read(c)
		if err != nil {
			log.Printf("WARNING: Session %s read error: %s", c.SessionID, err.Error())
			return
		}
		handleMessage(state, c, msg)
	}
}

func handleMessage(state *Server, c *structs.Client, msg structs.Message) {
	shared := (*structs.Server)(state)

	switch msg.Type {
	case structs.TypePing:
		handlers.Ping(shared, c, msg)
	case structs.TypeJoin:
		handlers.Join(shared, c, msg)
	case structs.TypeLeave:
		handlers.Leave(shared, c, msg)
	case structs.TypeLock:
		handlers.Lock(shared, c, msg)
	case structs.TypeUnlock:
		handlers.Unlock(shared, c, msg)
	case structs.TypeUpdate:
		handlers.Update(shared, c, msg)
	case structs.TypeFieldOperation:
		handlers.FieldOperation(shared, c, msg)
	case structs.TypeCursor:
		handlers.Cursor(shared, c, msg)
	default:
		log.Printf("Session %s sent unknown type %q, dropping frame", c.SessionID, msg.Type)
	}
}
