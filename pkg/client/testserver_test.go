package client

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AGDonato/Synapse-sub011/pkg/structs"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

// stubServer is a scripted collaboration server with the same protocol
// semantics as the real one, small enough to control from tests.
type stubServer struct {
	t   *testing.T
	srv *httptest.Server

	mu           sync.Mutex
	conns        []*stubConn
	rooms        map[string][]*stubConn
	locks        map[string]structs.Lock
	mutePongs    bool
	muteJoined   bool
	upgradeDelay time.Duration

	frames chan structs.Message
}

type stubConn struct {
	conn     *websocket.Conn
	writeMu  sync.Mutex
	userID   string
	userName string
}

var stubUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func newStubServer(t *testing.T) *stubServer {
	s := &stubServer{
		t:      t,
		rooms:  make(map[string][]*stubConn),
		locks:  make(map[string]structs.Lock),
		frames: make(chan structs.Message, 256),
	}
	s.srv = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.srv.Close)
	return s
}

func (s *stubServer) url() string {
	return "ws" + strings.TrimPrefix(s.srv.URL, "http")
}

func (s *stubServer) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	delay := s.upgradeDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	conn, err := stubUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sc := &stubConn{
		conn:     conn,
		userID:   r.URL.Query().Get("userId"),
		userName: r.URL.Query().Get("userName"),
	}

	s.mu.Lock()
	s.conns = append(s.conns, sc)
	s.mu.Unlock()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			s.dropConn(sc)
			return
		}
		var msg structs.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		select {
		case s.frames <- msg:
		default:
		}
		s.route(sc, msg)
	}
}

func (s *stubServer) route(sc *stubConn, msg structs.Message) {
	switch msg.Type {
	case structs.TypePing:
		s.mu.Lock()
		muted := s.mutePongs
		s.mu.Unlock()
		if !muted {
			sc.write(structs.Message{Type: structs.TypePong, Timestamp: msg.Timestamp})
		}

	case structs.TypeJoin:
		s.mu.Lock()
		key := structs.EntityKey(msg.EntityType, msg.EntityID)
		others := append([]*stubConn(nil), s.rooms[key]...)
		found := false
		for _, member := range s.rooms[key] {
			if member == sc {
				found = true
			}
		}
		if !found {
			s.rooms[key] = append(s.rooms[key], sc)
		}
		users := make([]structs.Participant, 0, len(s.rooms[key]))
		for _, member := range s.rooms[key] {
			users = append(users, structs.Participant{UserID: member.userID, UserName: member.userName})
		}
		muted := s.muteJoined
		s.mu.Unlock()

		if !muted {
			sc.write(structs.Message{
				Type: structs.TypeJoined, EntityType: msg.EntityType, EntityID: msg.EntityID, Users: users,
			})
		}
		for _, member := range others {
			member.write(structs.Message{
				Type: structs.TypeUserJoined, EntityType: msg.EntityType, EntityID: msg.EntityID,
				UserID: sc.userID, UserName: sc.userName,
			})
		}

	case structs.TypeLeave:
		s.mu.Lock()
		key := structs.EntityKey(msg.EntityType, msg.EntityID)
		remaining := s.removeFromRoom(key, sc)
		s.mu.Unlock()
		for _, member := range remaining {
			member.write(structs.Message{
				Type: structs.TypeUserLeft, EntityType: msg.EntityType, EntityID: msg.EntityID,
				UserID: sc.userID, UserName: sc.userName,
			})
		}

	case structs.TypeLock:
		key := structs.LockKey(msg.EntityType, msg.EntityID, msg.Field)
		s.mu.Lock()
		if lock, held := s.locks[key]; held && lock.OwnerID != sc.userID {
			s.mu.Unlock()
			sc.write(structs.Message{
				Type: structs.TypeLockFailed, EntityType: msg.EntityType, EntityID: msg.EntityID,
				Field: msg.Field, Reason: "being edited by " + lock.OwnerName, LockedBy: lock.OwnerID,
			})
			return
		}
		lock := structs.Lock{
			EntityType: msg.EntityType, EntityID: msg.EntityID, Field: msg.Field,
			OwnerID: sc.userID, OwnerName: sc.userName, LockID: "lck-" + key,
		}
		s.locks[key] = lock
		roomKey := structs.EntityKey(msg.EntityType, msg.EntityID)
		members := append([]*stubConn(nil), s.rooms[roomKey]...)
		s.mu.Unlock()

		grant := structs.Message{
			Type: structs.TypeLockAcquired, EntityType: msg.EntityType, EntityID: msg.EntityID,
			Field: msg.Field, UserID: lock.OwnerID, UserName: lock.OwnerName, LockID: lock.LockID,
		}
		sc.write(grant)
		for _, member := range members {
			if member != sc {
				member.write(grant)
			}
		}

	case structs.TypeUnlock:
		key := structs.LockKey(msg.EntityType, msg.EntityID, msg.Field)
		s.mu.Lock()
		lock, held := s.locks[key]
		if !held || lock.OwnerID != sc.userID {
			s.mu.Unlock()
			return
		}
		delete(s.locks, key)
		roomKey := structs.EntityKey(msg.EntityType, msg.EntityID)
		members := append([]*stubConn(nil), s.rooms[roomKey]...)
		s.mu.Unlock()

		for _, member := range members {
			if member != sc {
				member.write(structs.Message{
					Type: structs.TypeLockReleased, EntityType: msg.EntityType, EntityID: msg.EntityID,
					Field: msg.Field, UserID: sc.userID,
				})
			}
		}

	case structs.TypeUpdate, structs.TypeFieldOperation, structs.TypeCursor:
		s.mu.Lock()
		roomKey := structs.EntityKey(msg.EntityType, msg.EntityID)
		members := append([]*stubConn(nil), s.rooms[roomKey]...)
		s.mu.Unlock()
		for _, member := range members {
			if member != sc {
				member.write(msg)
			}
		}
	}
}

func (s *stubServer) removeFromRoom(key string, sc *stubConn) []*stubConn {
	members := s.rooms[key]
	out := members[:0]
	for _, member := range members {
		if member != sc {
			out = append(out, member)
		}
	}
	s.rooms[key] = out
	return append([]*stubConn(nil), out...)
}

func (s *stubServer) dropConn(sc *stubConn) {
	s.mu.Lock()
	for key := range s.rooms {
		s.removeFromRoom(key, sc)
	}
	for key, lock := range s.locks {
		if lock.OwnerID == sc.userID {
			delete(s.locks, key)
		}
	}
	s.mu.Unlock()
	sc.conn.Close()
}

func (s *stubServer) setMuteJoined(v bool) {
	s.mu.Lock()
	s.muteJoined = v
	s.mu.Unlock()
}

func (s *stubServer) setMutePongs(v bool) {
	s.mu.Lock()
	s.mutePongs = v
	s.mu.Unlock()
}

func (s *stubServer) setUpgradeDelay(d time.Duration) {
	s.mu.Lock()
	s.upgradeDelay = d
	s.mu.Unlock()
}

// dropAll closes every live connection without stopping the listener, so
// clients can reconnect.
func (s *stubServer) dropAll() {
	s.mu.Lock()
	conns := s.conns
	s.conns = nil
	s.mu.Unlock()
	for _, sc := range conns {
		sc.conn.Close()
	}
}

// sendTo pushes a crafted frame to the named user's connection.
func (s *stubServer) sendTo(userID string, msg structs.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sc := range s.conns {
		if sc.userID == userID {
			sc.write(msg)
			return
		}
	}
	s.t.Errorf("sendTo: no connection for %s", userID)
}

func (sc *stubConn) write(msg structs.Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	sc.writeMu.Lock()
	defer sc.writeMu.Unlock()
	sc.conn.WriteMessage(websocket.TextMessage, raw)
}

// waitFor polls the condition until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testConfig(url string) Config {
	return Config{
		URL:               url,
		UserID:            "user123",
		UserName:          "Test User",
		ReconnectInterval: 10 * time.Millisecond,
		PingInterval:      time.Hour, // heartbeat quiet unless a test shrinks it
		PongTimeout:       time.Second,
	}
}
