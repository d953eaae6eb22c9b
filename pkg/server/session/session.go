package session

import (
	"log"
	"slices"
	"time"

	"github.com/AGDonato/Synapse-sub011/pkg/server/message"
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
	"github.com/gofiber/contrib/websocket"
)

// JoinRoom adds the session to the room for (entityType, entityId), creating
// the room on first join. Returns the resulting participant list and the
// sessions that were already in the room, both snapshotted under the state
// lock.
func JoinRoom(state *structs.Server, c *structs.Client, entityType string, entityID int64) ([]structs.Participant, []*structs.Client) {
	state.Lock.Lock()
	defer state.Lock.Unlock()

	key := structs.EntityKey(entityType, entityID)
	room := state.Rooms[key]
	if room == nil {
		log.Printf("Room %s has been created", key)
		room = &structs.Room{EntityType: entityType, EntityID: entityID}
		state.Rooms[key] = room
	}

	others := slices.Clone(room.Clients)
	room.Clients = And(room.Clients, c)
	c.Rooms[key] = true

	return room.Participants(), others
}

// LeaveRoom removes the session from the room and destroys the room once it
// is empty. Returns the remaining sessions, or nil if the session was not in
// the room.
func LeaveRoom(state *structs.Server, c *structs.Client, entityType string, entityID int64) []*structs.Client {
	state.Lock.Lock()
	defer state.Lock.Unlock()
	return leaveRoomLocked(state, c, structs.EntityKey(entityType, entityID))
}

func leaveRoomLocked(state *structs.Server, c *structs.Client, key string) []*structs.Client {
	room := state.Rooms[key]
	if room == nil || !c.Rooms[key] {
		return nil
	}

	room.Clients = Without(room.Clients, c)
	delete(c.Rooms, key)

	if len(room.Clients) == 0 {
		delete(state.Rooms, key)
		log.Printf("Room %s has been destroyed", key)
		return nil
	}

	return slices.Clone(room.Clients)
}

// ReleaseLocks removes every lock owned by the session, optionally scoped to
// one room key. Returns the removed locks so the caller can notify rooms.
func ReleaseLocks(state *structs.Server, c *structs.Client, roomKey string) []*structs.Lock {
	state.Lock.Lock()
	defer state.Lock.Unlock()
	return releaseLocksLocked(state, c, roomKey)
}

func releaseLocksLocked(state *structs.Server, c *structs.Client, roomKey string) []*structs.Lock {
	var released []*structs.Lock
	for key, lock := range state.Locks {
		if lock.OwnerID != c.UserID {
			continue
		}
		if roomKey != "" && structs.EntityKey(lock.EntityType, lock.EntityID) != roomKey {
			continue
		}
		delete(state.Locks, key)
		released = append(released, lock)
	}
	return released
}

// Destroy finalizes a disconnecting session: every held lock is released and
// every joined room is left, with the remaining participants notified.
func Destroy(state *structs.Server, c *structs.Client) {
	state.Lock.Lock()
	defer state.Lock.Unlock()

	for _, lock := range releaseLocksLocked(state, c, "") {
		room := state.Rooms[structs.EntityKey(lock.EntityType, lock.EntityID)]
		if room == nil {
			continue
		}
		message.Broadcast(Without(room.Clients, c), structs.Message{
			Type:       structs.TypeLockReleased,
			EntityType: lock.EntityType,
			EntityID:   lock.EntityID,
			Field:      lock.Field,
			UserID:     lock.OwnerID,
		})
	}

	for key := range c.Rooms {
		room := state.Rooms[key]
		if room == nil {
			delete(c.Rooms, key)
			continue
		}
		remaining := leaveRoomLocked(state, c, key)
		message.Broadcast(remaining, structs.Message{
			Type:       structs.TypeUserLeft,
			EntityType: room.EntityType,
			EntityID:   room.EntityID,
			UserID:     c.UserID,
			UserName:   c.UserName,
		})
	}

	delete(state.Sessions, c.SessionID)
	log.Printf("Session %s (%s) has been destroyed", c.SessionID, c.UserID)
}

// CloseWithWarning sends a warning reason and closes the connection.
func CloseWithWarning(c *structs.Client, reason string) {
	log.Printf("Closing session %s: %s", c.SessionID, reason)
	message.Send(c, structs.Message{Type: "warning", Reason: reason})
	c.Conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, reason), time.Now().Add(time.Second))
	c.Conn.Close()
}

// Get returns the session with the given user id from the given slice.
// Returns nil if no session with the given id is found.
func Get(peers []*structs.Client, userID string) *structs.Client {
	for _, peer := range peers {
		if peer.UserID == userID {
			return peer
		}
	}
	return nil
}

// Without returns a slice of sessions that excludes the given session.
//
// It creates a new slice and filters out the given session. If the given
// session is not in the original slice, it returns the original slice
// unchanged.
func Without(peers []*structs.Client, c *structs.Client) []*structs.Client {
	copy := make([]*structs.Client, 0)
	for _, peer := range peers {
		if peer != c {
			copy = append(copy, peer)
		}
	}
	return copy
}

// And returns a slice of sessions that includes the given session.
//
// If the given session is already in the slice, it is returned unchanged.
// Otherwise, the given session is appended and the new slice is returned.
func And(peers []*structs.Client, c *structs.Client) []*structs.Client {
	copy := slices.Clone(peers)
	if slices.Contains(copy, c) {
		return copy
	}
	copy = append(copy, c)
	return copy
}
