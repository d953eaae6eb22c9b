package handlers

import (
	"github.com/AGDonato/Synapse-sub011/pkg/server/message"
	"github.com/AGDonato/Synapse-sub011/pkg/server/session"
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// Leave removes the session from the entity's room. Locks the user still
// holds on that entity are released first so the room never mirrors a lock
// whose owner is gone.
func Leave(state *structs.Server, c *structs.Client, msg structs.Message) {
	roomKey := structs.EntityKey(msg.EntityType, msg.EntityID)

	for _, lock := range session.ReleaseLocks(state, c, roomKey) {
		broadcastToRoom(state, c, structs.Message{
			Type:       structs.TypeLockReleased,
			EntityType: lock.EntityType,
			EntityID:   lock.EntityID,
			Field:      lock.Field,
			UserID:     lock.OwnerID,
		})
	}

	remaining := session.LeaveRoom(state, c, msg.EntityType, msg.EntityID)
	message.Broadcast(remaining, structs.Message{
		Type:       structs.TypeUserLeft,
		EntityType: msg.EntityType,
		EntityID:   msg.EntityID,
		UserID:     c.UserID,
		UserName:   c.UserName,
	})

	if state.Activity != nil {
		state.Activity.Record(structs.TypeLeave, msg.EntityType, msg.EntityID, c.UserID)
	}
}

// broadcastToRoom sends the frame to every session in the frame's room
// except the sender.
func broadcastToRoom(state *structs.Server, c *structs.Client, msg structs.Message) {
	state.Lock.RLock()
	room := state.Rooms[structs.EntityKey(msg.EntityType, msg.EntityID)]
	var peers []*structs.Client
	if room != nil {
		peers = session.Without(room.Clients, c)
	}
	state.Lock.RUnlock()

	message.Broadcast(peers, msg)
}
