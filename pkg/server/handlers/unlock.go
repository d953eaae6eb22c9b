package handlers

import (
	"log"

	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// Unlock releases a lock held by the requester. Releasing a lock someone
// else owns (or that does not exist) is a no-op; the release is broadcast
// to the room so other participants see the field free up in real time.
func Unlock(state *structs.Server, c *structs.Client, msg structs.Message) {
	key := structs.LockKey(msg.EntityType, msg.EntityID, msg.Field)

	state.Lock.Lock()
	lock := state.Locks[key]
	if lock == nil || lock.OwnerID != c.UserID {
		state.Lock.Unlock()
		return
	}
	delete(state.Locks, key)
	state.Lock.Unlock()

	log.Printf("Lock %s released by %s", key, c.UserID)

	broadcastToRoom(state, c, structs.Message{
		Type:       structs.TypeLockReleased,
		EntityType: msg.EntityType,
		EntityID:   msg.EntityID,
		Field:      msg.Field,
		UserID:     c.UserID,
	})

	if state.Activity != nil {
		state.Activity.Record(structs.TypeUnlock, msg.EntityType, msg.EntityID, c.UserID)
	}
}
