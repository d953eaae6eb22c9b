package handlers

import (
	"crypto/rand"
	"fmt"
	"log"
	"time"

	"github.com/AGDonato/Synapse-sub011/pkg/server/message"
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
	"github.com/oklog/ulid/v2"
)

// Lock arbitrates a pessimistic lock request on an entity or entity field.
// At most one lock may exist per (entityType, entityId, field) key; the
// grant is broadcast to the whole room so every participant's mirror stays
// current, while a denial goes to the requester alone.
func Lock(state *structs.Server, c *structs.Client, msg structs.Message) {
	key := structs.LockKey(msg.EntityType, msg.EntityID, msg.Field)

	state.Lock.Lock()
	existing := state.Locks[key]
	if existing != nil && existing.OwnerID != c.UserID {
		owner := existing.OwnerID
		ownerName := existing.OwnerName
		state.Lock.Unlock()

		message.Send(c, structs.Message{
			Type:       structs.TypeLockFailed,
			EntityType: msg.EntityType,
			EntityID:   msg.EntityID,
			Field:      msg.Field,
			Reason:     fmt.Sprintf("being edited by %s", ownerName),
			LockedBy:   owner,
		})
		return
	}

	lock := existing
	if lock == nil {
		lock = &structs.Lock{
			EntityType: msg.EntityType,
			EntityID:   msg.EntityID,
			Field:      msg.Field,
			OwnerID:    c.UserID,
			OwnerName:  c.UserName,
			LockID:     ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String(),
		}
		state.Locks[key] = lock
		log.Printf("Lock %s granted to %s as %s", key, c.UserID, lock.LockID)
	}
	state.Lock.Unlock()

	// Re-acquiring an already-held lock confirms the existing grant.
	grant := structs.Message{
		Type:       structs.TypeLockAcquired,
		EntityType: msg.EntityType,
		EntityID:   msg.EntityID,
		Field:      msg.Field,
		UserID:     lock.OwnerID,
		UserName:   lock.OwnerName,
		LockID:     lock.LockID,
	}
	message.Send(c, grant)
	broadcastToRoom(state, c, grant)

	if state.Activity != nil {
		state.Activity.Record(structs.TypeLock, msg.EntityType, msg.EntityID, c.UserID)
	}
}
