package client

import (
	"context"

	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// AcquireLock requests a pessimistic lock on the entity, or on one of its
// fields when field is non-empty. It resolves true on grant and false on
// denial; the server is the sole arbiter, so a lock is never assumed held
// before the confirmation arrives. Returns an error (not false) when the
// connection is not open.
func (c *Client) AcquireLock(ctx context.Context, entityType string, entityID int64, field string) (bool, error) {
	key := "lock:" + structs.LockKey(entityType, entityID, field)
	res, err := c.await(ctx, key, structs.Message{
		Type:       structs.TypeLock,
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		UserID:     c.cfg.UserID,
	})
	if err != nil {
		return false, err
	}
	return res.Type == structs.TypeLockAcquired, nil
}

// ReleaseLock releases a lock without waiting for acknowledgment. The local
// mirror is cleared immediately when the lock is ours; the server decides
// what the release actually means.
func (c *Client) ReleaseLock(entityType string, entityID int64, field string) {
	key := structs.LockKey(entityType, entityID, field)

	c.mu.Lock()
	if lock, ok := c.locks[key]; ok && lock.OwnerID == c.cfg.UserID {
		delete(c.locks, key)
	}
	c.mu.Unlock()

	err := c.send(structs.Message{
		Type:       structs.TypeUnlock,
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		UserID:     c.cfg.UserID,
	})
	if err != nil {
		c.log.WithError(err).Warn("Dropping unlock while not connected")
	}
}

// IsLocked reports whether the lock key is held by anyone, according to the
// local mirror of server lock events.
func (c *Client) IsLocked(entityType string, entityID int64, field string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.locks[structs.LockKey(entityType, entityID, field)]
	return ok
}

// LockOwner returns the user id holding the lock key, or "" when unlocked.
func (c *Client) LockOwner(entityType string, entityID int64, field string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locks[structs.LockKey(entityType, entityID, field)].OwnerID
}

// handleLockAcquired mirrors a grant, whether ours or another participant's.
// This is how a second editor discovers a field just became unavailable.
func (c *Client) handleLockAcquired(msg structs.Message) {
	key := structs.LockKey(msg.EntityType, msg.EntityID, msg.Field)

	c.mu.Lock()
	c.locks[key] = structs.Lock{
		EntityType: msg.EntityType,
		EntityID:   msg.EntityID,
		Field:      msg.Field,
		OwnerID:    msg.UserID,
		OwnerName:  msg.UserName,
		LockID:     msg.LockID,
	}
	c.mu.Unlock()

	if msg.UserID == c.cfg.UserID {
		c.resolvePending("lock:"+key, msg)
	}
	c.bus.emit(structs.TypeLockAcquired, msg)
}

// handleLockFailed resolves the requester's pending acquire as a denial.
// A denial is a normal negotiation outcome, not an error.
func (c *Client) handleLockFailed(msg structs.Message) {
	key := structs.LockKey(msg.EntityType, msg.EntityID, msg.Field)
	c.resolvePending("lock:"+key, msg)
	c.bus.emit(structs.TypeLockFailed, msg)
}

func (c *Client) handleLockReleased(msg structs.Message) {
	key := structs.LockKey(msg.EntityType, msg.EntityID, msg.Field)

	c.mu.Lock()
	delete(c.locks, key)
	c.mu.Unlock()

	c.report("collaboration_lock_released", map[string]any{
		"entityType": msg.EntityType,
		"entityId":   msg.EntityID,
		"field":      msg.Field,
		"userId":     msg.UserID,
	})
	c.bus.emit(structs.TypeLockReleased, msg)
}
