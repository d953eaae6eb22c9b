package client

import (
	"fmt"
	"time"

	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// BroadcastUpdate shares a full entity update with the room, stamped with
// the local identity, a client timestamp, and the tracked base version. It
// fails rather than queue while disconnected, and an unresolved conflict on
// the entity blocks the write until a decision is made.
func (c *Client) BroadcastUpdate(entityType string, entityID int64, data map[string]any) error {
	key := structs.EntityKey(entityType, entityID)

	c.mu.Lock()
	if _, blocked := c.conflicts[key]; blocked {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConflictPending, key)
	}
	var version int64
	if es := c.entities[key]; es != nil {
		version = es.version
		es.data = data
	}
	c.mu.Unlock()

	err := c.send(structs.Message{
		Type:       structs.TypeUpdate,
		EntityType: entityType,
		EntityID:   entityID,
		Data:       data,
		Version:    version,
		UserID:     c.cfg.UserID,
		Timestamp:  time.Now().UnixMilli(),
	})
	if err != nil {
		c.log.WithError(err).Warn("Dropping update broadcast while not connected")
	}
	return err
}

// BroadcastFieldOperation shares a single-field edit with the room. Same
// delivery semantics as BroadcastUpdate.
func (c *Client) BroadcastFieldOperation(entityType string, entityID int64, field string, value any, operation string) error {
	key := structs.EntityKey(entityType, entityID)

	c.mu.Lock()
	if _, blocked := c.conflicts[key]; blocked {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrConflictPending, key)
	}
	c.mu.Unlock()

	err := c.send(structs.Message{
		Type:       structs.TypeFieldOperation,
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		Value:      value,
		Operation:  operation,
		UserID:     c.cfg.UserID,
		Timestamp:  time.Now().UnixMilli(),
	})
	if err != nil {
		c.log.WithError(err).Warn("Dropping field operation while not connected")
	}
	return err
}
