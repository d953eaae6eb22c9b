package client

import (
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// Cursor is the last-known editing position of one remote participant.
type Cursor struct {
	UserID   string
	Field    string
	Position structs.Position
}

// BroadcastCursor shares the local editing position. Fire-and-forget: a
// cursor is a transient UX hint, so there is no confirmation and no queue.
func (c *Client) BroadcastCursor(entityType string, entityID int64, field string, start, end int) error {
	err := c.send(structs.Message{
		Type:       structs.TypeCursor,
		EntityType: entityType,
		EntityID:   entityID,
		Field:      field,
		Position:   &structs.Position{Start: start, End: end},
		UserID:     c.cfg.UserID,
	})
	if err != nil {
		c.log.WithError(err).Warn("Dropping cursor broadcast while not connected")
	}
	return err
}

// UserCursor returns the last-known cursor of the given participant.
func (c *Client) UserCursor(userID string) (Cursor, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cur, ok := c.cursors[userID]
	return cur, ok
}

// handleCursor overwrites the participant's cursor unconditionally:
// last write wins, arrival order is the only ordering.
func (c *Client) handleCursor(msg structs.Message) {
	cur := Cursor{UserID: msg.UserID, Field: msg.Field}
	if msg.Position != nil {
		cur.Position = *msg.Position
	}

	c.mu.Lock()
	c.cursors[msg.UserID] = cur
	c.mu.Unlock()

	c.bus.emit(structs.TypeCursor, msg)
}
