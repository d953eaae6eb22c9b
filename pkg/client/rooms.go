package client

import (
	"context"
	"slices"

	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// roomState is the local projection of one room's presence. It is a cache
// of server-pushed events, never a source of truth.
type roomState struct {
	entityType string
	entityID   int64
	users      []structs.Participant
}

// JoinEntity announces the local participant in the entity's room and
// suspends until the server confirms with the authoritative participant
// list, which replaces the local one.
func (c *Client) JoinEntity(ctx context.Context, entityType string, entityID int64) error {
	key := "join:" + structs.EntityKey(entityType, entityID)
	_, err := c.await(ctx, key, structs.Message{
		Type:       structs.TypeJoin,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     c.cfg.UserID,
		UserName:   c.cfg.UserName,
	})
	if err != nil {
		return err
	}

	c.report("collaboration_joined", map[string]any{
		"entityType": entityType,
		"entityId":   entityID,
	})
	return nil
}

// LeaveEntity leaves the room without waiting for acknowledgment. The local
// room is dropped immediately, along with any locks the local user still
// holds on the entity.
func (c *Client) LeaveEntity(entityType string, entityID int64) {
	key := structs.EntityKey(entityType, entityID)

	c.mu.Lock()
	delete(c.rooms, key)
	var held []structs.Lock
	for lockKey, lock := range c.locks {
		if lock.OwnerID == c.cfg.UserID && structs.EntityKey(lock.EntityType, lock.EntityID) == key {
			delete(c.locks, lockKey)
			held = append(held, lock)
		}
	}
	c.mu.Unlock()

	for _, lock := range held {
		err := c.send(structs.Message{
			Type:       structs.TypeUnlock,
			EntityType: lock.EntityType,
			EntityID:   lock.EntityID,
			Field:      lock.Field,
			UserID:     c.cfg.UserID,
		})
		if err != nil {
			c.log.WithError(err).Warnf("Failed to release %s on leave", lock.Key())
		}
	}

	err := c.send(structs.Message{
		Type:       structs.TypeLeave,
		EntityType: entityType,
		EntityID:   entityID,
		UserID:     c.cfg.UserID,
	})
	if err != nil {
		c.log.WithError(err).Warn("Dropping leave while not connected")
	}

	c.report("collaboration_left", map[string]any{
		"entityType": entityType,
		"entityId":   entityID,
	})
}

// RoomUsers returns the cached participant list for the entity's room.
func (c *Client) RoomUsers(entityType string, entityID int64) []structs.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()

	rs := c.rooms[structs.EntityKey(entityType, entityID)]
	if rs == nil {
		return nil
	}
	return slices.Clone(rs.users)
}

func (c *Client) handleJoined(msg structs.Message) {
	key := structs.EntityKey(msg.EntityType, msg.EntityID)

	c.mu.Lock()
	rs := c.rooms[key]
	if rs == nil {
		rs = &roomState{entityType: msg.EntityType, entityID: msg.EntityID}
		c.rooms[key] = rs
	}
	// Replace, never merge: the server list is authoritative.
	rs.users = slices.Clone(msg.Users)
	c.mu.Unlock()

	c.resolvePending("join:"+key, msg)
	c.bus.emit(structs.TypeJoined, msg)
}

func (c *Client) handleUserJoined(msg structs.Message) {
	key := structs.EntityKey(msg.EntityType, msg.EntityID)

	c.mu.Lock()
	if rs := c.rooms[key]; rs != nil {
		present := false
		for _, u := range rs.users {
			if u.UserID == msg.UserID {
				present = true
				break
			}
		}
		if !present {
			rs.users = append(rs.users, structs.Participant{UserID: msg.UserID, UserName: msg.UserName})
		}
	}
	c.mu.Unlock()

	c.bus.emit(structs.TypeUserJoined, msg)
}

func (c *Client) handleUserLeft(msg structs.Message) {
	key := structs.EntityKey(msg.EntityType, msg.EntityID)

	c.mu.Lock()
	if rs := c.rooms[key]; rs != nil {
		rs.users = slices.DeleteFunc(rs.users, func(u structs.Participant) bool {
			return u.UserID == msg.UserID
		})
	}
	// The departed user's cursor is no longer meaningful.
	delete(c.cursors, msg.UserID)
	c.mu.Unlock()

	c.bus.emit(structs.TypeUserLeft, msg)
}
