package client

import (
	"fmt"
	"maps"
	"time"

	"github.com/AGDonato/Synapse-sub011/pkg/structs"
	"github.com/google/uuid"
)

// Decision is an explicit conflict resolution choice. The resolver never
// picks a default silently.
type Decision string

const (
	KeepMine     Decision = "keep-mine"
	AcceptTheirs Decision = "accept-theirs"
)

// Conflict captures a divergence between the locally tracked entity version
// and the version carried by a remote update. It exists until resolved by
// exactly one Decision; while it exists, writes to the entity are blocked.
type Conflict struct {
	ID            string
	EntityType    string
	EntityID      int64
	LocalVersion  int64
	RemoteVersion int64
	LocalValue    map[string]any
	RemoteValue   map[string]any
	RemoteUser    string
}

// entityState is the coordinator's view of an entity's persisted version
// and last local value. The CRUD layer owns the version; the coordinator
// only compares versions it is handed.
type entityState struct {
	version int64
	data    map[string]any
}

// TrackEntity registers the entity's current version and value as handed
// over by the data layer. Incoming updates for the entity are checked
// against this version from now on.
func (c *Client) TrackEntity(entityType string, entityID int64, version int64, data map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entities[structs.EntityKey(entityType, entityID)] = &entityState{
		version: version,
		data:    maps.Clone(data),
	}
}

// TrackedVersion returns the last version the coordinator holds for the
// entity, and whether the entity is tracked at all.
func (c *Client) TrackedVersion(entityType string, entityID int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	es := c.entities[structs.EntityKey(entityType, entityID)]
	if es == nil {
		return 0, false
	}
	return es.version, true
}

// PendingConflict returns a copy of the entity's unresolved conflict.
func (c *Client) PendingConflict(entityType string, entityID int64) (Conflict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cf := c.conflicts[structs.EntityKey(entityType, entityID)]
	if cf == nil {
		return Conflict{}, false
	}
	return *cf, true
}

// handleUpdate checks an incoming update against the tracked version. A
// remote version newer than ours is applied and republished; one that is
// not newer means both sides wrote from the same or an older base, so a
// conflict is raised for an explicit decision instead of guessing a winner.
func (c *Client) handleUpdate(msg structs.Message) {
	key := structs.EntityKey(msg.EntityType, msg.EntityID)

	c.mu.Lock()
	es := c.entities[key]
	if es == nil || msg.Version == 0 {
		c.mu.Unlock()
		c.bus.emit(structs.TypeUpdate, msg)
		return
	}

	if msg.Version > es.version {
		es.version = msg.Version
		es.data = msg.Data
		c.mu.Unlock()
		c.bus.emit(structs.TypeUpdate, msg)
		return
	}

	if _, exists := c.conflicts[key]; exists {
		// Resolved exactly once: keep the first case, drop the frame.
		c.mu.Unlock()
		return
	}

	cf := &Conflict{
		ID:            uuid.NewString(),
		EntityType:    msg.EntityType,
		EntityID:      msg.EntityID,
		LocalVersion:  es.version,
		RemoteVersion: msg.Version,
		LocalValue:    maps.Clone(es.data),
		RemoteValue:   msg.Data,
		RemoteUser:    msg.UserID,
	}
	c.conflicts[key] = cf
	snapshot := *cf
	c.mu.Unlock()

	c.bus.emit(EventConflict, snapshot)
}

// ResolveConflict applies the decision for the entity's pending conflict.
// KeepMine re-submits the local value under a version that supersedes the
// remote one; AcceptTheirs overwrites local state with the remote value.
// Either way the entity returns to a conflict-free state and writes unblock.
func (c *Client) ResolveConflict(entityType string, entityID int64, decision Decision) error {
	key := structs.EntityKey(entityType, entityID)

	c.mu.Lock()
	cf := c.conflicts[key]
	if cf == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoConflict, key)
	}

	switch decision {
	case AcceptTheirs:
		if es := c.entities[key]; es != nil {
			es.version = cf.RemoteVersion
			es.data = cf.RemoteValue
		}
		delete(c.conflicts, key)
		c.mu.Unlock()

		// Republish so the UI refreshes with the adopted remote value.
		c.bus.emit(structs.TypeUpdate, structs.Message{
			Type:       structs.TypeUpdate,
			EntityType: entityType,
			EntityID:   entityID,
			Data:       cf.RemoteValue,
			Version:    cf.RemoteVersion,
			UserID:     cf.RemoteUser,
		})
		return nil

	case KeepMine:
		newVersion := max(cf.LocalVersion, cf.RemoteVersion) + 1
		data := cf.LocalValue
		c.mu.Unlock()

		err := c.send(structs.Message{
			Type:       structs.TypeUpdate,
			EntityType: entityType,
			EntityID:   entityID,
			Data:       data,
			Version:    newVersion,
			UserID:     c.cfg.UserID,
			Timestamp:  time.Now().UnixMilli(),
		})
		if err != nil {
			// The conflict stays pending; the decision needs the wire.
			return err
		}

		c.mu.Lock()
		if es := c.entities[key]; es != nil {
			es.version = newVersion
			es.data = data
		}
		delete(c.conflicts, key)
		c.mu.Unlock()
		return nil

	default:
		c.mu.Unlock()
		return fmt.Errorf("unknown conflict decision %q", decision)
	}
}
