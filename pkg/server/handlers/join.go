package handlers

import (
	"github.com/AGDonato/Synapse-sub011/pkg/server/message"
	"github.com/AGDonato/Synapse-sub011/pkg/server/session"
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// Join adds the session to the entity's room. The sender gets a "joined"
// confirmation carrying the authoritative participant list; everyone already
// in the room gets a "user_joined" event.
func Join(state *structs.Server, c *structs.Client, msg structs.Message) {
	if msg.EntityType == "" || msg.EntityID == 0 {
		message.Send(c, structs.Message{Type: "warning", Reason: "join requires entityType and entityId"})
		return
	}

	users, others := session.JoinRoom(state, c, msg.EntityType, msg.EntityID)

	message.Send(c, structs.Message{
		Type:       structs.TypeJoined,
		EntityType: msg.EntityType,
		EntityID:   msg.EntityID,
		Users:      users,
	})

	message.Broadcast(others, structs.Message{
		Type:       structs.TypeUserJoined,
		EntityType: msg.EntityType,
		EntityID:   msg.EntityID,
		UserID:     c.UserID,
		UserName:   c.UserName,
	})

	if state.Activity != nil {
		state.Activity.Record(structs.TypeJoin, msg.EntityType, msg.EntityID, c.UserID)
	}
}
