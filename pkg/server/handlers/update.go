package handlers

import (
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// Update relays an entity update to the other participants in the room.
// The frame is forwarded as-is: the sender already stamped userId, timestamp
// and its base version, and version arbitration happens client-side.
func Update(state *structs.Server, c *structs.Client, msg structs.Message) {
	broadcastToRoom(state, c, msg)
}
