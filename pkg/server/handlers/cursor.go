package handlers

import (
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// Cursor relays a participant's editing position. Cursor frames are a
// transient UX hint; they are never stored server-side.
func Cursor(state *structs.Server, c *structs.Client, msg structs.Message) {
	msg.UserID = c.UserID
	broadcastToRoom(state, c, msg)
}
