package handlers

import (
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// FieldOperation relays a single-field edit to the other participants.
func FieldOperation(state *structs.Server, c *structs.Client, msg structs.Message) {
	broadcastToRoom(state, c, msg)
}
