package handlers

import (
	"github.com/AGDonato/Synapse-sub011/pkg/server/message"
	"github.com/AGDonato/Synapse-sub011/pkg/structs"
)

// Ping answers a liveness probe, echoing the client's timestamp so the
// sender can match the pong to its ping.
func Ping(state *structs.Server, c *structs.Client, msg structs.Message) {
	message.Send(c, structs.Message{Type: structs.TypePong, Timestamp: msg.Timestamp})
}
