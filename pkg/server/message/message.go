package message

import (
	"github.com/gofiber/fiber/v2/log"

	"github.com/AGDonato/Synapse-sub011/pkg/structs"
	"github.com/goccy/go-json"
	"github.com/gofiber/contrib/websocket"
)

// Send writes a single frame to the given session. Transmission is
// serialized per session so concurrent handlers never interleave frames.
func Send(c *structs.Client, msg structs.Message) {
	if c == nil {
		return
	}
	c.TransmitLock.Lock()
	defer c.TransmitLock.Unlock()

	raw, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("Marshal %s frame for %s: %s", msg.Type, c.SessionID, err.Error())
		return
	}
	if err := c.Conn.WriteMessage(websocket.TextMessage, raw); err != nil {
		log.Errorf("Write %s frame to %s: %s", msg.Type, c.SessionID, err.Error())
	}
}

// Read blocks until the next frame arrives and decodes it.
func Read(c *structs.Client) (structs.Message, error) {
	_, raw, err := c.Conn.ReadMessage()
	if err != nil {
		return structs.Message{}, err
	}

	var msg structs.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Errorf("Invalid message format from %s: %s", c.SessionID, err.Error())
		return structs.Message{}, err
	}

	return msg, nil
}

// Broadcast sends the frame to every given session.
func Broadcast(peers []*structs.Client, msg structs.Message) {
	for _, peer := range peers {
		Send(peer, msg)
	}
}
