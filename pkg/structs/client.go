package structs

import (
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// Client is one connected collaboration session on the server side.
type Client struct {
	Conn         *websocket.Conn
	Lock         *sync.Mutex
	TransmitLock *sync.Mutex
	SessionID    string
	UserID       string
	UserName     string

	// Keys of the rooms this session currently participates in.
	Rooms map[string]bool
}

// Identity returns the participant view of this session.
func (c *Client) Identity() Participant {
	return Participant{UserID: c.UserID, UserName: c.UserName}
}
