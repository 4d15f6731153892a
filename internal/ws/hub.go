package ws

import "sync"

// Client is one WebSocket connection. A user may hold several.
type Client struct {
	UserID uint
	Send   chan []byte
	mu     sync.Mutex
	closed bool
}

func NewClient(userID uint) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, 256)}
}

// Deliver queues data without blocking. It reports false when the client is closed
// or its buffer is full; slow readers miss frames rather than stall the room.
func (c *Client) Deliver(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}
