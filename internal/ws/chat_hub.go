package ws

import (
	"encoding/json"
	"sync"
)

// ChatRoom holds the live connections of one chat.
type ChatRoom struct {
	ChatID  uint
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

func NewChatRoom(chatID uint) *ChatRoom {
	return &ChatRoom{ChatID: chatID, clients: make(map[*Client]struct{})}
}

func (r *ChatRoom) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Broadcast sends payload to everyone in the room except from (nil sends to all).
func (r *ChatRoom) Broadcast(from *Client, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	r.mu.RLock()
	clients := make([]*Client, 0, len(r.clients))
	for c := range r.clients {
		if c != from {
			clients = append(clients, c)
		}
	}
	r.mu.RUnlock()
	for _, c := range clients {
		c.Deliver(data)
	}
}

// ChatHub holds the chat rooms that have at least one connection, by chat ID.
type ChatHub struct {
	mu    sync.Mutex
	rooms map[uint]*ChatRoom
}

func NewChatHub() *ChatHub {
	return &ChatHub{rooms: make(map[uint]*ChatRoom)}
}

func (h *ChatHub) Join(chatID uint, c *Client) *ChatRoom {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[chatID]
	if !ok {
		r = NewChatRoom(chatID)
		h.rooms[chatID] = r
	}
	r.mu.Lock()
	r.clients[c] = struct{}{}
	r.mu.Unlock()
	return r
}

// Leave removes c and drops the room once it is empty.
func (h *ChatHub) Leave(chatID uint, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.rooms[chatID]
	if !ok {
		return
	}
	r.mu.Lock()
	delete(r.clients, c)
	empty := len(r.clients) == 0
	r.mu.Unlock()
	if empty {
		delete(h.rooms, chatID)
	}
}

// Publish fans a payload out to every connection in the chat, if any.
func (h *ChatHub) Publish(chatID uint, payload interface{}) {
	h.mu.Lock()
	r := h.rooms[chatID]
	h.mu.Unlock()
	if r != nil {
		r.Broadcast(nil, payload)
	}
}

func (h *ChatHub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}
