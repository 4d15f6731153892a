package ws

import "testing"

func TestChatHubBroadcast(t *testing.T) {
	h := NewChatHub()
	a, b, other := NewClient(1), NewClient(2), NewClient(3)
	room := h.Join(10, a)
	h.Join(10, b)
	h.Join(11, other)

	room.Broadcast(a, map[string]string{"type": "message"})
	if len(a.Send) != 0 {
		t.Error("sender received its own frame")
	}
	if got := string(<-b.Send); got != `{"type":"message"}` {
		t.Errorf("frame = %s", got)
	}
	if len(other.Send) != 0 {
		t.Error("frame leaked into another chat")
	}

	h.Publish(10, map[string]string{"type": "unlocked"})
	if len(a.Send) != 1 || len(b.Send) != 1 {
		t.Errorf("publish reached a=%d b=%d, want 1 each", len(a.Send), len(b.Send))
	}
}

func TestChatHubLeaveDropsEmptyRoom(t *testing.T) {
	h := NewChatHub()
	a, b := NewClient(1), NewClient(2)
	h.Join(5, a)
	h.Join(5, b)
	h.Leave(5, a)
	if h.RoomCount() != 1 {
		t.Fatalf("rooms = %d, want 1", h.RoomCount())
	}
	h.Leave(5, b)
	if h.RoomCount() != 0 {
		t.Fatalf("rooms = %d, want 0", h.RoomCount())
	}
	h.Publish(5, "ignored")
}

func TestClientDeliverAfterClose(t *testing.T) {
	c := NewClient(1)
	c.Close()
	c.Close()
	if c.Deliver([]byte("x")) {
		t.Error("delivered to a closed client")
	}
}

func TestClientDeliverFullBuffer(t *testing.T) {
	c := NewClient(1)
	for i := 0; i < cap(c.Send); i++ {
		if !c.Deliver([]byte("x")) {
			t.Fatalf("deliver %d failed", i)
		}
	}
	if c.Deliver([]byte("overflow")) {
		t.Error("deliver should drop when the buffer is full")
	}
}
