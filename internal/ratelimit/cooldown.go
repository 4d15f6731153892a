// Package ratelimit holds the chat-creation cool-down: at most one new chat per
// customer and lawyer within a window.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Store reserves a key until now+ttl. Reserve reports false while an earlier
// reservation for the key is still live. Release drops a reservation early.
type Store interface {
	Reserve(ctx context.Context, key string, ttl time.Duration, now time.Time) (bool, error)
	Release(ctx context.Context, key string) error
}

type Cooldown struct {
	store  Store
	window time.Duration
	now    func() time.Time
}

// NewCooldown builds a cool-down over store. A nil clock uses time.Now.
func NewCooldown(store Store, window time.Duration, clock func() time.Time) *Cooldown {
	if clock == nil {
		clock = time.Now
	}
	return &Cooldown{store: store, window: window, now: clock}
}

// Allow consumes the cool-down for (customerID, lawyerID) and reports whether a chat may be created.
func (c *Cooldown) Allow(ctx context.Context, customerID, lawyerID uint) (bool, error) {
	if c.window <= 0 {
		return true, nil
	}
	return c.store.Reserve(ctx, Key(customerID, lawyerID), c.window, c.now())
}

// Release gives the window back, for a reservation whose chat was never created.
func (c *Cooldown) Release(ctx context.Context, customerID, lawyerID uint) error {
	if c.window <= 0 {
		return nil
	}
	return c.store.Release(ctx, Key(customerID, lawyerID))
}

func Key(customerID, lawyerID uint) string {
	return fmt.Sprintf("chat_cooldown:%d:%d", customerID, lawyerID)
}
