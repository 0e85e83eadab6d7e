// Package events publishes account lifecycle events for downstream
// consumers. Publishing is best effort: callers log failures and carry on.
package events

import (
	"context"
	"time"
)

type Type string

const (
	UserRegistered      Type = "user.registered"
	UserUpdated         Type = "user.updated"
	UserDeleted         Type = "user.deleted"
	UserActivated       Type = "user.activated"
	UserDeactivated     Type = "user.deactivated"
	UserPasswordChanged Type = "user.password_changed"
)

// Event describes one change to one account. ActorID is empty when the
// change was made by the account holder without an authenticated session
// (registration).
type Event struct {
	Type    Type      `json:"type"`
	UserID  string    `json:"user_id"`
	ActorID string    `json:"actor_id,omitempty"`
	At      time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
