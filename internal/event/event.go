// Package event carries role and user change notifications to open consoles
// and to other API instances.
package event

import (
	"context"
	"errors"
	"sync"
	"time"
)

type Type string

const (
	RoleCreated      Type = "role_created"
	RoleUpdated      Type = "role_updated"
	RoleDeleted      Type = "role_deleted"
	UserRolesChanged Type = "user_roles_changed"
	UserDeleted      Type = "user_deleted"
	UserStatus       Type = "user_status_update"
)

// Event is published only after the store acknowledged the write it
// describes.
type Event struct {
	Type   Type      `json:"type"`
	RoleID string    `json:"role_id,omitempty"`
	UserID string    `json:"user_id,omitempty"`
	Status string    `json:"status,omitempty"`
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

// Types lists the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
