// Package audit keeps an append-only trail of catalog and order changes in
// MongoDB. Writes are best effort: a failed audit write never fails the
// business operation that triggered it.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Action names recorded in the trail.
const (
	ActionOrderPlaced  = "order.placed"
	ActionSweetCreated = "sweet.created"
	ActionSweetUpdated = "sweet.updated"
	ActionSweetDeleted = "sweet.deleted"
)

// Entry is one audit record.
type Entry struct {
	ID        string         `bson:"_id,omitempty" json:"id"`
	Action    string         `bson:"action" json:"action"`
	EntityID  string         `bson:"entity_id" json:"entityId"`
	ActorID   string         `bson:"actor_id,omitempty" json:"actorId,omitempty"`
	Data      map[string]any `bson:"data,omitempty" json:"data,omitempty"`
	CreatedAt time.Time      `bson:"created_at" json:"createdAt"`
}

// Recorder appends entries to the trail.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Reader lists entries for a single entity, newest first.
type Reader interface {
	ListByEntity(ctx context.Context, entityID string, limit int64) ([]Entry, error)
}

// Store is the full audit surface.
type Store interface {
	Recorder
	Reader
}

// NewEntry stamps an entry for the given action and entity.
func NewEntry(action string, entityID uuid.UUID, actorID uuid.UUID, data map[string]any) Entry {
	entry := Entry{
		Action:    action,
		EntityID:  entityID.String(),
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}
	if actorID != uuid.Nil {
		entry.ActorID = actorID.String()
	}
	return entry
}

// Nop discards every entry. Used when no Mongo URI is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) ListByEntity(context.Context, string, int64) ([]Entry, error) { return []Entry{}, nil }
