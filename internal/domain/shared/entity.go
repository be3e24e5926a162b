package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity carries the identity and timestamps shared by persisted records.
// Timestamps are kept in UTC.
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewBaseEntity creates a base entity with a generated ID
func NewBaseEntity() BaseEntity {
	return NewBaseEntityWithID(uuid.Nil)
}

// NewBaseEntityWithID uses id when set, generating one otherwise.
// Clients that work offline assign order ids themselves.
func NewBaseEntityWithID(id uuid.UUID) BaseEntity {
	if id == uuid.Nil {
		id = uuid.New()
	}
	now := time.Now().UTC()
	return BaseEntity{ID: id, CreatedAt: now, UpdatedAt: now}
}

// HasID reports whether an identity has been assigned
func (e *BaseEntity) HasID() bool {
	return e.ID != uuid.Nil
}

// Touch records a write at now, stamping CreatedAt too on first write
func (e *BaseEntity) Touch(now time.Time) {
	now = now.UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
}
