package models

import (
	"time"

	"github.com/farmstore/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BaseModel holds the id and timestamps every table carries, stored in UTC
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt.UTC(), UpdatedAt: m.UpdatedAt.UTC()}
}

// FromDomainBaseEntity copies e, stamping missing timestamps with now
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	if e.UpdatedAt.IsZero() {
		e.Touch(time.Now())
	}
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt.UTC()
	m.UpdatedAt = e.UpdatedAt.UTC()
}
