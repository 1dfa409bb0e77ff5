package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/shared"
)

// AggregateColumns are the identity, timestamp and optimistic-lock columns
// every aggregate table carries. Embed it in the table model.
type AggregateColumns struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

// Root rebuilds the domain root; pending events are never persisted.
func (c *AggregateColumns) Root() shared.BaseAggregateRoot {
	entity := shared.BaseEntity{ID: c.ID, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
	return shared.RestoreAggregateRoot(entity, c.Version)
}

func (c *AggregateColumns) SetRoot(r shared.BaseAggregateRoot) {
	*c = columnsOf(r)
}

func columnsOf(r shared.BaseAggregateRoot) AggregateColumns {
	return AggregateColumns{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, Version: r.Version}
}
