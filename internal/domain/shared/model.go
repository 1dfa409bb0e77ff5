package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity is embedded by every persisted domain type
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewBaseEntity() BaseEntity {
	now := time.Now().UTC()
	return BaseEntity{ID: uuid.New(), CreatedAt: now, UpdatedAt: now}
}

// Touch marks the entity as modified now
func (e *BaseEntity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// BaseAggregateRoot adds an optimistic-lock version and the events raised
// since the aggregate was loaded. Services publish the events after the
// transaction that saved the aggregate commits.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	// stored is the version the row had when loaded or last saved; zero
	// for an aggregate that was never persisted.
	stored  int
	pending []DomainEvent
}

func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(), Version: 1}
}

// RestoreAggregateRoot rebuilds a root read from storage at version.
func RestoreAggregateRoot(entity BaseEntity, version int) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: entity, Version: version, stored: version}
}

func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

// StoredVersion is the version the stored row must still have for a save
// of this aggregate to succeed.
func (a *BaseAggregateRoot) StoredVersion() int { return a.stored }

// NextVersion makes sure Version moves past the stored one and returns it.
func (a *BaseAggregateRoot) NextVersion() int {
	if a.Version <= a.stored {
		a.Version = a.stored + 1
	}
	return a.Version
}

// MarkStored records that the current version has been written.
func (a *BaseAggregateRoot) MarkStored() { a.stored = a.Version }

// Record queues an event for publishing
func (a *BaseAggregateRoot) Record(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns the queued events without clearing them
func (a *BaseAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// PullDomainEvents hands over the queued events and empties the queue
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
