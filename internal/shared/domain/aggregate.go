package domain

// AggregateRoot is the consistency boundary that records domain events
// until the application layer drains them after a commit.
type AggregateRoot interface {
	Entity
	DomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot embeds BaseEntity and buffers pending events.
type BaseAggregateRoot struct {
	BaseEntity
	pending []DomainEvent
}

// NewBaseAggregateRoot creates an aggregate root with a new identity.
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity()}
}

// RehydrateBaseAggregateRoot wraps a rehydrated entity with an empty event buffer.
func RehydrateBaseAggregateRoot(entity BaseEntity) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: entity}
}

// DomainEvents returns events raised since the last clear.
func (a *BaseAggregateRoot) DomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops buffered events.
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}

// AddDomainEvent records an event.
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}
