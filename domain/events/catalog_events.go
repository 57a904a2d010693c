package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"catalog-backend/domain/catalog"
)

// DomainEvent is something that already happened to the catalog.
type DomainEvent interface {
	GetEventID() string
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
}

// BaseEvent holds the fields every event carries.
type BaseEvent struct {
	EventID     string    `json:"event_id"`
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e BaseEvent) GetEventID() string      { return e.EventID }
func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }

// EntityKind names the catalog table a change touched.
type EntityKind string

const (
	EntityItem  EntityKind = "item"
	EntityBrand EntityKind = "brand"
	EntityType  EntityKind = "type"
	EntityCache EntityKind = "cache"
)

// Action is the kind of write performed.
type Action string

const (
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionDeleted     Action = "deleted"
	ActionInvalidated Action = "invalidated"
)

// EventTypeCatalogChanged is the detail type of CatalogChanged.
const EventTypeCatalogChanged = "catalog.changed"

// CatalogChanged is raised after a committed catalog write.
type CatalogChanged struct {
	BaseEvent
	Scope    catalog.ChangeScope `json:"scope"`
	Entity   EntityKind          `json:"entity"`
	EntityID int                 `json:"entity_id,omitempty"`
	Action   Action              `json:"action"`
}

// NewCatalogChanged creates a CatalogChanged event with a fresh id.
func NewCatalogChanged(scope catalog.ChangeScope, entity EntityKind, entityID int, action Action, timestamp time.Time) CatalogChanged {
	aggregateID := string(entity)
	if entityID > 0 {
		aggregateID += "#" + strconv.Itoa(entityID)
	}
	return CatalogChanged{
		BaseEvent: BaseEvent{
			EventID:     uuid.NewString(),
			AggregateID: aggregateID,
			EventType:   EventTypeCatalogChanged,
			Timestamp:   timestamp,
		},
		Scope:    scope,
		Entity:   entity,
		EntityID: entityID,
		Action:   action,
	}
}

// ScopeFor maps the touched entity kind to the cache scope it affects.
func ScopeFor(entity EntityKind) catalog.ChangeScope {
	switch entity {
	case EntityItem:
		return catalog.ItemsOnly
	case EntityBrand:
		return catalog.BrandsChanged
	case EntityType:
		return catalog.TypesChanged
	default:
		return catalog.All
	}
}
