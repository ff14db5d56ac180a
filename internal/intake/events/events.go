// Package events records the outcome of each lookup step of an intake
// session. Events are emitted after the snapshot changes and fan out to an
// in-memory store and, when configured, a Kafka topic.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"solarintake/internal/geodesy"
	"solarintake/internal/intake/models"
)

// Type names one resolution outcome.
type Type string

const (
	AddressResolved    Type = "address_resolved"
	PostalLookupFailed Type = "postal_lookup_failed"
	CoordinateResolved Type = "coordinate_resolved"
	GeocodingFailed    Type = "geocoding_failed"
)

// Event is transport-agnostic; sinks serialize it as JSON.
type Event struct {
	ID         uuid.UUID               `json:"id"`
	Type       Type                    `json:"type"`
	SessionID  uuid.UUID               `json:"session_id"`
	Generation uint64                  `json:"generation"`
	OccurredAt time.Time               `json:"occurred_at"`
	RequestID  string                  `json:"request_id,omitempty"`
	PostalCode string                  `json:"postal_code,omitempty"`
	Query      string                  `json:"query,omitempty"`
	Address    *models.AddressFragment `json:"address,omitempty"`
	Coordinate *geodesy.Coordinate     `json:"coordinate,omitempty"`
	Projected  *geodesy.Projected      `json:"projected,omitempty"`
	Reason     string                  `json:"reason,omitempty"`
}

// Sink persists or forwards events.
type Sink interface {
	Append(ctx context.Context, e Event) error
}

// Emitter is what the orchestrator depends on.
type Emitter interface {
	Emit(ctx context.Context, e Event) error
}
