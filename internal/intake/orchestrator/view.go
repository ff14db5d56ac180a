package orchestrator

import (
	"github.com/google/uuid"

	"solarintake/internal/geodesy"
	"solarintake/internal/intake/models"
	"solarintake/internal/intake/validation"
)

// State is where a resolution branch currently is.
type State string

const (
	StateIdle            State = "idle"
	StatePendingDebounce State = "pending_debounce"
	StateResolving       State = "resolving"
)

// Outcome is how the last completed cycle of a branch ended.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeResolved Outcome = "resolved"
	OutcomeFailed   Outcome = "failed"
)

type BranchStatus struct {
	State      State   `json:"state"`
	Outcome    Outcome `json:"outcome,omitempty"`
	Generation uint64  `json:"generation"`
}

type FieldError struct {
	Kind    validation.ErrorKind `json:"kind"`
	Message string               `json:"message"`
}

// View is an immutable copy of the session state. Version increases with
// every change so observers can drop out-of-order deliveries.
type View struct {
	SessionID  uuid.UUID                       `json:"session_id"`
	Version    uint64                          `json:"version"`
	Snapshot   models.Snapshot                 `json:"snapshot"`
	Errors     map[models.FieldName]FieldError `json:"errors,omitempty"`
	Coordinate *geodesy.Coordinate             `json:"coordinate,omitempty"`
	Projection *geodesy.Projected              `json:"projection,omitempty"`
	Postal     BranchStatus                    `json:"postal"`
	Geocoding  BranchStatus                    `json:"geocoding"`
}

// Resolving reports whether either lookup is pending or in flight.
func (v View) Resolving() bool {
	return v.Postal.State != StateIdle || v.Geocoding.State != StateIdle
}
