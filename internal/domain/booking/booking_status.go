package booking

import (
	"fmt"

	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/domain"
)

// Status represents the current state of a booking in its lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
	StatusExpired   Status = "expired"
)

// validTransitions defines the state machine for booking status transitions.
// The lifecycle moves forward only; cancellation and expiry are the escape
// hatches from non-terminal states.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusRejected, StatusCancelled, StatusExpired},
	StatusApproved:  {StatusConfirmed, StatusCancelled, StatusExpired},
	StatusConfirmed: {StatusActive, StatusCancelled, StatusExpired},
	StatusActive:    {StatusCompleted, StatusCancelled, StatusExpired},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusRejected:  {},
	StatusExpired:   {},
}

// NonTerminalStatuses are the statuses that block a car's availability.
func NonTerminalStatuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusConfirmed, StatusActive}
}

// IsValid returns true if the status is a recognized booking status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, t := range allowed {
		if t == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if no further transitions are possible from this status.
func (s Status) IsTerminal() bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return true
	}
	return len(allowed) == 0
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus converts a string to a Status, returning an error if invalid.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid booking status: %s", s)
	}
	return status, nil
}

// Actor identifies who is driving a booking status transition.
type Actor string

const (
	ActorRenter  Actor = "renter"
	ActorOwner   Actor = "owner"
	ActorAdmin   Actor = "admin"
	ActorSystem  Actor = "system"
	ActorPayment Actor = "payment"
)

// AuthorizeTransition checks whether the actor may drive the from→to
// transition. State legality is checked first, then the actor table.
func AuthorizeTransition(actor Actor, from, to Status) error {
	if !from.CanTransitionTo(to) {
		return domain.NewInvalidStateError(string(from), string(to))
	}

	allowed := false
	switch to {
	case StatusApproved, StatusRejected:
		allowed = actor == ActorOwner || actor == ActorAdmin

	case StatusCancelled:
		switch actor {
		case ActorRenter:
			allowed = from == StatusPending || from == StatusApproved || from == StatusConfirmed
		case ActorOwner:
			allowed = from == StatusPending || from == StatusApproved
		case ActorAdmin:
			allowed = !from.IsTerminal()
		}

	case StatusConfirmed:
		allowed = actor == ActorPayment || actor == ActorAdmin

	case StatusActive:
		allowed = actor == ActorOwner || actor == ActorAdmin || actor == ActorSystem

	case StatusCompleted:
		allowed = actor == ActorOwner || actor == ActorAdmin || actor == ActorSystem

	case StatusExpired:
		allowed = actor == ActorSystem
	}

	if !allowed {
		return domain.NewInvalidStateError(string(from), string(to))
	}
	return nil
}
