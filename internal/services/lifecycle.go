package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kwamina/staybay/internal/models"
)

// MinCancelLead is the minimum lead time before check-in for a
// client-initiated cancellation. Owners are not time-restricted.
const MinCancelLead = 48 * time.Hour

type CancellationPolicy struct {
	MinLead time.Duration
}

func NewCancellationPolicy() CancellationPolicy {
	return CancellationPolicy{MinLead: MinCancelLead}
}

// LeadTimeOK compares real elapsed time, not calendar days, so 47h before
// check-in fails while 49h passes.
func (p CancellationPolicy) LeadTimeOK(checkIn, now time.Time) bool {
	return checkIn.Sub(now) >= p.MinLead
}

// transition is one row of the state machine: which actor may move a
// booking from one status to another, and whether the client-side
// cancellation window applies.
type transition struct {
	from        models.BookingStatus
	action      models.BookingAction
	to          models.BookingStatus
	ownerMay    bool
	clientMay   bool
	clientGuard bool
}

// The single source of truth for who may do what. Role checks live here
// rather than being re-derived at call sites.
var transitions = []transition{
	{from: models.BookingPending, action: models.ActionConfirm, to: models.BookingConfirmed, ownerMay: true},
	{from: models.BookingPending, action: models.ActionCancel, to: models.BookingCancelled, ownerMay: true, clientMay: true, clientGuard: true},
	{from: models.BookingConfirmed, action: models.ActionCancel, to: models.BookingCancelled, ownerMay: true, clientMay: true, clientGuard: true},
}

type Lifecycle struct {
	policy CancellationPolicy
	now    func() time.Time
}

func NewLifecycle(policy CancellationPolicy) *Lifecycle {
	return &Lifecycle{
		policy: policy,
		now:    time.Now,
	}
}

// Apply validates a requested transition against the booking's current
// status and the actor's relationship to it. On success it returns the
// target status and, for cancellations, the actor to record as cancelled_by.
// It never mutates the booking; persisting the result is the caller's job.
func (l *Lifecycle) Apply(booking *models.Booking, actorID uuid.UUID, action models.BookingAction) (models.BookingStatus, *uuid.UUID, error) {
	// A stranger to the booking gets a permission error in every state;
	// that failure is never fixable by retrying as the same actor.
	if !booking.IsParty(actorID) {
		return "", nil, fmt.Errorf("actor %s is not a party to booking %s: %w", actorID, booking.ID, models.ErrForbidden)
	}

	if booking.Status == models.BookingCancelled {
		return "", nil, fmt.Errorf("booking %s is cancelled and cannot change state: %w", booking.ID, models.ErrConflict)
	}

	row, ok := l.lookup(booking.Status, action)
	if !ok {
		return "", nil, fmt.Errorf("cannot %s a %s booking: %w", action, booking.Status, models.ErrConflict)
	}

	switch {
	case booking.IsOwner(actorID):
		if !row.ownerMay {
			return "", nil, fmt.Errorf("owner may not %s: %w", action, models.ErrForbidden)
		}
	case booking.IsClient(actorID):
		if !row.clientMay {
			return "", nil, fmt.Errorf("client may not %s: %w", action, models.ErrForbidden)
		}
		if row.clientGuard && !l.policy.LeadTimeOK(booking.CheckIn, l.now()) {
			return "", nil, fmt.Errorf("check-in is less than %v away: %w", l.policy.MinLead, models.ErrPolicy)
		}
	}

	var cancelledBy *uuid.UUID
	if action == models.ActionCancel {
		id := actorID
		cancelledBy = &id
	}

	return row.to, cancelledBy, nil
}

func (l *Lifecycle) lookup(from models.BookingStatus, action models.BookingAction) (transition, bool) {
	for _, row := range transitions {
		if row.from == from && row.action == action {
			return row, true
		}
	}
	return transition{}, false
}
