package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	BookingDbName  = "staybay"
	BookingColName = "bookings"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type BookingAction string

const (
	ActionConfirm BookingAction = "confirm"
	ActionCancel  BookingAction = "cancel"
)

type Booking struct {
	ID         uuid.UUID `bson:"_id" json:"id"`
	PropertyID uuid.UUID `bson:"property_id" json:"property_id"`
	ClientID   uuid.UUID `bson:"client_id" json:"client_id"`
	// Owner of the property at creation time. A later ownership transfer
	// does not change past bookings.
	OwnerID     uuid.UUID     `bson:"owner_id" json:"owner_id"`
	CheckIn     time.Time     `bson:"check_in" json:"check_in"`
	CheckOut    time.Time     `bson:"check_out" json:"check_out"`
	Status      BookingStatus `bson:"status" json:"status"`
	CancelledBy *uuid.UUID    `bson:"cancelled_by,omitempty" json:"cancelled_by,omitempty"`
	TotalAmount float64       `bson:"total_amount" json:"total_amount"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updated_at"`
}

type CreateBookingInput struct {
	PropertyID  uuid.UUID `json:"property_id" validate:"required"`
	CheckIn     time.Time `json:"check_in" validate:"required"`
	CheckOut    time.Time `json:"check_out" validate:"required"`
	TotalAmount float64   `json:"total_amount" validate:"required,gt=0"`
}

// Blocking reports whether the booking occupies calendar time on its
// property. Cancelled bookings release their date range.
func (b *Booking) Blocking() bool {
	return b.Status == BookingPending || b.Status == BookingConfirmed
}

func (b *Booking) IsOwner(actorID uuid.UUID) bool {
	return b.OwnerID == actorID
}

func (b *Booking) IsClient(actorID uuid.UUID) bool {
	return b.ClientID == actorID
}

// IsParty reports whether the actor is one of the two parties on the booking.
func (b *Booking) IsParty(actorID uuid.UUID) bool {
	return b.IsOwner(actorID) || b.IsClient(actorID)
}

type BookingStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Confirmed int64 `json:"confirmed"`
	Cancelled int64 `json:"cancelled"`
}

// RangesOverlap reports whether the half-open ranges [aStart, aEnd) and
// [bStart, bEnd) share time. Touching endpoints (one checkout equal to the
// other's check-in) do not overlap.
func RangesOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}
