package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kwamina/staybay/internal/models"
)

type BookingService struct {
	bookingRepo  models.BookingRepo
	propertyRepo models.PropertyRepo
	lifecycle    *Lifecycle
	// propertyLocks serializes check-then-insert per property; bookingLocks
	// serializes transitions per booking. Different keys never contend.
	propertyLocks *keyedLocks
	bookingLocks  *keyedLocks
	now           func() time.Time
}

func NewBookingService(bookingRepo models.BookingRepo, propertyRepo models.PropertyRepo) *BookingService {
	return &BookingService{
		bookingRepo:   bookingRepo,
		propertyRepo:  propertyRepo,
		lifecycle:     NewLifecycle(NewCancellationPolicy()),
		propertyLocks: newKeyedLocks(),
		bookingLocks:  newKeyedLocks(),
		now:           time.Now,
	}
}

// CreateBooking validates the request, snapshots the property owner, checks
// the candidate range against blocking bookings and persists a new pending
// booking. The overlap check and the insert run inside the property's
// critical section so two racing requests cannot both pass the check.
func (bs *BookingService) CreateBooking(ctx context.Context, clientID uuid.UUID, input *models.CreateBookingInput) (*models.Booking, error) {
	if clientID == uuid.Nil {
		return nil, fmt.Errorf("client ID is required: %w", models.ErrValidation)
	}
	if err := models.Validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%v: %w", err, models.ErrValidation)
	}
	if err := bs.validateRange(input.CheckIn, input.CheckOut); err != nil {
		return nil, err
	}
	if !input.CheckIn.After(bs.now()) {
		return nil, fmt.Errorf("check-in must be in the future: %w", models.ErrValidation)
	}

	property, err := bs.propertyRepo.GetPropertyByID(ctx, input.PropertyID)
	if err != nil {
		return nil, err
	}

	unlock := bs.propertyLocks.Lock(input.PropertyID.String())
	defer unlock()

	if err := bs.checkConflicts(ctx, input.PropertyID, input.CheckIn, input.CheckOut, uuid.Nil); err != nil {
		return nil, err
	}

	now := bs.now().UTC()
	booking := &models.Booking{
		ID:          uuid.New(),
		PropertyID:  input.PropertyID,
		ClientID:    clientID,
		OwnerID:     property.HostId,
		CheckIn:     input.CheckIn.UTC(),
		CheckOut:    input.CheckOut.UTC(),
		Status:      models.BookingPending,
		TotalAmount: input.TotalAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := bs.bookingRepo.InsertBooking(ctx, booking); err != nil {
		return nil, err
	}

	return booking, nil
}

// Transition moves a booking through the state machine on behalf of an
// actor. Transitions on the same booking are serialized; the repository
// update additionally carries a status precondition so a lost update
// surfaces as a conflict instead of silently winning.
func (bs *BookingService) Transition(ctx context.Context, bookingID, actorID uuid.UUID, action models.BookingAction) (*models.Booking, error) {
	if bookingID == uuid.Nil || actorID == uuid.Nil {
		return nil, fmt.Errorf("booking ID and actor ID are required: %w", models.ErrValidation)
	}
	if action != models.ActionConfirm && action != models.ActionCancel {
		return nil, fmt.Errorf("unknown action %q: %w", action, models.ErrValidation)
	}

	unlock := bs.bookingLocks.Lock(bookingID.String())
	defer unlock()

	booking, err := bs.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	to, cancelledBy, err := bs.lifecycle.Apply(booking, actorID, action)
	if err != nil {
		return nil, err
	}

	// Re-validate the range on confirm, ignoring the booking itself.
	if action == models.ActionConfirm {
		if err := bs.checkConflicts(ctx, booking.PropertyID, booking.CheckIn, booking.CheckOut, booking.ID); err != nil {
			return nil, err
		}
	}

	return bs.bookingRepo.UpdateBookingStatus(ctx, booking.ID, booking.Status, to, cancelledBy)
}

// CheckAvailability reports whether the property is free for the half-open
// range. Public and read-only.
func (bs *BookingService) CheckAvailability(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time) (bool, error) {
	if propertyID == uuid.Nil {
		return false, fmt.Errorf("property ID is required: %w", models.ErrValidation)
	}
	if err := bs.validateRange(checkIn, checkOut); err != nil {
		return false, err
	}

	err := bs.checkConflicts(ctx, propertyID, checkIn, checkOut, uuid.Nil)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, models.ErrConflict) {
		return false, nil
	}
	return false, err
}

func (bs *BookingService) GetDetails(ctx context.Context, bookingID, actorID uuid.UUID, isAdmin bool) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, fmt.Errorf("booking ID is required: %w", models.ErrValidation)
	}

	booking, err := bs.bookingRepo.GetBookingByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	if !isAdmin && !booking.IsParty(actorID) {
		return nil, fmt.Errorf("actor %s may not view booking %s: %w", actorID, bookingID, models.ErrForbidden)
	}

	return booking, nil
}

func (bs *BookingService) ListForOwner(ctx context.Context, ownerID uuid.UUID) ([]*models.Booking, error) {
	if ownerID == uuid.Nil {
		return nil, fmt.Errorf("owner ID is required: %w", models.ErrValidation)
	}
	return bs.bookingRepo.ListBookingsByOwner(ctx, ownerID)
}

func (bs *BookingService) ListForClient(ctx context.Context, clientID uuid.UUID) ([]*models.Booking, error) {
	if clientID == uuid.Nil {
		return nil, fmt.Errorf("client ID is required: %w", models.ErrValidation)
	}
	return bs.bookingRepo.ListBookingsByClient(ctx, clientID)
}

func (bs *BookingService) AdminListAll(ctx context.Context, statusFilter *models.BookingStatus) ([]*models.Booking, error) {
	if statusFilter != nil {
		switch *statusFilter {
		case models.BookingPending, models.BookingConfirmed, models.BookingCancelled:
		default:
			return nil, fmt.Errorf("unknown status %q: %w", *statusFilter, models.ErrValidation)
		}
	}
	return bs.bookingRepo.ListBookings(ctx, statusFilter)
}

// AdminStats aggregates counts straight from the store on every call.
func (bs *BookingService) AdminStats(ctx context.Context) (*models.BookingStats, error) {
	counts, err := bs.bookingRepo.CountBookingsByStatus(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.BookingStats{
		Pending:   counts[models.BookingPending],
		Confirmed: counts[models.BookingConfirmed],
		Cancelled: counts[models.BookingCancelled],
	}
	stats.Total = stats.Pending + stats.Confirmed + stats.Cancelled

	return stats, nil
}

func (bs *BookingService) validateRange(checkIn, checkOut time.Time) error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return fmt.Errorf("check-in and check-out are required: %w", models.ErrValidation)
	}
	if !checkIn.Before(checkOut) {
		return fmt.Errorf("check-in must be before check-out: %w", models.ErrValidation)
	}
	return nil
}

func (bs *BookingService) checkConflicts(ctx context.Context, propertyID uuid.UUID, checkIn, checkOut time.Time, excludeID uuid.UUID) error {
	blocking, err := bs.bookingRepo.FindBlocking(ctx, propertyID, excludeID)
	if err != nil {
		return err
	}

	for _, other := range blocking {
		if models.RangesOverlap(checkIn, checkOut, other.CheckIn, other.CheckOut) {
			return fmt.Errorf("range [%s, %s) overlaps booking %s: %w",
				checkIn.Format("2006-01-02"), checkOut.Format("2006-01-02"), other.ID, models.ErrConflict)
		}
	}

	return nil
}
