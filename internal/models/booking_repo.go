package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BookingRepo interface {
	InsertBooking(ctx context.Context, booking *Booking) error
	GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)
	// FindBlocking returns the bookings on a property whose status still
	// occupies calendar time (pending or confirmed). excludeID, when not
	// uuid.Nil, drops the booking being re-validated from the result.
	FindBlocking(ctx context.Context, propertyID, excludeID uuid.UUID) ([]*Booking, error)
	// UpdateBookingStatus persists a transition with an optimistic
	// precondition on the current status. Status and cancelled_by are
	// written in a single update so a cancelled booking is never observed
	// without its cancelling actor.
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to BookingStatus, cancelledBy *uuid.UUID) (*Booking, error)
	ListBookingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Booking, error)
	ListBookingsByClient(ctx context.Context, clientID uuid.UUID) ([]*Booking, error)
	ListBookings(ctx context.Context, status *BookingStatus) ([]*Booking, error)
	CountBookingsByStatus(ctx context.Context) (map[BookingStatus]int64, error)
}

func (mdb *MongodbRepo) InsertBooking(ctx context.Context, booking *Booking) error {
	col, err := mdb.GetCollection(ctx, BookingDbName, BookingColName)
	if err != nil {
		return fmt.Errorf("error getting collection: %v", err)
	}

	if _, err := col.InsertOne(ctx, booking); err != nil {
		return fmt.Errorf("error inserting booking: %v", err)
	}

	return nil
}

func (mdb *MongodbRepo) GetBookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingDbName, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	var booking Booking
	if err := col.FindOne(ctx, bson.M{"_id": id}).Decode(&booking); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("booking %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("error finding booking: %v", err)
	}

	return &booking, nil
}

func (mdb *MongodbRepo) FindBlocking(ctx context.Context, propertyID, excludeID uuid.UUID) ([]*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingDbName, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	filter := bson.M{
		"property_id": propertyID,
		"status":      bson.M{"$in": []BookingStatus{BookingPending, BookingConfirmed}},
	}
	if excludeID != uuid.Nil {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	return mdb.findBookings(ctx, col, filter)
}

func (mdb *MongodbRepo) UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to BookingStatus, cancelledBy *uuid.UUID) (*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingDbName, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	set := bson.M{
		"status":     to,
		"updated_at": time.Now().UTC(),
	}
	if cancelledBy != nil {
		set["cancelled_by"] = *cancelledBy
	}

	// The status precondition makes the update optimistic: a concurrent
	// transition that already moved the booking leaves nothing to match.
	filter := bson.M{"_id": id, "status": from}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated Booking
	if err := col.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("booking %s no longer in state %s: %w", id, from, ErrConflict)
		}
		return nil, fmt.Errorf("error updating booking status: %v", err)
	}

	return &updated, nil
}

func (mdb *MongodbRepo) ListBookingsByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingDbName, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	return mdb.findBookings(ctx, col, bson.M{"owner_id": ownerID})
}

func (mdb *MongodbRepo) ListBookingsByClient(ctx context.Context, clientID uuid.UUID) ([]*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingDbName, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	return mdb.findBookings(ctx, col, bson.M{"client_id": clientID})
}

func (mdb *MongodbRepo) ListBookings(ctx context.Context, status *BookingStatus) ([]*Booking, error) {
	col, err := mdb.GetCollection(ctx, BookingDbName, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	filter := bson.M{}
	if status != nil {
		filter["status"] = *status
	}

	return mdb.findBookings(ctx, col, filter)
}

// CountBookingsByStatus aggregates counts directly from the collection so
// admin stats never rely on cached mutable counters.
func (mdb *MongodbRepo) CountBookingsByStatus(ctx context.Context) (map[BookingStatus]int64, error) {
	col, err := mdb.GetCollection(ctx, BookingDbName, BookingColName)
	if err != nil {
		return nil, fmt.Errorf("error getting collection: %v", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$status",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("error aggregating booking counts: %v", err)
	}
	defer cursor.Close(ctx)

	counts := make(map[BookingStatus]int64)
	for cursor.Next(ctx) {
		var row struct {
			Status BookingStatus `bson:"_id"`
			Count  int64         `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("error decoding count row: %v", err)
		}
		counts[row.Status] = row.Count
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}

	return counts, nil
}

func (mdb *MongodbRepo) findBookings(ctx context.Context, col *mongo.Collection, filter bson.M) ([]*Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error finding bookings: %v", err)
	}
	defer cursor.Close(ctx)

	var bookings []*Booking
	for cursor.Next(ctx) {
		var booking Booking
		if err := cursor.Decode(&booking); err != nil {
			return nil, fmt.Errorf("error decoding booking: %v", err)
		}
		bookings = append(bookings, &booking)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}

	return bookings, nil
}
