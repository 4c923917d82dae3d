package db

import (
	"context"
	"time"

	"github.com/ukydev/fleet-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoReservationCollection implements ReservationCollection for MongoDB
type MongoReservationCollection struct {
	Collection *mongo.Collection
	// Guards holds one document per vehicle, bumped inside booking transactions.
	Guards *mongo.Collection
}

func (c *MongoReservationCollection) InsertReservation(ctx context.Context, r models.Reservation) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	_, err := c.Collection.InsertOne(ctx, r)
	return mapWriteErr(err)
}

func (c *MongoReservationCollection) FindReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	var r models.Reservation
	if err := c.Collection.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, mapFindErr(err)
	}
	return &r, nil
}

func (c *MongoReservationCollection) FindReservations(ctx context.Context, f models.ReservationFilter) ([]models.Reservation, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findAll[models.Reservation](ctx, c.Collection, reservationFilter(f), reservationFindOptions(f))
}

func (c *MongoReservationCollection) FindBlockingReservations(ctx context.Context, vehicleID string, start, end time.Time) ([]models.Reservation, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	opts := options.Find().SetSort(bson.D{{Key: "pickup.at", Value: 1}})
	return findAll[models.Reservation](ctx, c.Collection, blockingFilter(vehicleID, start, end), opts)
}

func (c *MongoReservationCollection) UpdateReservation(ctx context.Context, id string, u models.ReservationUpdate) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id}, reservationUpdate(u))
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *MongoReservationCollection) TransitionReservation(ctx context.Context, id string, from, to models.ReservationStatus, at time.Time) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	res, err := c.Collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": bson.M{"status": to, "updated_at": at}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := c.Collection.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (c *MongoReservationCollection) SetPaymentSummary(ctx context.Context, id string, s models.PaymentSummary, at time.Time) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"payment_summary": s, "updated_at": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *MongoReservationCollection) DeleteReservation(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	res, err := c.Collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *MongoReservationCollection) GuardVehicle(ctx context.Context, vehicleID string) error {
	if c.Guards == nil {
		return errNilCollection()
	}
	_, err := c.Guards.UpdateOne(ctx,
		bson.M{"_id": vehicleID},
		bson.M{"$inc": bson.M{"n": 1}},
		options.Update().SetUpsert(true),
	)
	return err
}

// findAll decodes every document matched by filter.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// replaceByID replaces the document with _id id, or returns ErrNotFound.
func replaceByID(ctx context.Context, coll *mongo.Collection, id string, doc interface{}) error {
	res, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mapWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// deleteByID deletes the document with _id id, or returns ErrNotFound.
func deleteByID(ctx context.Context, coll *mongo.Collection, id string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// findByID decodes the document with _id id into T.
func findByID[T any](ctx context.Context, coll *mongo.Collection, id string) (*T, error) {
	var v T
	if err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&v); err != nil {
		return nil, mapFindErr(err)
	}
	return &v, nil
}
