package db

import (
	"context"

	"github.com/ukydev/fleet-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPaymentCollection implements PaymentCollection for MongoDB
type MongoPaymentCollection struct {
	Collection *mongo.Collection
}

// InsertPayment appends a ledger row. A repeated (reservation_id, payment_id) returns ErrDuplicateKey.
func (c *MongoPaymentCollection) InsertPayment(ctx context.Context, p models.Payment) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	_, err := c.Collection.InsertOne(ctx, p)
	return mapWriteErr(err)
}

func (c *MongoPaymentCollection) FindPayments(ctx context.Context, f models.PaymentFilter) ([]models.Payment, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	opts := options.Find().SetSort(bson.D{{Key: "at", Value: 1}, {Key: "payment_id", Value: 1}})
	return findAll[models.Payment](ctx, c.Collection, paymentFilter(f), opts)
}
