package db

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexes lists the indexes each collection needs.
var indexes = map[string][]mongo.IndexModel{
	CollReservations: {
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true).SetName("code_unique")},
		{
			Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "status", Value: 1}, {Key: "pickup.at", Value: 1}, {Key: "dropoff.at", Value: 1}},
			Options: options.Index().SetName("vehicle_overlap").
				SetPartialFilterExpression(bson.M{"vehicle_id": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "vehicle_model_id", Value: 1}, {Key: "status", Value: 1}, {Key: "pickup.at", Value: 1}, {Key: "dropoff.at", Value: 1}},
			Options: options.Index().SetName("model_overlap"),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("user")},
		{Keys: bson.D{{Key: "pickup.branch_id", Value: 1}, {Key: "created_at", Value: -1}}, Options: options.Index().SetName("branch_created")},
	},
	CollPayments: {
		{Keys: bson.D{{Key: "reservation_id", Value: 1}, {Key: "payment_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("payment_unique")},
		{Keys: bson.D{{Key: "at", Value: 1}}, Options: options.Index().SetName("at")},
	},
	CollPromoCodes: {
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true).SetName("code_unique")},
	},
	CollBranches: {
		{Keys: bson.D{{Key: "code", Value: 1}}, Options: options.Index().SetUnique(true).SetName("code_unique")},
	},
	CollVehicles: {
		{Keys: bson.D{{Key: "plate", Value: 1}}, Options: options.Index().SetUnique(true).SetName("plate_unique")},
		{Keys: bson.D{{Key: "branch_id", Value: 1}}, Options: options.Index().SetName("branch")},
	},
	CollUsers: {
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
	},
	CollServiceOrders: {
		{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "status", Value: 1}}, Options: options.Index().SetName("vehicle_status")},
	},
	CollIncidents: {
		{Keys: bson.D{{Key: "vehicle_id", Value: 1}, {Key: "occurred_at", Value: -1}}, Options: options.Index().SetName("vehicle_occurred")},
	},
}

// EnsureIndexes creates every index. Existing indexes with the same definition are left alone.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for coll, models := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
