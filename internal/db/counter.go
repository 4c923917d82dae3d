package db

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCounterCollection implements CounterCollection with one document per key.
type MongoCounterCollection struct {
	Collection *mongo.Collection
}

// NextSequence atomically increments and returns the counter for key, starting at 1.
func (c *MongoCounterCollection) NextSequence(ctx context.Context, key string) (int64, error) {
	if c.Collection == nil {
		return 0, errNilCollection()
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	err := c.Collection.FindOneAndUpdate(ctx, bson.M{"_id": key}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&doc)
	if err != nil {
		return 0, err
	}
	return doc.Seq, nil
}
