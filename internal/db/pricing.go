package db

import (
	"context"

	"github.com/ukydev/fleet-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRatePlanCollection implements RatePlanCollection for MongoDB
type MongoRatePlanCollection struct {
	Collection *mongo.Collection
}

func (c *MongoRatePlanCollection) InsertRatePlan(ctx context.Context, p models.RatePlan) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	_, err := c.Collection.InsertOne(ctx, p)
	return mapWriteErr(err)
}

func (c *MongoRatePlanCollection) FindRatePlans(ctx context.Context, activeOnly bool) ([]models.RatePlan, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	return findAll[models.RatePlan](ctx, c.Collection, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (c *MongoRatePlanCollection) FindRatePlanByID(ctx context.Context, id string) (*models.RatePlan, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findByID[models.RatePlan](ctx, c.Collection, id)
}

func (c *MongoRatePlanCollection) UpdateRatePlan(ctx context.Context, id string, p models.RatePlan) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	p.ID = id
	return replaceByID(ctx, c.Collection, id, p)
}

func (c *MongoRatePlanCollection) DeleteRatePlan(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	return deleteByID(ctx, c.Collection, id)
}

// MongoPromoCodeCollection implements PromoCodeCollection for MongoDB
type MongoPromoCodeCollection struct {
	Collection *mongo.Collection
}

func (c *MongoPromoCodeCollection) InsertPromoCode(ctx context.Context, p models.PromoCode) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	_, err := c.Collection.InsertOne(ctx, p)
	return mapWriteErr(err)
}

func (c *MongoPromoCodeCollection) FindPromoCodes(ctx context.Context) ([]models.PromoCode, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findAll[models.PromoCode](ctx, c.Collection, bson.M{}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
}

func (c *MongoPromoCodeCollection) FindPromoCodeByID(ctx context.Context, id string) (*models.PromoCode, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findByID[models.PromoCode](ctx, c.Collection, id)
}

func (c *MongoPromoCodeCollection) FindPromoCodeByCode(ctx context.Context, code string) (*models.PromoCode, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	var p models.PromoCode
	if err := c.Collection.FindOne(ctx, bson.M{"code": code}).Decode(&p); err != nil {
		return nil, mapFindErr(err)
	}
	return &p, nil
}

func (c *MongoPromoCodeCollection) UpdatePromoCode(ctx context.Context, id string, p models.PromoCode) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	p.ID = id
	return replaceByID(ctx, c.Collection, id, p)
}

func (c *MongoPromoCodeCollection) RedeemPromoCode(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	res, err := c.Collection.UpdateOne(ctx, redeemFilter(id), bson.M{"$inc": bson.M{"usage_count": 1}})
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

// redeemFilter matches an active promo with usage left. A zero limit is unlimited.
func redeemFilter(id string) bson.M {
	return bson.M{
		"_id":    id,
		"active": true,
		"$or": bson.A{
			bson.M{"usage_limit": 0},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$usage_count", "$usage_limit"}}},
		},
	}
}

func (c *MongoPromoCodeCollection) DeletePromoCode(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	return deleteByID(ctx, c.Collection, id)
}
