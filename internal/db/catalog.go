package db

import (
	"context"
	"time"

	"github.com/ukydev/fleet-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoVehicleCollection implements VehicleCollection for MongoDB
type MongoVehicleCollection struct {
	Collection *mongo.Collection
}

func (c *MongoVehicleCollection) InsertVehicle(ctx context.Context, vehicle models.Vehicle) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	_, err := c.Collection.InsertOne(ctx, vehicle)
	return mapWriteErr(err)
}

func (c *MongoVehicleCollection) FindVehicles(ctx context.Context, f models.VehicleFilter) ([]models.Vehicle, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findAll[models.Vehicle](ctx, c.Collection, vehicleFilter(f), options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (c *MongoVehicleCollection) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findByID[models.Vehicle](ctx, c.Collection, id)
}

func (c *MongoVehicleCollection) UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	vehicle.ID = id
	return replaceByID(ctx, c.Collection, id, vehicle)
}

// SetAvailabilityState updates the denormalized availability hint.
func (c *MongoVehicleCollection) SetAvailabilityState(ctx context.Context, id string, state models.AvailabilityState, at time.Time) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	res, err := c.Collection.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"availability_state": state, "updated_at": at}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c *MongoVehicleCollection) DeleteVehicle(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	return deleteByID(ctx, c.Collection, id)
}

// MongoVehicleModelCollection implements VehicleModelCollection for MongoDB
type MongoVehicleModelCollection struct {
	Collection *mongo.Collection
}

func (c *MongoVehicleModelCollection) InsertVehicleModel(ctx context.Context, m models.VehicleModel) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	_, err := c.Collection.InsertOne(ctx, m)
	return mapWriteErr(err)
}

func (c *MongoVehicleModelCollection) FindVehicleModels(ctx context.Context) ([]models.VehicleModel, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findAll[models.VehicleModel](ctx, c.Collection, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
}

func (c *MongoVehicleModelCollection) FindVehicleModelByID(ctx context.Context, id string) (*models.VehicleModel, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findByID[models.VehicleModel](ctx, c.Collection, id)
}

func (c *MongoVehicleModelCollection) UpdateVehicleModel(ctx context.Context, id string, m models.VehicleModel) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	m.ID = id
	return replaceByID(ctx, c.Collection, id, m)
}

func (c *MongoVehicleModelCollection) DeleteVehicleModel(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	return deleteByID(ctx, c.Collection, id)
}

// MongoBranchCollection implements BranchCollection for MongoDB
type MongoBranchCollection struct {
	Collection *mongo.Collection
}

func (c *MongoBranchCollection) InsertBranch(ctx context.Context, b models.Branch) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	_, err := c.Collection.InsertOne(ctx, b)
	return mapWriteErr(err)
}

func (c *MongoBranchCollection) FindBranches(ctx context.Context) ([]models.Branch, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findAll[models.Branch](ctx, c.Collection, bson.M{}, options.Find().SetSort(bson.D{{Key: "code", Value: 1}}))
}

func (c *MongoBranchCollection) FindBranchByID(ctx context.Context, id string) (*models.Branch, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findByID[models.Branch](ctx, c.Collection, id)
}

func (c *MongoBranchCollection) UpdateBranch(ctx context.Context, id string, b models.Branch) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	b.ID = id
	return replaceByID(ctx, c.Collection, id, b)
}

func (c *MongoBranchCollection) DeleteBranch(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	return deleteByID(ctx, c.Collection, id)
}
