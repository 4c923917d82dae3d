package db

import (
	"context"

	"github.com/ukydev/fleet-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoServiceOrderCollection implements ServiceOrderCollection for MongoDB
type MongoServiceOrderCollection struct {
	Collection *mongo.Collection
}

func (c *MongoServiceOrderCollection) InsertServiceOrder(ctx context.Context, o models.ServiceOrder) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	_, err := c.Collection.InsertOne(ctx, o)
	return mapWriteErr(err)
}

func (c *MongoServiceOrderCollection) FindServiceOrders(ctx context.Context, f models.ServiceOrderFilter) ([]models.ServiceOrder, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.ServiceOrder](ctx, c.Collection, serviceOrderFilter(f), opts)
}

func (c *MongoServiceOrderCollection) FindServiceOrderByID(ctx context.Context, id string) (*models.ServiceOrder, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findByID[models.ServiceOrder](ctx, c.Collection, id)
}

func (c *MongoServiceOrderCollection) UpdateServiceOrder(ctx context.Context, id string, o models.ServiceOrder) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	o.ID = id
	return replaceByID(ctx, c.Collection, id, o)
}

func (c *MongoServiceOrderCollection) DeleteServiceOrder(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	return deleteByID(ctx, c.Collection, id)
}

// MongoIncidentCollection implements IncidentCollection for MongoDB
type MongoIncidentCollection struct {
	Collection *mongo.Collection
}

func (c *MongoIncidentCollection) InsertIncident(ctx context.Context, i models.Incident) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	_, err := c.Collection.InsertOne(ctx, i)
	return mapWriteErr(err)
}

func (c *MongoIncidentCollection) FindIncidents(ctx context.Context, f models.IncidentFilter) ([]models.Incident, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	opts := options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}, {Key: "_id", Value: 1}})
	return findAll[models.Incident](ctx, c.Collection, incidentFilter(f), opts)
}

func (c *MongoIncidentCollection) FindIncidentByID(ctx context.Context, id string) (*models.Incident, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findByID[models.Incident](ctx, c.Collection, id)
}

func (c *MongoIncidentCollection) UpdateIncident(ctx context.Context, id string, i models.Incident) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	i.ID = id
	return replaceByID(ctx, c.Collection, id, i)
}

func (c *MongoIncidentCollection) DeleteIncident(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	return deleteByID(ctx, c.Collection, id)
}
