package db

import (
	"context"
	"time"

	"github.com/ukydev/fleet-rental/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoUserCollection implements UserCollection for MongoDB
type MongoUserCollection struct {
	Collection *mongo.Collection
}

// InsertUser inserts a new user into the database
func (c *MongoUserCollection) InsertUser(ctx context.Context, user models.User) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.Status == "" {
		user.Status = models.UserActive
	}

	_, err := c.Collection.InsertOne(ctx, user)
	return mapWriteErr(err)
}

// FindUserByID finds a user by their ID
func (c *MongoUserCollection) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findByID[models.User](ctx, c.Collection, id)
}

// FindUsers lists users ordered by email
func (c *MongoUserCollection) FindUsers(ctx context.Context) ([]models.User, error) {
	if c.Collection == nil {
		return nil, errNilCollection()
	}
	return findAll[models.User](ctx, c.Collection, bson.M{}, options.Find().SetSort(bson.D{{Key: "email", Value: 1}}))
}

// UpdateUser updates a user in the database
func (c *MongoUserCollection) UpdateUser(ctx context.Context, id string, user models.User) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	user.UpdatedAt = time.Now().UTC()
	user.ID = id
	return replaceByID(ctx, c.Collection, id, user)
}

// DeleteUser deletes a user from the database
func (c *MongoUserCollection) DeleteUser(ctx context.Context, id string) error {
	if c.Collection == nil {
		return errNilCollection()
	}
	return deleteByID(ctx, c.Collection, id)
}
