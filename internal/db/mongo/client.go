// Package mongo implements the notification stores on top of MongoDB
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/valura/notification/internal/db/models"
)

const connectTimeout = 10 * time.Second

// Client wraps a connected MongoDB client and the database holding the collections
type Client struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, verifies the connection and selects the database
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	if database == "" {
		return nil, fmt.Errorf("mongo database name is required")
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Client{
		client: client,
		db:     client.Database(database),
	}, nil
}

// Database returns the selected database
func (c *Client) Database() *mongo.Database {
	return c.db
}

// EnsureIndexes creates the indexes every collection relies on. Existing
// indexes with the same keys are left untouched.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		models.NotificationsCollection: {
			{
				Keys: bson.D{
					{Key: models.NotificationRecipientField, Value: 1},
					{Key: models.NotificationChannelField, Value: 1},
					{Key: models.NotificationHashField, Value: 1},
					{Key: models.NotificationCreatedAtField, Value: -1},
				},
			},
			{Keys: bson.D{{Key: models.NotificationStatusField, Value: 1}, {Key: models.NotificationUpdatedAtField, Value: 1}}},
			{Keys: bson.D{{Key: models.NotificationCreatedAtField, Value: -1}}},
		},
		models.FrequencyCollection: {
			{
				Keys: bson.D{
					{Key: models.FrequencyRecipientField, Value: 1},
					{Key: models.FrequencyChannelField, Value: 1},
					{Key: models.FrequencyDateField, Value: 1},
				},
				Options: options.Index().SetUnique(true),
			},
		},
		models.PreferencesCollection: {
			{
				Keys:    bson.D{{Key: models.PreferenceRecipientField, Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}

	for coll, idx := range indexes {
		if _, err := c.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// Disconnect closes the underlying connections
func (c *Client) Disconnect(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}
