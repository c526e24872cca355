package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valura/notification/internal/db/models"
)

// FrequencyRepository stores daily frequency rows in the notification_frequency collection
type FrequencyRepository struct {
	coll *mongo.Collection
}

// NewFrequencyRepository creates a new instance of FrequencyRepository
func NewFrequencyRepository(db *mongo.Database) *FrequencyRepository {
	return &FrequencyRepository{coll: db.Collection(models.FrequencyCollection)}
}

// Get retrieves the row for a recipient, channel and day. A missing document yields (nil, nil).
func (r *FrequencyRepository) Get(ctx context.Context, recipientID string, channel models.Channel, date string) (*models.NotificationFrequency, error) {
	var f models.NotificationFrequency
	err := r.coll.FindOne(ctx, dayKey(recipientID, channel, date)).Decode(&f)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get frequency: %w", err)
	}
	return &f, nil
}

// ListByRecipient retrieves every channel row of a recipient for one day
func (r *FrequencyRepository) ListByRecipient(ctx context.Context, recipientID string, date string) ([]models.NotificationFrequency, error) {
	filter := bson.M{
		models.FrequencyRecipientField: recipientID,
		models.FrequencyDateField:      date,
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: models.FrequencyChannelField, Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query frequencies: %w", err)
	}
	out := []models.NotificationFrequency{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode frequencies: %w", err)
	}
	return out, nil
}

// Save upserts the row keyed on recipient, channel and day
func (r *FrequencyRepository) Save(ctx context.Context, f *models.NotificationFrequency) error {
	if f.RecipientID == "" {
		return models.ErrEmptyRecipient
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	update := bson.M{
		"$set": bson.M{
			"last_sent_at": f.LastSentAt,
			"daily_count":  f.DailyCount,
		},
		"$setOnInsert": bson.M{"_id": f.ID},
	}
	_, err := r.coll.UpdateOne(ctx, dayKey(f.RecipientID, f.ChannelType, f.Date), update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save frequency: %w", err)
	}
	return nil
}

func dayKey(recipientID string, channel models.Channel, date string) bson.M {
	return bson.M{
		models.FrequencyRecipientField: recipientID,
		models.FrequencyChannelField:   channel,
		models.FrequencyDateField:      date,
	}
}
