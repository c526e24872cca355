package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/valura/notification/internal/db/models"
)

// NotificationRepository stores notifications in the notifications collection
type NotificationRepository struct {
	coll *mongo.Collection
}

// NewNotificationRepository creates a new instance of NotificationRepository
func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{coll: db.Collection(models.NotificationsCollection)}
}

// Create inserts a new notification
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.Status == "" {
		n.Status = models.NotificationStatusPending
	}
	if n.ContentHash == "" {
		n.ContentHash = models.ContentHash(n.RecipientID, n.ChannelType, n.Title, n.Body)
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	if err := n.Validate(); err != nil {
		return err
	}
	if _, err := r.coll.InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// Update replaces the stored document of an existing notification
func (r *NotificationRepository) Update(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		return fmt.Errorf("cannot update notification without id")
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": n.ID}, n)
	if err != nil {
		return fmt.Errorf("failed to update notification %s: %w", n.ID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("notification %s not found", n.ID)
	}
	return nil
}

// GetByID retrieves a notification by ID. A missing document yields (nil, nil).
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	return r.findOne(ctx, bson.M{"_id": id}, nil)
}

// List retrieves notifications, newest first
func (r *NotificationRepository) List(ctx context.Context, opts *models.ListOptions) ([]models.Notification, error) {
	return r.list(ctx, bson.M{}, opts)
}

// ListByRecipient retrieves the notifications of one recipient, newest first
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID string, opts *models.ListOptions) ([]models.Notification, error) {
	return r.list(ctx, bson.M{models.NotificationRecipientField: recipientID}, opts)
}

// Latest retrieves the most recently created notification of a recipient
func (r *NotificationRepository) Latest(ctx context.Context, recipientID string) (*models.Notification, error) {
	return r.findOne(ctx,
		bson.M{models.NotificationRecipientField: recipientID},
		options.FindOne().SetSort(bson.D{{Key: models.NotificationCreatedAtField, Value: -1}}),
	)
}

// FindDuplicates returns notifications with the same recipient, channel and
// content hash created at or after since
func (r *NotificationRepository) FindDuplicates(ctx context.Context, recipientID string, channel models.Channel, contentHash string, since time.Time) ([]models.Notification, error) {
	filter := bson.M{
		models.NotificationRecipientField: recipientID,
		models.NotificationChannelField:   channel,
		models.NotificationHashField:      contentHash,
		models.NotificationCreatedAtField: bson.M{"$gte": since},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: models.NotificationCreatedAtField, Value: 1}}))
}

// ListStale returns up to limit notifications in status that were last updated before olderThan
func (r *NotificationRepository) ListStale(ctx context.Context, status models.NotificationStatus, olderThan time.Time, limit int) ([]models.Notification, error) {
	filter := bson.M{
		models.NotificationStatusField:    status,
		models.NotificationUpdatedAtField: bson.M{"$lt": olderThan},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: models.NotificationUpdatedAtField, Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, filter, opts)
}

func (r *NotificationRepository) list(ctx context.Context, filter bson.M, opts *models.ListOptions) ([]models.Notification, error) {
	o := opts.Normalize()
	if o.Status != nil {
		filter[models.NotificationStatusField] = *o.Status
	}
	if o.Channel != "" {
		filter[models.NotificationChannelField] = o.Channel
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: models.NotificationCreatedAtField, Value: -1}}).
		SetLimit(int64(o.Limit)).
		SetSkip(int64(o.Offset))
	return r.find(ctx, filter, findOpts)
}

func (r *NotificationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.Notification, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	out := []models.Notification{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return out, nil
}

func (r *NotificationRepository) findOne(ctx context.Context, filter bson.M, opts *options.FindOneOptions) (*models.Notification, error) {
	var n models.Notification
	var err error
	if opts != nil {
		err = r.coll.FindOne(ctx, filter, opts).Decode(&n)
	} else {
		err = r.coll.FindOne(ctx, filter).Decode(&n)
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}
