package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/valura/notification/internal/db/models"
)

// PreferenceRepository stores user preferences in the user_preferences collection
type PreferenceRepository struct {
	coll *mongo.Collection
}

// NewPreferenceRepository creates a new instance of PreferenceRepository
func NewPreferenceRepository(db *mongo.Database) *PreferenceRepository {
	return &PreferenceRepository{coll: db.Collection(models.PreferencesCollection)}
}

// GetByRecipient retrieves the preference of a recipient. A missing document yields (nil, nil).
func (r *PreferenceRepository) GetByRecipient(ctx context.Context, recipientID string) (*models.UserPreference, error) {
	var p models.UserPreference
	err := r.coll.FindOne(ctx, bson.M{models.PreferenceRecipientField: recipientID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference: %w", err)
	}
	return &p, nil
}

// Replace deletes any preference of the recipient and inserts p in its place
func (r *PreferenceRepository) Replace(ctx context.Context, p *models.UserPreference) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, err := r.coll.DeleteMany(ctx, bson.M{models.PreferenceRecipientField: p.RecipientID}); err != nil {
		return fmt.Errorf("failed to clear preference: %w", err)
	}
	if _, err := r.coll.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to insert preference: %w", err)
	}
	return nil
}

// DeleteByRecipient removes the preference of a recipient and reports whether one existed
func (r *PreferenceRepository) DeleteByRecipient(ctx context.Context, recipientID string) (bool, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{models.PreferenceRecipientField: recipientID})
	if err != nil {
		return false, fmt.Errorf("failed to delete preference: %w", err)
	}
	return res.DeletedCount > 0, nil
}
