package repository

import (
	"context"
	"time"

	"grocery-app/delivery-scheduler/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Subscription, error)
	GetAll(ctx context.Context) ([]models.Subscription, error)
	FindDueBefore(ctx context.Context, until time.Time) ([]models.Subscription, error)
	UpdateVersioned(ctx context.Context, sub *models.Subscription) error
}

type subscriptionRepository struct {
	collection *mongo.Collection
}

func NewSubscriptionRepository(db *mongo.Database) SubscriptionRepository {
	return &subscriptionRepository{collection: db.Collection("subscriptions")}
}

func (r *subscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	now := time.Now().UTC()
	sub.ID = primitive.NewObjectID()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	sub.Version = 1
	_, err := r.collection.InsertOne(ctx, sub)
	return err
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Subscription, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	var subs []models.Subscription
	err = cursor.All(ctx, &subs)
	return subs, err
}

func (r *subscriptionRepository) GetAll(ctx context.Context) ([]models.Subscription, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var subs []models.Subscription
	err = cursor.All(ctx, &subs)
	return subs, err
}

// FindDueBefore returns active subscriptions whose next delivery falls at or
// before until. The external dispatcher polls this.
func (r *subscriptionRepository) FindDueBefore(ctx context.Context, until time.Time) ([]models.Subscription, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"schedule.status":           models.ScheduleActive,
		"schedule.next_delivery_at": bson.M{"$lte": until},
	})
	if err != nil {
		return nil, err
	}
	var subs []models.Subscription
	err = cursor.All(ctx, &subs)
	return subs, err
}

// UpdateVersioned replaces the document only if its stored version still
// matches the one the caller loaded. A missed match means a concurrent
// transition won the race and the caller gets ErrConflict.
func (r *subscriptionRepository) UpdateVersioned(ctx context.Context, sub *models.Subscription) error {
	prev := sub.Version
	sub.Version = prev + 1
	sub.UpdatedAt = time.Now().UTC()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": sub.ID, "version": prev}, sub)
	if err != nil {
		sub.Version = prev
		return err
	}
	if res.MatchedCount == 0 {
		sub.Version = prev
		return models.ErrConflict
	}
	return nil
}
