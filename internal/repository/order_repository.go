package repository

import (
	"context"
	"time"

	"grocery-app/delivery-scheduler/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetRecurringByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	GetAllRecurring(ctx context.Context) ([]models.Order, error)
	FindRecurringDueBefore(ctx context.Context, until time.Time) ([]models.Order, error)
	Filter(ctx context.Context, filter bson.M) ([]models.Order, error)
	UpdateVersioned(ctx context.Context, order *models.Order) error
}

type orderRepository struct {
	collection *mongo.Collection
}

func NewOrderRepository(db *mongo.Database) OrderRepository {
	return &orderRepository{collection: db.Collection("orders")}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now().UTC()
	order.ID = primitive.NewObjectID()
	order.CreatedAt = now
	order.UpdatedAt = now
	order.Version = 1
	_, err := r.collection.InsertOne(ctx, order)
	return err
}

func (r *orderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) GetRecurringByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return r.Filter(ctx, bson.M{"user_id": userID, "is_recurring": true})
}

func (r *orderRepository) GetAllRecurring(ctx context.Context) ([]models.Order, error) {
	return r.Filter(ctx, bson.M{"is_recurring": true})
}

func (r *orderRepository) FindRecurringDueBefore(ctx context.Context, until time.Time) ([]models.Order, error) {
	return r.Filter(ctx, bson.M{
		"is_recurring":              true,
		"schedule.status":           models.ScheduleActive,
		"schedule.next_delivery_at": bson.M{"$lte": until},
	})
}

func (r *orderRepository) Filter(ctx context.Context, filter bson.M) ([]models.Order, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var orders []models.Order
	err = cursor.All(ctx, &orders)
	return orders, err
}

func (r *orderRepository) UpdateVersioned(ctx context.Context, order *models.Order) error {
	prev := order.Version
	order.Version = prev + 1
	order.UpdatedAt = time.Now().UTC()

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": order.ID, "version": prev}, order)
	if err != nil {
		order.Version = prev
		return err
	}
	if res.MatchedCount == 0 {
		order.Version = prev
		return models.ErrConflict
	}
	return nil
}
