package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"grocery-app/delivery-scheduler/internal/models"
	"grocery-app/delivery-scheduler/internal/repository"
	"grocery-app/delivery-scheduler/internal/utils"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MaterializeRequest describes a recurring order to clone from a completed
// one-time order. Rule dates arrive as YYYY-MM-DD text.
type MaterializeRequest struct {
	SourceOrderID  primitive.ObjectID
	CallerID       primitive.ObjectID
	Rule           models.RecurrenceRuleRequest
	InitialStatus  models.ScheduleStatus
	NextDeliveryAt *time.Time
}

// RecurringOrderService materializes recurring orders and runs their schedule
// lifecycle. Same single-document, version-guarded write model as
// ScheduleService.
type RecurringOrderService struct {
	repo  repository.OrderRepository
	redis *redis.Client
}

func NewRecurringOrderService(repo repository.OrderRepository, redisClient *redis.Client) *RecurringOrderService {
	return &RecurringOrderService{repo: repo, redis: redisClient}
}

// Materialize clones a completed, caller-owned source order into a fresh
// recurring order. Ownership mismatch is a hard failure; nothing is persisted.
func (s *RecurringOrderService) Materialize(ctx context.Context, req MaterializeRequest) (*models.Order, error) {
	src, err := s.repo.GetByID(ctx, req.SourceOrderID)
	if err != nil {
		return nil, err
	}
	if src.UserID != req.CallerID {
		return nil, models.ErrOwnershipViolation
	}
	if src.Status != models.OrderCompleted {
		return nil, fmt.Errorf("%w: source order must be completed, got %s", models.ErrValidation, src.Status)
	}

	rule, err := req.Rule.Parse()
	if err != nil {
		return nil, err
	}

	status := req.InitialStatus
	if status == "" {
		status = models.ScheduleActive
	}
	if status != models.SchedulePending && status != models.ScheduleActive {
		return nil, fmt.Errorf("%w: initial status must be pending or active", models.ErrValidation)
	}

	schedule := models.ScheduleState{Status: status}
	switch {
	case req.NextDeliveryAt != nil:
		next := models.DateOnly(*req.NextDeliveryAt)
		schedule.NextDeliveryAt = &next
	case status == models.ScheduleActive:
		if next, ok := NextDeliveryDate(rule, time.Now().UTC()); ok {
			schedule.NextDeliveryAt = &next
		}
	}

	order := &models.Order{
		OrderNumber: utils.NewOrderNumber(),
		UserID:      src.UserID,
		Items:       append([]models.OrderItem(nil), src.Items...),
		Subtotal:    src.Subtotal,
		ShippingFee: src.ShippingFee,
		Total:       src.Total,
		Address:     src.Address,
		Status:      models.OrderPending,
		IsRecurring: true,
		Recurrence:  &rule,
		Schedule:    &schedule,
	}

	if err := order.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}
	if err := s.repo.Create(ctx, order); err != nil {
		return nil, err
	}
	s.invalidateDueCache(ctx)
	return order, nil
}

func (s *RecurringOrderService) Pause(ctx context.Context, id primitive.ObjectID, until *time.Time) (*models.Order, error) {
	order, err := s.loadRecurring(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := order.Schedule.Pause(until); err != nil {
		return nil, err
	}
	return s.save(ctx, order)
}

// Resume re-runs the full recurrence search from now. A rule with no future
// eligible date leaves the next delivery empty, which is valid.
func (s *RecurringOrderService) Resume(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.loadRecurring(ctx, id)
	if err != nil {
		return nil, err
	}
	var next *time.Time
	if d, ok := NextDeliveryDate(*order.Recurrence, time.Now().UTC()); ok {
		next = &d
	}
	if err := order.Schedule.Resume(next); err != nil {
		return nil, err
	}
	return s.save(ctx, order)
}

// Activate moves a pending recurring order into rotation, computing its first
// delivery date.
func (s *RecurringOrderService) Activate(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.loadRecurring(ctx, id)
	if err != nil {
		return nil, err
	}
	var next *time.Time
	if order.Schedule.NextDeliveryAt != nil {
		next = order.Schedule.NextDeliveryAt
	} else if d, ok := NextDeliveryDate(*order.Recurrence, time.Now().UTC()); ok {
		next = &d
	}
	if err := order.Schedule.Activate(next); err != nil {
		return nil, err
	}
	return s.save(ctx, order)
}

func (s *RecurringOrderService) Skip(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.loadRecurring(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := order.Schedule.Skip(); err != nil {
		return nil, err
	}
	return s.save(ctx, order)
}

// Cancel ends the recurring order for good; ended is terminal.
func (s *RecurringOrderService) Cancel(ctx context.Context, id primitive.ObjectID, reason string) (*models.Order, error) {
	order, err := s.loadRecurring(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := order.Schedule.Cancel(models.ScheduleEnded, reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.save(ctx, order)
}

func (s *RecurringOrderService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *RecurringOrderService) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.repo.GetRecurringByUser(ctx, userID)
}

func (s *RecurringOrderService) GetAll(ctx context.Context) ([]models.Order, error) {
	return s.repo.GetAllRecurring(ctx)
}

func (s *RecurringOrderService) DueWithin(ctx context.Context, days int) ([]models.Order, error) {
	key := dueRecurringOrdersKey(days)
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var orders []models.Order
			if err := json.Unmarshal(data, &orders); err == nil {
				return orders, nil
			}
		}
	}

	orders, err := s.repo.FindRecurringDueBefore(ctx, time.Now().UTC().AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}
	s.cacheDue(ctx, key, orders)
	return orders, nil
}

func (s *RecurringOrderService) RefreshDueCache(ctx context.Context, days int) error {
	orders, err := s.repo.FindRecurringDueBefore(ctx, time.Now().UTC().AddDate(0, 0, days))
	if err != nil {
		return err
	}
	s.cacheDue(ctx, dueRecurringOrdersKey(days), orders)
	return nil
}

func (s *RecurringOrderService) loadRecurring(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.IsRecurring || order.Recurrence == nil || order.Schedule == nil {
		return nil, fmt.Errorf("%w: order %s is not recurring", models.ErrValidation, id.Hex())
	}
	return order, nil
}

func (s *RecurringOrderService) save(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := s.repo.UpdateVersioned(ctx, order); err != nil {
		return nil, err
	}
	s.invalidateDueCache(ctx)
	return order, nil
}

func (s *RecurringOrderService) cacheDue(ctx context.Context, key string, orders []models.Order) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(orders)
	if err != nil {
		log.Printf("[CACHE] Failed to marshal due recurring orders: %v", err)
		return
	}
	if err := s.redis.Set(ctx, key, data, dueCacheTTL).Err(); err != nil {
		log.Printf("[CACHE] Failed to set %s: %v", key, err)
	}
}

// invalidateDueCache drops every cached due window, whatever its day count.
func (s *RecurringOrderService) invalidateDueCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	keys, err := s.redis.Keys(ctx, "due_recurring_orders:*").Result()
	if err != nil {
		log.Printf("[CACHE] Failed to list due recurring order keys: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate due recurring orders cache: %v", err)
	}
}

func dueRecurringOrdersKey(days int) string {
	return fmt.Sprintf("due_recurring_orders:%d", days)
}
