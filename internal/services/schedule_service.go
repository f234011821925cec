package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"grocery-app/delivery-scheduler/internal/models"
	"grocery-app/delivery-scheduler/internal/repository"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultDueWindowDays is the lookahead the dispatcher cache is kept warm for.
const DefaultDueWindowDays = 7

const dueCacheTTL = 5 * time.Minute

// PlanRegistry is the external plan service contract this engine consumes.
type PlanRegistry interface {
	IncrementSubscriberCount(ctx context.Context, planID string) error
	DecrementSubscriberCount(ctx context.Context, planID string) error
}

// ScheduleService owns the subscription lifecycle: create on first checkout,
// then pause/resume/skip/cancel. Every transition is a load-modify-save of one
// document guarded by a version check, so concurrent transitions on the same
// subscription surface as ErrConflict instead of overwriting each other.
type ScheduleService struct {
	repo  repository.SubscriptionRepository
	plans PlanRegistry
	redis *redis.Client
}

func NewScheduleService(repo repository.SubscriptionRepository, plans PlanRegistry, redisClient *redis.Client) *ScheduleService {
	return &ScheduleService{repo: repo, plans: plans, redis: redisClient}
}

// Create stores a new subscription and seeds its first delivery date from the
// slot weekday. The plan counter increment is best effort: a failure is logged
// and reconciled out-of-band, it does not undo the subscription.
func (s *ScheduleService) Create(ctx context.Context, sub *models.Subscription) error {
	if err := sub.Slot.Validate(); err != nil {
		return err
	}
	if sub.Schedule.Status == "" {
		sub.Schedule.Status = models.ScheduleActive
	}
	if sub.Schedule.Status != models.SchedulePending && sub.Schedule.Status != models.ScheduleActive {
		return fmt.Errorf("%w: initial status must be pending or active", models.ErrValidation)
	}

	if sub.Schedule.Status == models.ScheduleActive && sub.Schedule.NextDeliveryAt == nil {
		next, err := nextSlotDelivery(sub.Slot, time.Now().UTC())
		if err != nil {
			return err
		}
		sub.Schedule.NextDeliveryAt = next
	}

	if err := s.repo.Create(ctx, sub); err != nil {
		return err
	}

	if err := s.plans.IncrementSubscriberCount(ctx, sub.PlanID.Hex()); err != nil {
		log.Printf("Failed to increment subscriber count for plan %s: %v", sub.PlanID.Hex(), err)
	}
	s.invalidateDueCache(ctx)
	return nil
}

func (s *ScheduleService) Pause(ctx context.Context, id primitive.ObjectID, until *time.Time) (*models.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sub.Schedule.Pause(until); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, sub); err != nil {
		return nil, err
	}
	s.invalidateDueCache(ctx)
	return sub, nil
}

// Resume reactivates a paused subscription and recomputes the next delivery
// from the current time, so it always lands strictly in the future.
func (s *ScheduleService) Resume(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := nextSlotDelivery(sub.Slot, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := sub.Schedule.Resume(next); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, sub); err != nil {
		return nil, err
	}
	s.invalidateDueCache(ctx)
	return sub, nil
}

// Activate moves a pending subscription into rotation, seeding its first
// delivery date from the slot.
func (s *ScheduleService) Activate(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next := sub.Schedule.NextDeliveryAt
	if next == nil {
		if next, err = nextSlotDelivery(sub.Slot, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	if err := sub.Schedule.Activate(next); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, sub); err != nil {
		return nil, err
	}
	s.invalidateDueCache(ctx)
	return sub, nil
}

// nextSlotDelivery runs the slot's degenerate single-weekday rule through the
// shared recurrence calculator.
func nextSlotDelivery(slot models.DeliverySlot, now time.Time) (*time.Time, error) {
	rule, err := slot.Rule()
	if err != nil {
		return nil, err
	}
	if next, ok := NextDeliveryDate(rule, now); ok {
		return &next, nil
	}
	return nil, nil
}

// Skip advances the next delivery by exactly one week and records the skipped
// date. The version check guarantees two racing skips cannot both count.
func (s *ScheduleService) Skip(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sub.Schedule.Skip(); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, sub); err != nil {
		return nil, err
	}
	s.invalidateDueCache(ctx)
	return sub, nil
}

// Cancel is terminal. The local state change is saved first; if the external
// plan-counter decrement then fails, the cancellation stands and the caller
// gets a PartialCancelError so the counter can be fixed out-of-band.
func (s *ScheduleService) Cancel(ctx context.Context, id primitive.ObjectID, reason string) (*models.Subscription, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sub.Schedule.Cancel(models.ScheduleCancelled, reason, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateVersioned(ctx, sub); err != nil {
		return nil, err
	}
	s.invalidateDueCache(ctx)

	if err := s.plans.DecrementSubscriberCount(ctx, sub.PlanID.Hex()); err != nil {
		return sub, &models.PartialCancelError{Cause: err}
	}
	return sub, nil
}

func (s *ScheduleService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ScheduleService) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Subscription, error) {
	return s.repo.GetByUser(ctx, userID)
}

func (s *ScheduleService) GetAll(ctx context.Context) ([]models.Subscription, error) {
	return s.repo.GetAll(ctx)
}

// DueWithin returns active subscriptions with a delivery due in the next
// `days` days, served from the Redis cache when warm.
func (s *ScheduleService) DueWithin(ctx context.Context, days int) ([]models.Subscription, error) {
	key := dueSubscriptionsKey(days)
	if s.redis != nil {
		if data, err := s.redis.Get(ctx, key).Bytes(); err == nil {
			var subs []models.Subscription
			if err := json.Unmarshal(data, &subs); err == nil {
				return subs, nil
			}
		}
	}

	subs, err := s.repo.FindDueBefore(ctx, time.Now().UTC().AddDate(0, 0, days))
	if err != nil {
		return nil, err
	}
	s.cacheDue(ctx, key, subs)
	return subs, nil
}

// RefreshDueCache re-warms the dispatcher cache; the background refresher
// calls it on a ticker.
func (s *ScheduleService) RefreshDueCache(ctx context.Context, days int) error {
	subs, err := s.repo.FindDueBefore(ctx, time.Now().UTC().AddDate(0, 0, days))
	if err != nil {
		return err
	}
	s.cacheDue(ctx, dueSubscriptionsKey(days), subs)
	return nil
}

func (s *ScheduleService) cacheDue(ctx context.Context, key string, subs []models.Subscription) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(subs)
	if err != nil {
		log.Printf("[CACHE] Failed to marshal due subscriptions: %v", err)
		return
	}
	if err := s.redis.Set(ctx, key, data, dueCacheTTL).Err(); err != nil {
		log.Printf("[CACHE] Failed to set %s: %v", key, err)
	}
}

// invalidateDueCache drops every cached due window, whatever its day count,
// so no window can serve a pre-transition list for the rest of its TTL.
func (s *ScheduleService) invalidateDueCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	keys, err := s.redis.Keys(ctx, "due_subscriptions:*").Result()
	if err != nil {
		log.Printf("[CACHE] Failed to list due subscription keys: %v", err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("[CACHE] Failed to invalidate due subscriptions cache: %v", err)
	}
}

func dueSubscriptionsKey(days int) string {
	return fmt.Sprintf("due_subscriptions:%d", days)
}
