package services

import (
	"context"
	"log"
	"time"
)

// CacheRefresher keeps the dispatcher-facing due-schedule caches warm so the
// poll endpoint rarely hits Mongo.
type CacheRefresher struct {
	schedules *ScheduleService
	orders    *RecurringOrderService
}

func NewCacheRefresher(schedules *ScheduleService, orders *RecurringOrderService) *CacheRefresher {
	return &CacheRefresher{
		schedules: schedules,
		orders:    orders,
	}
}

func (cr *CacheRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	go func() {
		for {
			select {
			case <-ticker.C:
				log.Println("[CACHE] Refreshing due-schedule caches...")
				cr.refresh(ctx)
			case <-ctx.Done():
				log.Println("[CACHE] Stopping cache refresher...")
				ticker.Stop()
				return
			}
		}
	}()
}

func (cr *CacheRefresher) refresh(ctx context.Context) {
	if err := cr.schedules.RefreshDueCache(ctx, DefaultDueWindowDays); err != nil {
		log.Printf("[CACHE] Failed to refresh due subscriptions: %v", err)
	}
	if err := cr.orders.RefreshDueCache(ctx, DefaultDueWindowDays); err != nil {
		log.Printf("[CACHE] Failed to refresh due recurring orders: %v", err)
	}
}
