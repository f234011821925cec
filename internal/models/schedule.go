package models

import (
	"fmt"
	"time"
)

type ScheduleStatus string

const (
	SchedulePending ScheduleStatus = "pending"
	ScheduleActive  ScheduleStatus = "active"
	SchedulePaused  ScheduleStatus = "paused"
	// ScheduleCancelled is the terminal status for subscriptions.
	ScheduleCancelled ScheduleStatus = "cancelled"
	// ScheduleEnded is the terminal status for recurring orders.
	ScheduleEnded ScheduleStatus = "ended"
)

func (s ScheduleStatus) Terminal() bool {
	return s == ScheduleCancelled || s == ScheduleEnded
}

type transition struct {
	From ScheduleStatus
	To   ScheduleStatus
}

// validTransitions lists every allowed lifecycle move. Terminal states have
// no outgoing entries at all.
var validTransitions = map[transition]bool{
	{SchedulePending, ScheduleActive}:    true, // first checkout activates
	{ScheduleActive, SchedulePaused}:     true, // pause
	{SchedulePaused, ScheduleActive}:     true, // resume
	{SchedulePending, ScheduleCancelled}: true,
	{ScheduleActive, ScheduleCancelled}:  true,
	{SchedulePaused, ScheduleCancelled}:  true,
	{SchedulePending, ScheduleEnded}:     true,
	{ScheduleActive, ScheduleEnded}:      true,
	{SchedulePaused, ScheduleEnded}:      true,
}

func CanTransition(from, to ScheduleStatus) bool {
	return validTransitions[transition{from, to}]
}

// ScheduleState is the lifecycle half of a subscription or recurring order:
// the status, the computed next delivery, and the pause/skip/cancel bookkeeping.
// Once Status is terminal the engine never mutates it again.
type ScheduleState struct {
	Status            ScheduleStatus `bson:"status"                       json:"status"`
	NextDeliveryAt    *time.Time     `bson:"next_delivery_at,omitempty"   json:"next_delivery_at,omitempty"`
	PausedUntil       *time.Time     `bson:"paused_until,omitempty"       json:"paused_until,omitempty"`
	SkippedDates      []time.Time    `bson:"skipped_dates,omitempty"      json:"skipped_dates,omitempty"`
	SkippedDeliveries int            `bson:"skipped_deliveries"           json:"skipped_deliveries"`
	CancelledAt       *time.Time     `bson:"cancelled_at,omitempty"       json:"cancelled_at,omitempty"`
	CancelReason      string         `bson:"cancel_reason,omitempty"      json:"cancel_reason,omitempty"`
}

// Pause freezes the schedule. NextDeliveryAt is deliberately left as is, so a
// later resume can tell how far the schedule drifted.
func (st *ScheduleState) Pause(until *time.Time) error {
	if !CanTransition(st.Status, SchedulePaused) {
		return fmt.Errorf("%w: cannot pause a %s schedule", ErrInvalidTransition, st.Status)
	}
	st.Status = SchedulePaused
	st.PausedUntil = until
	return nil
}

// Resume reactivates a paused schedule. next must be recomputed by the caller
// from the current time; nil means the rule yields no future delivery.
func (st *ScheduleState) Resume(next *time.Time) error {
	if !CanTransition(st.Status, ScheduleActive) || st.Status != SchedulePaused {
		return fmt.Errorf("%w: cannot resume a %s schedule", ErrInvalidTransition, st.Status)
	}
	st.Status = ScheduleActive
	st.PausedUntil = nil
	st.NextDeliveryAt = next
	return nil
}

// Activate moves a pending schedule to active with its first delivery date.
func (st *ScheduleState) Activate(next *time.Time) error {
	if st.Status != SchedulePending || !CanTransition(st.Status, ScheduleActive) {
		return fmt.Errorf("%w: cannot activate a %s schedule", ErrInvalidTransition, st.Status)
	}
	st.Status = ScheduleActive
	st.NextDeliveryAt = next
	return nil
}

// Skip records the current next delivery as skipped and advances it by exactly
// one week. It never re-runs the full recurrence search, so a single skip can
// never jump past more than one cycle.
func (st *ScheduleState) Skip() error {
	if st.Status != ScheduleActive {
		return fmt.Errorf("%w: cannot skip a %s schedule", ErrInvalidTransition, st.Status)
	}
	if st.NextDeliveryAt == nil {
		return ErrNoNextDelivery
	}
	skipped := *st.NextDeliveryAt
	st.SkippedDates = append(st.SkippedDates, skipped)
	st.SkippedDeliveries++
	next := skipped.AddDate(0, 0, 7)
	st.NextDeliveryAt = &next
	return nil
}

// Cancel moves the schedule to its terminal status (ScheduleCancelled for
// subscriptions, ScheduleEnded for recurring orders).
func (st *ScheduleState) Cancel(terminal ScheduleStatus, reason string, at time.Time) error {
	if !terminal.Terminal() {
		return fmt.Errorf("%w: %s is not a terminal status", ErrInvalidTransition, terminal)
	}
	if !CanTransition(st.Status, terminal) {
		return fmt.Errorf("%w: cannot cancel a %s schedule", ErrInvalidTransition, st.Status)
	}
	st.Status = terminal
	st.CancelledAt = &at
	st.CancelReason = reason
	st.NextDeliveryAt = nil
	st.PausedUntil = nil
	return nil
}
