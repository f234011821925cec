package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliverySlot is the simple recurrence a subscription uses: one weekday plus
// a human-facing time-slot label (for example "09:00-12:00").
type DeliverySlot struct {
	Day      string `bson:"day"       json:"day"       validate:"required"`
	TimeSlot string `bson:"time_slot" json:"time_slot" validate:"required"`
}

func (s DeliverySlot) Validate() error {
	if strings.TrimSpace(s.Day) == "" || strings.TrimSpace(s.TimeSlot) == "" {
		return fmt.Errorf("%w: delivery slot day and time_slot are required", ErrValidation)
	}
	_, err := ParseWeekday(s.Day)
	return err
}

// Rule expresses the slot as a single-weekday recurrence rule.
func (s DeliverySlot) Rule() (RecurrenceRule, error) {
	return SingleWeekdayRule(s.Day)
}

// Subscription is created on first checkout and never hard-deleted; cancelling
// moves its schedule to the terminal cancelled status instead.
type Subscription struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   primitive.ObjectID `bson:"user_id"       json:"user_id"`
	PlanID   primitive.ObjectID `bson:"plan_id"       json:"plan_id"`
	Slot     DeliverySlot       `bson:"slot"          json:"slot"`
	Schedule ScheduleState      `bson:"schedule"      json:"schedule"`

	// Version guards every transition write; see repository.UpdateVersioned.
	Version   int64     `bson:"version"    json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
