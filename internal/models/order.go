package models

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderShipped   OrderStatus = "shipped"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type OrderItem struct {
	ProductID string  `bson:"product_id" json:"product_id"`
	Name      string  `bson:"name"       json:"name"`
	Quantity  int     `bson:"quantity"   json:"quantity"`
	UnitPrice float64 `bson:"unit_price" json:"unit_price"`
	Total     float64 `bson:"total"      json:"total"`
}

// Order is a storefront order document. A recurring order is the same shape
// with IsRecurring set and Recurrence/Schedule embedded; it is produced by
// cloning a completed one-time order and restarts the normal fulfillment
// lifecycle (status pending) each cycle.
type Order struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OrderNumber string             `bson:"order_number"  json:"order_number"`
	UserID      primitive.ObjectID `bson:"user_id"       json:"user_id"`
	Items       []OrderItem        `bson:"items"         json:"items"`
	Subtotal    float64            `bson:"subtotal"      json:"subtotal"`
	ShippingFee float64            `bson:"shipping_fee"  json:"shipping_fee"`
	Total       float64            `bson:"total"         json:"total"`
	Address     string             `bson:"address"       json:"address"`
	Status      OrderStatus        `bson:"status"        json:"status"`

	IsRecurring bool            `bson:"is_recurring"            json:"is_recurring"`
	Recurrence  *RecurrenceRule `bson:"recurrence,omitempty"    json:"recurrence,omitempty"`
	Schedule    *ScheduleState  `bson:"schedule,omitempty"      json:"schedule,omitempty"`

	Version   int64     `bson:"version"    json:"-"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

func (o *Order) Validate() error {
	if o.UserID.IsZero() || len(o.Items) == 0 || o.Address == "" {
		return errors.New("missing required order fields")
	}
	return nil
}
