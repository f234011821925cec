package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"grocery-app/delivery-scheduler/internal/config"
	"grocery-app/delivery-scheduler/internal/models"
	"grocery-app/delivery-scheduler/internal/services"
	"grocery-app/delivery-scheduler/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RecurringOrderService interface {
	Materialize(ctx context.Context, req services.MaterializeRequest) (*models.Order, error)
	Pause(ctx context.Context, id primitive.ObjectID, until *time.Time) (*models.Order, error)
	Resume(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Activate(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Skip(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	Cancel(ctx context.Context, id primitive.ObjectID, reason string) (*models.Order, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	GetAll(ctx context.Context) ([]models.Order, error)
	DueWithin(ctx context.Context, days int) ([]models.Order, error)
}

type RecurringOrderHandler struct {
	service RecurringOrderService
	cfg     *config.Config
}

func NewRecurringOrderHandler(svc RecurringOrderService, cfg *config.Config) *RecurringOrderHandler {
	return &RecurringOrderHandler{service: svc, cfg: cfg}
}

// POST /api/recurring-orders
// Clones a completed order the caller owns into a new recurring order.
func (h *RecurringOrderHandler) Materialize(c *gin.Context) {
	var in struct {
		SourceOrderID  primitive.ObjectID           `json:"source_order_id" binding:"required"`
		Rule           models.RecurrenceRuleRequest `json:"rule"`
		InitialStatus  models.ScheduleStatus        `json:"initial_status"`
		NextDeliveryAt string                       `json:"next_delivery_at"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.GetValidator().Struct(in.Rule); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ParseErrors(err)})
		return
	}

	callerID, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	req := services.MaterializeRequest{
		SourceOrderID: in.SourceOrderID,
		CallerID:      callerID,
		Rule:          in.Rule,
		InitialStatus: in.InitialStatus,
	}
	if in.NextDeliveryAt != "" {
		d, err := models.ParseDate(in.NextDeliveryAt)
		if err != nil {
			respondError(c, err)
			return
		}
		req.NextDeliveryAt = &d
	}

	order, err := h.service.Materialize(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, order)
	h.notify(order, "recurring_order_created")
}

// GET /api/recurring-orders/my
func (h *RecurringOrderHandler) GetMy(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	orders, err := h.service.GetByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recurring orders"})
		return
	}
	if orders == nil {
		orders = make([]models.Order, 0)
	}
	c.JSON(http.StatusOK, orders)
}

// GET /api/recurring-orders
func (h *RecurringOrderHandler) GetAll(c *gin.Context) {
	orders, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch recurring orders"})
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /api/recurring-orders/:id
func (h *RecurringOrderHandler) GetByID(c *gin.Context) {
	order, ok := h.loadOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /api/recurring-orders/due?days=7
func (h *RecurringOrderHandler) Due(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(services.DefaultDueWindowDays)))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}
	orders, err := h.service.DueWithin(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch due recurring orders"})
		return
	}
	if orders == nil {
		orders = make([]models.Order, 0)
	}
	c.JSON(http.StatusOK, orders)
}

// POST /api/recurring-orders/:id/pause
func (h *RecurringOrderHandler) Pause(c *gin.Context) {
	order, ok := h.loadOwned(c)
	if !ok {
		return
	}

	var req struct {
		Until string `json:"until"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var until *time.Time
	if req.Until != "" {
		d, err := models.ParseDate(req.Until)
		if err != nil {
			respondError(c, err)
			return
		}
		until = &d
	}

	updated, err := h.service.Pause(c.Request.Context(), order.ID, until)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
	h.notify(updated, "recurring_order_paused")
}

// POST /api/recurring-orders/:id/resume
func (h *RecurringOrderHandler) Resume(c *gin.Context) {
	order, ok := h.loadOwned(c)
	if !ok {
		return
	}
	updated, err := h.service.Resume(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
	h.notify(updated, "recurring_order_resumed")
}

// POST /api/recurring-orders/:id/activate
func (h *RecurringOrderHandler) Activate(c *gin.Context) {
	order, ok := h.loadOwned(c)
	if !ok {
		return
	}
	updated, err := h.service.Activate(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
	h.notify(updated, "recurring_order_activated")
}

// POST /api/recurring-orders/:id/skip
func (h *RecurringOrderHandler) Skip(c *gin.Context) {
	order, ok := h.loadOwned(c)
	if !ok {
		return
	}
	updated, err := h.service.Skip(c.Request.Context(), order.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
	h.notify(updated, "recurring_order_skipped")
}

// POST /api/recurring-orders/:id/cancel
func (h *RecurringOrderHandler) Cancel(c *gin.Context) {
	order, ok := h.loadOwned(c)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.Cancel(c.Request.Context(), order.ID, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
	h.notify(updated, "recurring_order_ended")
}

func (h *RecurringOrderHandler) loadOwned(c *gin.Context) (*models.Order, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order ID"})
		return nil, false
	}
	order, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if order.UserID.Hex() != c.GetString("userID") && !isStaff(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return nil, false
	}
	return order, true
}

func (h *RecurringOrderHandler) notify(order *models.Order, event string) {
	go func() {
		_ = utils.SendNotification(context.Background(), h.cfg, utils.NotificationRequest{
			UserID:       order.UserID.Hex(),
			Role:         "client",
			Title:        "Recurring order updated",
			Message:      "Your recurring order was updated.",
			Type:         event,
			DeliveryType: "push",
			Metadata:     map[string]string{"order_id": order.ID.Hex()},
		})
	}()
}
