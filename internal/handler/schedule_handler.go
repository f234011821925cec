package handler

import (
	"context"
	"errors"
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

type ScheduleService interface {
	Create(ctx context.Context, sub *models.Subscription) error
	Pause(ctx context.Context, id primitive.ObjectID, until *time.Time) (*models.Subscription, error)
	Resume(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error)
	Activate(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error)
	Skip(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error)
	Cancel(ctx context.Context, id primitive.ObjectID, reason string) (*models.Subscription, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Subscription, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Subscription, error)
	GetAll(ctx context.Context) ([]models.Subscription, error)
	DueWithin(ctx context.Context, days int) ([]models.Subscription, error)
}

type ScheduleHandler struct {
	service ScheduleService
	cfg     *config.Config
}

func NewScheduleHandler(svc ScheduleService, cfg *config.Config) *ScheduleHandler {
	return &ScheduleHandler{service: svc, cfg: cfg}
}

// POST /api/schedules
func (h *ScheduleHandler) Create(c *gin.Context) {
	var in struct {
		PlanID primitive.ObjectID    `json:"plan_id" binding:"required"`
		Slot   models.DeliverySlot   `json:"slot"    binding:"required"`
		Status models.ScheduleStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.GetValidator().Struct(in.Slot); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ParseErrors(err)})
		return
	}

	userID, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	sub := &models.Subscription{
		UserID:   userID,
		PlanID:   in.PlanID,
		Slot:     in.Slot,
		Schedule: models.ScheduleState{Status: in.Status},
	}
	if err := h.service.Create(c.Request.Context(), sub); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sub)
	h.notify(sub, "subscription_created")
}

// GET /api/schedules/my
func (h *ScheduleHandler) GetMy(c *gin.Context) {
	userID, err := primitive.ObjectIDFromHex(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	subs, err := h.service.GetByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch subscriptions"})
		return
	}
	if subs == nil {
		subs = make([]models.Subscription, 0)
	}
	c.JSON(http.StatusOK, subs)
}

// GET /api/schedules
func (h *ScheduleHandler) GetAll(c *gin.Context) {
	subs, err := h.service.GetAll(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch subscriptions"})
		return
	}
	c.JSON(http.StatusOK, subs)
}

// GET /api/schedules/:id
func (h *ScheduleHandler) GetByID(c *gin.Context) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sub)
}

// GET /api/schedules/due?days=7
// Poll endpoint for the external dispatcher.
func (h *ScheduleHandler) Due(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(services.DefaultDueWindowDays)))
	if err != nil || days <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be a positive integer"})
		return
	}
	subs, err := h.service.DueWithin(c.Request.Context(), days)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch due subscriptions"})
		return
	}
	if subs == nil {
		subs = make([]models.Subscription, 0)
	}
	c.JSON(http.StatusOK, subs)
}

// POST /api/schedules/:id/pause
func (h *ScheduleHandler) Pause(c *gin.Context) {
	sub, ok := h.loadOwned(c)
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

	updated, err := h.service.Pause(c.Request.Context(), sub.ID, until)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
	h.notify(updated, "subscription_paused")
}

// POST /api/schedules/:id/resume
func (h *ScheduleHandler) Resume(c *gin.Context) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}
	updated, err := h.service.Resume(c.Request.Context(), sub.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
	h.notify(updated, "subscription_resumed")
}

// POST /api/schedules/:id/activate
func (h *ScheduleHandler) Activate(c *gin.Context) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}
	updated, err := h.service.Activate(c.Request.Context(), sub.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
	h.notify(updated, "subscription_activated")
}

// POST /api/schedules/:id/skip
func (h *ScheduleHandler) Skip(c *gin.Context) {
	sub, ok := h.loadOwned(c)
	if !ok {
		return
	}
	updated, err := h.service.Skip(c.Request.Context(), sub.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
	h.notify(updated, "subscription_skipped")
}

// POST /api/schedules/:id/cancel
func (h *ScheduleHandler) Cancel(c *gin.Context) {
	sub, ok := h.loadOwned(c)
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

	updated, err := h.service.Cancel(c.Request.Context(), sub.ID, req.Reason)
	if err != nil {
		var partial *models.PartialCancelError
		if errors.As(err, &partial) {
			// The subscription is cancelled; only the plan counter lagged.
			c.JSON(http.StatusOK, gin.H{"subscription": updated, "warning": partial.Error()})
			h.notify(updated, "subscription_cancelled")
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
	h.notify(updated, "subscription_cancelled")
}

// POST /api/schedules/preview
// Computes the next delivery for a submitted rule without persisting anything.
func (h *ScheduleHandler) Preview(c *gin.Context) {
	var req models.RecurrenceRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := utils.GetValidator().Struct(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": utils.ParseErrors(err)})
		return
	}
	rule, err := req.Parse()
	if err != nil {
		respondError(c, err)
		return
	}
	next, found := services.NextDeliveryDate(rule, time.Now().UTC())
	if !found {
		c.JSON(http.StatusOK, gin.H{"next_delivery_at": nil})
		return
	}
	c.JSON(http.StatusOK, gin.H{"next_delivery_at": next})
}

// GET /api/schedules/next-slot?day=saturday
func (h *ScheduleHandler) NextSlot(c *gin.Context) {
	next, err := services.NextWeekday(c.Query("day"), time.Now().UTC())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"next_delivery_at": next})
}

// loadOwned fetches the subscription and enforces that the caller owns it or
// is staff. On failure it writes the response itself.
func (h *ScheduleHandler) loadOwned(c *gin.Context) (*models.Subscription, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription ID"})
		return nil, false
	}
	sub, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if sub.UserID.Hex() != c.GetString("userID") && !isStaff(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
		return nil, false
	}
	return sub, true
}

func (h *ScheduleHandler) notify(sub *models.Subscription, event string) {
	go func() {
		_ = utils.SendNotification(context.Background(), h.cfg, utils.NotificationRequest{
			UserID:       sub.UserID.Hex(),
			Role:         "client",
			Title:        "Delivery schedule updated",
			Message:      "Your delivery subscription was updated.",
			Type:         event,
			DeliveryType: "push",
			Metadata:     map[string]string{"subscription_id": sub.ID.Hex()},
		})
	}()
}
