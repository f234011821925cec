package services

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"grocery-app/delivery-scheduler/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type fakeOrderRepo struct {
	store map[primitive.ObjectID]models.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{store: map[primitive.ObjectID]models.Order{}}
}

func (r *fakeOrderRepo) Create(_ context.Context, order *models.Order) error {
	order.ID = primitive.NewObjectID()
	order.Version = 1
	r.store[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	order, ok := r.store[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	cp := order
	return &cp, nil
}

func (r *fakeOrderRepo) GetRecurringByUser(_ context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.store {
		if order.IsRecurring && order.UserID == userID {
			out = append(out, order)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) GetAllRecurring(_ context.Context) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.store {
		if order.IsRecurring {
			out = append(out, order)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) FindRecurringDueBefore(_ context.Context, until time.Time) ([]models.Order, error) {
	var out []models.Order
	for _, order := range r.store {
		if order.IsRecurring && order.Schedule != nil &&
			order.Schedule.Status == models.ScheduleActive &&
			order.Schedule.NextDeliveryAt != nil && !order.Schedule.NextDeliveryAt.After(until) {
			out = append(out, order)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) Filter(context.Context, bson.M) ([]models.Order, error) {
	return nil, nil
}

func (r *fakeOrderRepo) UpdateVersioned(_ context.Context, order *models.Order) error {
	cur, ok := r.store[order.ID]
	if !ok {
		return mongo.ErrNoDocuments
	}
	if cur.Version != order.Version {
		return models.ErrConflict
	}
	order.Version++
	r.store[order.ID] = *order
	return nil
}

func seedCompletedOrder(repo *fakeOrderRepo) *models.Order {
	order := &models.Order{
		OrderNumber: "ORD-1001",
		UserID:      primitive.NewObjectID(),
		Items: []models.OrderItem{
			{ProductID: "p1", Name: "Bananas", Quantity: 2, UnitPrice: 1.5, Total: 3},
			{ProductID: "p2", Name: "Oat milk", Quantity: 1, UnitPrice: 2.2, Total: 2.2},
		},
		Subtotal:    5.2,
		ShippingFee: 1.0,
		Total:       6.2,
		Address:     "12 Market Street",
		Status:      models.OrderCompleted,
	}
	_ = repo.Create(context.Background(), order)
	return order
}

func TestMaterialize_ClonesCompletedOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo)

	clone, err := svc.Materialize(context.Background(), MaterializeRequest{
		SourceOrderID: src.ID,
		CallerID:      src.UserID,
		Rule:          models.RecurrenceRuleRequest{DaysOfWeek: []int{6}},
	})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	if clone.ID == src.ID {
		t.Error("clone reused the source order ID")
	}
	if !strings.HasPrefix(clone.OrderNumber, "RO-") || clone.OrderNumber == src.OrderNumber {
		t.Errorf("clone order number = %q", clone.OrderNumber)
	}
	if clone.Status != models.OrderPending {
		t.Errorf("clone status = %s, want pending", clone.Status)
	}
	if !clone.IsRecurring || clone.Recurrence == nil || clone.Schedule == nil {
		t.Fatal("clone is missing recurrence/schedule")
	}
	if !reflect.DeepEqual(clone.Items, src.Items) {
		t.Errorf("items not copied verbatim: %v", clone.Items)
	}
	if clone.Total != src.Total || clone.Subtotal != src.Subtotal || clone.ShippingFee != src.ShippingFee {
		t.Error("pricing not copied verbatim")
	}
	if clone.Address != src.Address {
		t.Errorf("address = %q, want %q", clone.Address, src.Address)
	}

	if clone.Schedule.Status != models.ScheduleActive {
		t.Errorf("schedule status = %s, want active", clone.Schedule.Status)
	}
	if clone.Schedule.NextDeliveryAt == nil {
		t.Fatal("NextDeliveryAt not seeded for active schedule")
	}
	if clone.Schedule.NextDeliveryAt.Weekday() != time.Saturday {
		t.Errorf("first delivery on %v, want Saturday", clone.Schedule.NextDeliveryAt.Weekday())
	}

	// The source order is untouched.
	stored, _ := repo.GetByID(context.Background(), src.ID)
	if stored.IsRecurring || stored.Status != models.OrderCompleted {
		t.Error("materialize mutated the source order")
	}
}

func TestMaterialize_RejectsInvalidClone(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo)

	// Corrupt the stored source so its clone fails validation.
	stored := repo.store[src.ID]
	stored.Address = ""
	repo.store[src.ID] = stored

	_, err := svc.Materialize(context.Background(), MaterializeRequest{
		SourceOrderID: src.ID,
		CallerID:      src.UserID,
		Rule:          models.RecurrenceRuleRequest{DaysOfWeek: []int{6}},
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Fatalf("Materialize = %v, want ErrValidation", err)
	}
	if len(repo.store) != 1 {
		t.Errorf("store has %d orders, want only the source", len(repo.store))
	}
}

func TestMaterialize_OwnershipViolationCreatesNothing(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo)

	_, err := svc.Materialize(context.Background(), MaterializeRequest{
		SourceOrderID: src.ID,
		CallerID:      primitive.NewObjectID(), // not the owner
		Rule:          models.RecurrenceRuleRequest{DaysOfWeek: []int{6}},
	})
	if !errors.Is(err, models.ErrOwnershipViolation) {
		t.Fatalf("Materialize = %v, want ErrOwnershipViolation", err)
	}
	if len(repo.store) != 1 {
		t.Errorf("store has %d orders, want 1 (no record created)", len(repo.store))
	}
}

func TestMaterialize_RequiresCompletedSource(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo)
	src.Status = models.OrderPending
	repo.store[src.ID] = *src

	_, err := svc.Materialize(context.Background(), MaterializeRequest{
		SourceOrderID: src.ID,
		CallerID:      src.UserID,
		Rule:          models.RecurrenceRuleRequest{DaysOfWeek: []int{6}},
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("Materialize on pending source = %v, want ErrValidation", err)
	}
}

func TestMaterialize_CallerSeedsNextDelivery(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo)

	seed := time.Now().UTC().AddDate(0, 0, 30)
	clone, err := svc.Materialize(context.Background(), MaterializeRequest{
		SourceOrderID:  src.ID,
		CallerID:       src.UserID,
		Rule:           models.RecurrenceRuleRequest{DaysOfWeek: []int{6}},
		NextDeliveryAt: &seed,
	})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if !clone.Schedule.NextDeliveryAt.Equal(models.DateOnly(seed)) {
		t.Errorf("NextDeliveryAt = %v, want %v", clone.Schedule.NextDeliveryAt, models.DateOnly(seed))
	}
}

func TestMaterialize_PendingDefersComputation(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo)
	ctx := context.Background()

	clone, err := svc.Materialize(ctx, MaterializeRequest{
		SourceOrderID: src.ID,
		CallerID:      src.UserID,
		Rule:          models.RecurrenceRuleRequest{DaysOfWeek: []int{6}},
		InitialStatus: models.SchedulePending,
	})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if clone.Schedule.Status != models.SchedulePending || clone.Schedule.NextDeliveryAt != nil {
		t.Errorf("pending clone schedule = %+v", clone.Schedule)
	}

	activated, err := svc.Activate(ctx, clone.ID)
	if err != nil {
		t.Fatalf("Activate failed: %v", err)
	}
	if activated.Schedule.Status != models.ScheduleActive || activated.Schedule.NextDeliveryAt == nil {
		t.Errorf("activated schedule = %+v", activated.Schedule)
	}
}

func TestRecurringOrder_SkipAdvancesOneWeek(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo)
	ctx := context.Background()

	clone, err := svc.Materialize(ctx, MaterializeRequest{
		SourceOrderID: src.ID,
		CallerID:      src.UserID,
		Rule:          models.RecurrenceRuleRequest{DaysOfWeek: []int{6}},
	})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	before := *clone.Schedule.NextDeliveryAt

	skipped, err := svc.Skip(ctx, clone.ID)
	if err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	if skipped.Schedule.SkippedDeliveries != 1 {
		t.Errorf("SkippedDeliveries = %d, want 1", skipped.Schedule.SkippedDeliveries)
	}
	if !skipped.Schedule.NextDeliveryAt.Equal(before.AddDate(0, 0, 7)) {
		t.Errorf("NextDeliveryAt = %v, want %v", skipped.Schedule.NextDeliveryAt, before.AddDate(0, 0, 7))
	}
}

func TestRecurringOrder_ResumeRecomputesFromRule(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo)
	ctx := context.Background()

	selected := models.DateOnly(time.Now().UTC().AddDate(0, 0, 20))
	clone, err := svc.Materialize(ctx, MaterializeRequest{
		SourceOrderID: src.ID,
		CallerID:      src.UserID,
		Rule:          models.RecurrenceRuleRequest{SelectedDates: []string{selected.Format("2006-01-02")}},
	})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	if _, err := svc.Pause(ctx, clone.ID, nil); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	resumed, err := svc.Resume(ctx, clone.ID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.Schedule.NextDeliveryAt == nil || !resumed.Schedule.NextDeliveryAt.Equal(selected) {
		t.Errorf("resumed NextDeliveryAt = %v, want %v", resumed.Schedule.NextDeliveryAt, selected)
	}
}

func TestRecurringOrder_ResumeWithExhaustedRuleClearsNext(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo)
	ctx := context.Background()

	// Single selected date in the past: once paused and resumed, the rule
	// yields nothing, which is a valid state.
	clone, err := svc.Materialize(ctx, MaterializeRequest{
		SourceOrderID: src.ID,
		CallerID:      src.UserID,
		Rule:          models.RecurrenceRuleRequest{SelectedDates: []string{"2020-01-04"}},
	})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	if _, err := svc.Pause(ctx, clone.ID, nil); err != nil {
		t.Fatalf("Pause failed: %v", err)
	}
	resumed, err := svc.Resume(ctx, clone.ID)
	if err != nil {
		t.Fatalf("Resume failed: %v", err)
	}
	if resumed.Schedule.NextDeliveryAt != nil {
		t.Errorf("NextDeliveryAt = %v, want nil for exhausted rule", resumed.Schedule.NextDeliveryAt)
	}
}

func TestRecurringOrder_CancelOnEndedRejected(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo)
	ctx := context.Background()

	clone, err := svc.Materialize(ctx, MaterializeRequest{
		SourceOrderID: src.ID,
		CallerID:      src.UserID,
		Rule:          models.RecurrenceRuleRequest{DaysOfWeek: []int{6}},
	})
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}

	if _, err := svc.Cancel(ctx, clone.ID, "done"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	ended, _ := repo.GetByID(ctx, clone.ID)
	if ended.Schedule.Status != models.ScheduleEnded {
		t.Fatalf("status = %s, want ended", ended.Schedule.Status)
	}

	if _, err := svc.Cancel(ctx, clone.ID, "again"); !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("Cancel on ended = %v, want ErrInvalidTransition", err)
	}
	after, _ := repo.GetByID(ctx, clone.ID)
	if !reflect.DeepEqual(after.Schedule, ended.Schedule) {
		t.Error("rejected cancel mutated the schedule")
	}
}

func TestRecurringOrder_TransitionsRequireRecurringOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	svc := NewRecurringOrderService(repo, nil)
	src := seedCompletedOrder(repo) // plain one-time order

	if _, err := svc.Skip(context.Background(), src.ID); !errors.Is(err, models.ErrValidation) {
		t.Errorf("Skip on one-time order = %v, want ErrValidation", err)
	}
}
