package commands_test

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/domain/model/store"
	"dispatch/internal/core/ports"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderRepository) ApplyAssignmentPatch(ctx context.Context, id kernel.UUID, patch order.AssignmentPatch) error {
	args := m.Called(ctx, id, patch)
	return args.Error(0)
}

func (m *MockOrderRepository) SavePromotion(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) FindDueScheduled(ctx context.Context, now time.Time) ([]*order.Order, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*order.Order), args.Error(1)
}

type MockStoreRepository struct{ mock.Mock }

func (m *MockStoreRepository) Add(ctx context.Context, s *store.Store) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockStoreRepository) Get(ctx context.Context, id kernel.UUID) (*store.Store, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Store), args.Error(1)
}

type MockUoW struct{ mock.Mock }

func (m *MockUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

func (m *MockUoW) StoreRepository() ports.StoreRepository {
	args := m.Called()
	return args.Get(0).(ports.StoreRepository)
}

type MockUoWFactory struct{ mock.Mock }

func (m *MockUoWFactory) Create() commands.UoW {
	args := m.Called()
	return args.Get(0).(commands.UoW)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockPartnerLocator struct{ mock.Mock }

func (m *MockPartnerLocator) LocateNearest(
	ctx context.Context, seed kernel.GeoPoint, storeID kernel.UUID, maxCount int,
) ([]partner.Candidate, error) {
	args := m.Called(ctx, seed, storeID, maxCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partner.Candidate), args.Error(1)
}

func (m *MockPartnerLocator) LocateNearestWidened(
	ctx context.Context, seed kernel.GeoPoint, storeID kernel.UUID, maxCount int,
) ([]partner.Candidate, error) {
	args := m.Called(ctx, seed, storeID, maxCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]partner.Candidate), args.Error(1)
}

func (m *MockPartnerLocator) LocateOneNearest(
	ctx context.Context, seed kernel.GeoPoint, storeID kernel.UUID, maxCount int,
) (*partner.Candidate, error) {
	args := m.Called(ctx, seed, storeID, maxCount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Candidate), args.Error(1)
}

type MockNotificationDispatcher struct{ mock.Mock }

func (m *MockNotificationDispatcher) DispatchOffer(
	ctx context.Context, o *order.Order, s *store.Store, partnerIDs []kernel.UUID, phase order.NotificationPhase,
) error {
	args := m.Called(ctx, o, s, partnerIDs, phase)
	return args.Error(0)
}

func (m *MockNotificationDispatcher) NotifyStoreStatusChange(
	ctx context.Context, orderID, storeID kernel.UUID, status order.Status,
) error {
	args := m.Called(ctx, orderID, storeID, status)
	return args.Error(0)
}

type MockExpansionScheduler struct{ mock.Mock }

func (m *MockExpansionScheduler) ScheduleExpansion(orderID kernel.UUID, delay time.Duration) error {
	args := m.Called(orderID, delay)
	return args.Error(0)
}

var fixedNow = time.Date(2026, 5, 2, 19, 30, 0, 0, time.UTC)

func fixedClock() time.Time {
	return fixedNow
}

func testStore(t *testing.T, location kernel.GeoPoint) *store.Store {
	t.Helper()
	s, err := store.RestoreStore(kernel.NewUUID(), "HSR Daily Needs", location)
	require.NoError(t, err)
	return s
}

func usableLocation() kernel.GeoPoint {
	return kernel.RawGeoPoint(12.9121, 77.6446)
}

func approvedOrder(t *testing.T, s *store.Store) *order.Order {
	t.Helper()
	o, err := order.NewOrder(
		kernel.NewUUID(),
		s.ID(),
		order.Payment{Method: order.PaymentMethodCashOnDelivery, Status: order.PaymentStatusPending},
		nil,
		fixedNow.Add(-10*time.Minute),
	)
	require.NoError(t, err)
	return o
}

func scheduledOrder(t *testing.T, slot time.Time, payment order.Payment) *order.Order {
	t.Helper()
	o, err := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(), payment, &slot, slot.Add(-24*time.Hour))
	require.NoError(t, err)
	return o
}

// reread returns a separate instance with the same state, as a fresh read
// from the Order Store would.
func reread(t *testing.T, o *order.Order) *order.Order {
	t.Helper()
	fresh, err := order.RestoreOrder(order.Snapshot{
		ID:                o.ID(),
		StoreID:           o.StoreID(),
		Status:            o.Status(),
		DeliveryPartnerID: o.DeliveryPartnerID(),
		Assignment:        o.Assignment(),
		ScheduledDelivery: o.ScheduledDelivery(),
		Payment:           o.Payment(),
		Tracking:          o.Tracking(),
		PostOrderActions:  o.PostOrderActions(),
	})
	require.NoError(t, err)
	return fresh
}

func candidates(ids ...kernel.UUID) []partner.Candidate {
	result := make([]partner.Candidate, 0, len(ids))
	for i, id := range ids {
		result = append(result, partner.Candidate{ID: id, DistanceKm: float64(i) * 0.4})
	}
	return result
}

func newIDs(n int) []kernel.UUID {
	ids := make([]kernel.UUID, n)
	for i := range ids {
		ids[i] = kernel.NewUUID()
	}
	return ids
}
