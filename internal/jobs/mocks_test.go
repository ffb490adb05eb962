package jobs_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBroadcastHandler struct {
	mock.Mock
}

func (m *MockBroadcastHandler) Handle(ctx context.Context, command commands.BroadcastOrderCommand) (order.NotificationPhase, error) {
	args := m.Called(ctx, command)
	return args.Get(0).(order.NotificationPhase), args.Error(1)
}

type MockExpansionHandler struct {
	mock.Mock
}

func (m *MockExpansionHandler) Handle(ctx context.Context, command commands.ExpandBroadcastCommand) (int, error) {
	args := m.Called(ctx, command)
	return args.Int(0), args.Error(1)
}

type MockPromotionHandler struct {
	mock.Mock
}

func (m *MockPromotionHandler) Handle(
	ctx context.Context,
	command commands.PromoteScheduledOrdersCommand,
) commands.PromoteScheduledOrdersResult {
	args := m.Called(ctx, command)
	return args.Get(0).(commands.PromoteScheduledOrdersResult)
}

type MockCycleLock struct {
	mock.Mock
}

func (m *MockCycleLock) Acquire(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *MockCycleLock) Release(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func approvedOrder(t *testing.T) (*order.Order, *store.Store) {
	t.Helper()
	location, err := kernel.NewGeoPoint(12.9121, 77.6446)
	require.NoError(t, err)
	s, err := store.NewStore(kernel.NewUUID(), "HSR Layout Grocers", location)
	require.NoError(t, err)
	o, err := order.NewOrder(
		kernel.NewUUID(),
		s.ID(),
		order.Payment{Method: order.PaymentMethodCashOnDelivery, Status: order.PaymentStatusPending},
		nil,
		time.Now(),
	)
	require.NoError(t, err)
	return o, s
}

// counterValue reads a single counter sample with the given label pair.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if pair.GetName() == label && pair.GetValue() == value {
					return metric.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}
