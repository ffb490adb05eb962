package commands_test

import (
	"errors"
	"testing"
	"time"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/domain/model/store"
	"dispatch/internal/core/domain/services"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type broadcastFixture struct {
	factory    *MockUoWFactory
	uow        *MockUoW
	orders     *MockOrderRepository
	locator    *MockPartnerLocator
	notifier   *MockNotificationDispatcher
	expansions *MockExpansionScheduler
	handler    commands.BroadcastOrderCommandHandler
}

func newBroadcastFixture() *broadcastFixture {
	f := &broadcastFixture{
		factory:    new(MockUoWFactory),
		uow:        new(MockUoW),
		orders:     new(MockOrderRepository),
		locator:    new(MockPartnerLocator),
		notifier:   new(MockNotificationDispatcher),
		expansions: new(MockExpansionScheduler),
	}
	f.factory.On("Create").Return(f.uow).Maybe()
	f.uow.On("OrderRepository").Return(f.orders).Maybe()
	f.handler = commands.NewBroadcastOrderCommandHandler(
		f.factory, f.locator, f.notifier, f.expansions, commands.DefaultBroadcastPolicy(), fixedClock,
	)
	return f
}

func (f *broadcastFixture) assertExpectations(t *testing.T) {
	f.factory.AssertExpectations(t)
	f.uow.AssertExpectations(t)
	f.orders.AssertExpectations(t)
	f.locator.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
	f.expansions.AssertExpectations(t)
}

func priorityPatch(ids []kernel.UUID) any {
	return mock.MatchedBy(func(p order.AssignmentPatch) bool {
		return p.Phase == order.PhasePriority &&
			assert.ObjectsAreEqual(ids, p.PriorityPartnerIDs) &&
			p.PriorityNotifiedAt != nil && p.PriorityNotifiedAt.Equal(fixedNow) &&
			p.ExpandedPartnerIDs == nil && p.ExpandedNotifiedAt == nil
	})
}

func broadcastCommand(t *testing.T, o *order.Order, s *store.Store) commands.BroadcastOrderCommand {
	t.Helper()
	cmd, err := commands.NewBroadcastOrderCommand(o, s)
	require.NoError(t, err)
	return cmd
}

func TestBroadcastOrderCommandHandler_Handle_PriorityPhase(t *testing.T) {
	ctx := t.Context()
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)
	ids := newIDs(3)

	mock.InOrder(
		f.orders.On("Get", ctx, o.ID()).Return(reread(t, o), nil).Once(),
		f.locator.On("LocateNearest", ctx, s.Location(), s.ID(), 5).Return(candidates(ids...), nil).Once(),
		f.orders.On("ApplyAssignmentPatch", ctx, o.ID(), priorityPatch(ids)).Return(nil).Once(),
		f.notifier.On("DispatchOffer", ctx, mock.AnythingOfType("*order.Order"), s, ids, order.PhasePriority).
			Return(nil).Once(),
		f.expansions.On("ScheduleExpansion", o.ID(), commands.DefaultExpansionDelay).Return(nil).Once(),
	)

	phase, err := f.handler.Handle(ctx, broadcastCommand(t, o, s))

	require.NoError(t, err)
	assert.Equal(t, order.PhasePriority, phase)
	f.assertExpectations(t)
	f.notifier.AssertNumberOfCalls(t, "DispatchOffer", 1)
}

func TestBroadcastOrderCommandHandler_Handle_ClaimedOrderIsNoOp(t *testing.T) {
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)
	require.NoError(t, o.Claim(kernel.NewUUID()))

	phase, err := f.handler.Handle(t.Context(), broadcastCommand(t, o, s))

	require.ErrorIs(t, err, commands.ErrOrderNotEligible)
	require.ErrorIs(t, err, services.ErrOrderClaimed)
	assert.True(t, commands.IsBroadcastNoOp(err))
	assert.Equal(t, order.PhaseNone, phase)
	f.orders.AssertNotCalled(t, "ApplyAssignmentPatch", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "DispatchOffer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.locator.AssertNotCalled(t, "LocateNearest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastOrderCommandHandler_Handle_CancelledOrderIsNoOp(t *testing.T) {
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)
	require.NoError(t, o.Cancel(fixedNow))

	_, err := f.handler.Handle(t.Context(), broadcastCommand(t, o, s))

	require.ErrorIs(t, err, services.ErrOrderCancelled)
	assert.Equal(t, "not_eligible", commands.NoOpReason(err))
	f.assertExpectations(t)
	f.notifier.AssertNotCalled(t, "DispatchOffer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastOrderCommandHandler_Handle_UnsetStoreLocationNeverLocates(t *testing.T) {
	for name, location := range map[string]kernel.GeoPoint{
		"origin":  kernel.RawGeoPoint(0, 0),
		"missing": {},
	} {
		t.Run(name, func(t *testing.T) {
			f := newBroadcastFixture()
			s := testStore(t, location)
			o := approvedOrder(t, s)

			_, err := f.handler.Handle(t.Context(), broadcastCommand(t, o, s))

			require.ErrorIs(t, err, services.ErrStoreLocationUnset)
			f.locator.AssertNotCalled(t, "LocateNearest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.locator.AssertNotCalled(t, "LocateOneNearest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			f.orders.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		})
	}
}

func TestBroadcastOrderCommandHandler_Handle_ClaimedBetweenApprovalAndStart(t *testing.T) {
	ctx := t.Context()
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)
	fresh := reread(t, o)
	require.NoError(t, fresh.Claim(kernel.NewUUID()))
	f.orders.On("Get", ctx, o.ID()).Return(fresh, nil).Once()

	_, err := f.handler.Handle(ctx, broadcastCommand(t, o, s))

	require.ErrorIs(t, err, services.ErrOrderClaimed)
	f.assertExpectations(t)
	f.locator.AssertNotCalled(t, "LocateNearest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastOrderCommandHandler_Handle_OrderVanished(t *testing.T) {
	ctx := t.Context()
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)
	f.orders.On("Get", ctx, o.ID()).Return(nil, errs.NewObjectNotFoundError("order", o.ID())).Once()

	_, err := f.handler.Handle(ctx, broadcastCommand(t, o, s))

	require.ErrorIs(t, err, commands.ErrOrderNotEligible)
	f.assertExpectations(t)
}

func TestBroadcastOrderCommandHandler_Handle_ImmediateFallback(t *testing.T) {
	ctx := t.Context()
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)
	z := kernel.NewUUID()

	mock.InOrder(
		f.orders.On("Get", ctx, o.ID()).Return(reread(t, o), nil).Once(),
		f.locator.On("LocateNearest", ctx, s.Location(), s.ID(), 5).Return([]partner.Candidate{}, nil).Once(),
		f.locator.On("LocateOneNearest", ctx, s.Location(), s.ID(), 50).Return(&partner.Candidate{ID: z}, nil).Once(),
		f.orders.On("ApplyAssignmentPatch", ctx, o.ID(), mock.MatchedBy(func(p order.AssignmentPatch) bool {
			return p.Phase == order.PhaseImmediate && assert.ObjectsAreEqual([]kernel.UUID{z}, p.PriorityPartnerIDs)
		})).Return(nil).Once(),
		f.notifier.On("DispatchOffer", ctx, mock.AnythingOfType("*order.Order"), s, []kernel.UUID{z}, order.PhaseImmediate).
			Return(nil).Once(),
	)

	phase, err := f.handler.Handle(ctx, broadcastCommand(t, o, s))

	require.NoError(t, err)
	assert.Equal(t, order.PhaseImmediate, phase)
	f.assertExpectations(t)
	f.expansions.AssertNotCalled(t, "ScheduleExpansion", mock.Anything, mock.Anything)
}

func TestBroadcastOrderCommandHandler_Handle_NoCandidatesAnywhere(t *testing.T) {
	ctx := t.Context()
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)

	f.orders.On("Get", ctx, o.ID()).Return(reread(t, o), nil).Once()
	f.locator.On("LocateNearest", ctx, s.Location(), s.ID(), 5).Return(nil, nil).Once()
	f.locator.On("LocateOneNearest", ctx, s.Location(), s.ID(), 50).Return(nil, nil).Once()

	phase, err := f.handler.Handle(ctx, broadcastCommand(t, o, s))

	require.ErrorIs(t, err, commands.ErrNoCandidatesFound)
	assert.Equal(t, order.PhaseNone, phase)
	f.assertExpectations(t)
	f.orders.AssertNotCalled(t, "ApplyAssignmentPatch", mock.Anything, mock.Anything, mock.Anything)
	f.expansions.AssertNotCalled(t, "ScheduleExpansion", mock.Anything, mock.Anything)
}

func TestBroadcastOrderCommandHandler_Handle_LostRaceOnWrite(t *testing.T) {
	ctx := t.Context()
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)
	ids := newIDs(2)

	f.orders.On("Get", ctx, o.ID()).Return(reread(t, o), nil).Once()
	f.locator.On("LocateNearest", ctx, s.Location(), s.ID(), 5).Return(candidates(ids...), nil).Once()
	f.orders.On("ApplyAssignmentPatch", ctx, o.ID(), priorityPatch(ids)).Return(order.ErrStaleOrder).Once()

	_, err := f.handler.Handle(ctx, broadcastCommand(t, o, s))

	require.ErrorIs(t, err, commands.ErrOrderNotEligible)
	require.ErrorIs(t, err, order.ErrStaleOrder)
	f.assertExpectations(t)
	f.notifier.AssertNotCalled(t, "DispatchOffer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastOrderCommandHandler_Handle_DispatchFailureDropsPhase(t *testing.T) {
	ctx := t.Context()
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)
	ids := newIDs(1)
	transportErr := errors.New("broker unavailable")

	f.orders.On("Get", ctx, o.ID()).Return(reread(t, o), nil).Once()
	f.locator.On("LocateNearest", ctx, s.Location(), s.ID(), 5).Return(candidates(ids...), nil).Once()
	f.orders.On("ApplyAssignmentPatch", ctx, o.ID(), priorityPatch(ids)).Return(nil).Once()
	f.notifier.On("DispatchOffer", ctx, mock.Anything, s, ids, order.PhasePriority).Return(transportErr).Once()

	_, err := f.handler.Handle(ctx, broadcastCommand(t, o, s))

	require.ErrorIs(t, err, transportErr)
	assert.Equal(t, commands.StepDispatch, commands.FailedStep(err))
	assert.False(t, commands.IsBroadcastNoOp(err))
	f.assertExpectations(t)
	f.expansions.AssertNotCalled(t, "ScheduleExpansion", mock.Anything, mock.Anything)
}

func TestBroadcastOrderCommandHandler_Handle_LocatorFailure(t *testing.T) {
	ctx := t.Context()
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)

	f.orders.On("Get", ctx, o.ID()).Return(reread(t, o), nil).Once()
	f.locator.On("LocateNearest", ctx, s.Location(), s.ID(), 5).Return(nil, errors.New("redis timeout")).Once()

	_, err := f.handler.Handle(ctx, broadcastCommand(t, o, s))

	assert.Equal(t, commands.StepLocate, commands.FailedStep(err))
	f.assertExpectations(t)
	f.orders.AssertNotCalled(t, "ApplyAssignmentPatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastOrderCommandHandler_Handle_AlreadyExpanded(t *testing.T) {
	ctx := t.Context()
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)
	fresh := reread(t, o)
	_, err := fresh.RecordPriorityPhase(newIDs(1), fixedNow)
	require.NoError(t, err)
	_, err = fresh.RecordExpandedPhase(newIDs(1), fixedNow)
	require.NoError(t, err)

	f.orders.On("Get", ctx, o.ID()).Return(fresh, nil).Once()

	_, err = f.handler.Handle(ctx, broadcastCommand(t, o, s))

	require.ErrorIs(t, err, commands.ErrPhaseAlreadyAdvanced)
	f.assertExpectations(t)
	f.locator.AssertNotCalled(t, "LocateNearest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "ApplyAssignmentPatch", mock.Anything, mock.Anything, mock.Anything)
}

func TestBroadcastOrderCommandHandler_Handle_ReapprovalDuringPriorityPhase(t *testing.T) {
	ctx := t.Context()
	f := newBroadcastFixture()
	s := testStore(t, usableLocation())
	o := approvedOrder(t, s)
	firstWave := newIDs(3)
	fresh := reread(t, o)
	_, err := fresh.RecordPriorityPhase(firstWave, fixedNow.Add(-5*time.Second))
	require.NoError(t, err)

	f.orders.On("Get", ctx, o.ID()).Return(fresh, nil).Once()

	phase, err := f.handler.Handle(ctx, broadcastCommand(t, o, s))

	require.ErrorIs(t, err, commands.ErrPhaseAlreadyAdvanced)
	assert.True(t, commands.IsBroadcastNoOp(err))
	assert.Equal(t, order.PhaseNone, phase)
	assert.Equal(t, firstWave, fresh.Assignment().PriorityPartnerIDs)
	f.assertExpectations(t)
	f.locator.AssertNotCalled(t, "LocateNearest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.locator.AssertNotCalled(t, "LocateOneNearest", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.orders.AssertNotCalled(t, "ApplyAssignmentPatch", mock.Anything, mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "DispatchOffer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.expansions.AssertNotCalled(t, "ScheduleExpansion", mock.Anything, mock.Anything)
}

func TestBroadcastOrderCommandHandler_Handle_InvalidCommand(t *testing.T) {
	f := newBroadcastFixture()
	var cmd commands.BroadcastOrderCommand

	_, err := f.handler.Handle(t.Context(), cmd)

	require.ErrorIs(t, err, commands.ErrBroadcastOrderCommandIsNotConstructed)
	f.factory.AssertNotCalled(t, "Create")
}
