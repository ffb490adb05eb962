package orderrepo_test

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/adapters/out/postgres/orderrepo"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/pkg/errs"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// MockAggregateTracker is a mock implementation of aggregateTracker interface.
type MockAggregateTracker struct {
	mock.Mock
}

func (m *MockAggregateTracker) TrackAggregate(id kernel.UUID, aggregate any) {
	m.Called(id, aggregate)
}

// OrderRepositoryIntegrationTestSuite provides integration tests for OrderRepository
// using PostgreSQL containers to verify conditional write behavior.
type OrderRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *orderrepo.GormOrderRepository
	tracker    *MockAggregateTracker
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(&orderrepo.OrderDTO{}))
}

func (suite *OrderRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE orders").Error)

	suite.tracker = new(MockAggregateTracker)
	suite.tracker.On("TrackAggregate", mock.Anything, mock.Anything).Return().Maybe()
	suite.repository = orderrepo.NewGormOrderRepository(suite.db, suite.tracker)
}

func (suite *OrderRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *OrderRepositoryIntegrationTestSuite) TestAdd_And_Get_RoundTrip() {
	ctx := context.Background()
	slot := now().Add(time.Hour)
	o := newOrder(&slot, order.Payment{Method: order.PaymentMethodOnline, Status: order.PaymentStatusCompleted})

	suite.Require().NoError(suite.repository.Add(ctx, o))
	suite.tracker.AssertCalled(suite.T(), "TrackAggregate", o.ID(), o)

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(o.ID(), got.ID())
	suite.Equal(o.StoreID(), got.StoreID())
	suite.Equal(order.StatusScheduled, got.Status())
	suite.Equal(o.Payment(), got.Payment())
	suite.Require().NotNil(got.ScheduledDelivery())
	suite.True(slot.Equal(got.ScheduledDelivery().ScheduledFor))
	suite.Nil(got.DeliveryPartnerID())
	suite.True(got.Assignment().IsEmpty())

	placed, ok := got.Tracking().Entry(order.StagePlaced)
	suite.True(ok)
	suite.True(placed.Status)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestGet_MissingOrder() {
	_, err := suite.repository.Get(context.Background(), kernel.NewUUID())
	suite.ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestApplyAssignmentPatch_MergesPhases() {
	ctx := context.Background()
	o := newOrder(nil, cod())
	suite.Require().NoError(suite.repository.Add(ctx, o))

	priorityIDs := []kernel.UUID{kernel.NewUUID(), kernel.NewUUID()}
	priority, err := o.RecordPriorityPhase(priorityIDs, now())
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.ApplyAssignmentPatch(ctx, o.ID(), priority))

	expandedIDs := []kernel.UUID{kernel.NewUUID()}
	expanded, err := o.RecordExpandedPhase(expandedIDs, now().Add(30*time.Second))
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.ApplyAssignmentPatch(ctx, o.ID(), expanded))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	info := got.Assignment()
	suite.Equal(order.PhaseExpanded, info.Phase)
	suite.Equal(priorityIDs, info.PriorityPartnerIDs)
	suite.Equal(expandedIDs, info.ExpandedPartnerIDs)
	suite.Require().NotNil(info.PriorityNotifiedAt)
	suite.Require().NotNil(info.ExpandedNotifiedAt)
	suite.True(info.ExpandedNotifiedAt.After(*info.PriorityNotifiedAt))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestApplyAssignmentPatch_ClaimedOrderIsStale() {
	ctx := context.Background()
	o := newOrder(nil, cod())
	suite.Require().NoError(suite.repository.Add(ctx, o))

	patch, err := o.RecordPriorityPhase([]kernel.UUID{kernel.NewUUID()}, now())
	suite.Require().NoError(err)

	suite.Require().NoError(suite.db.Exec(
		"UPDATE orders SET delivery_partner_id = ? WHERE id = ?", kernel.NewUUID().Bytes(), o.ID().Bytes(),
	).Error)

	err = suite.repository.ApplyAssignmentPatch(ctx, o.ID(), patch)
	suite.ErrorIs(err, order.ErrStaleOrder)

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.True(got.Assignment().IsEmpty())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestApplyAssignmentPatch_CancelledOrderIsStale() {
	ctx := context.Background()
	o := newOrder(nil, cod())
	suite.Require().NoError(suite.repository.Add(ctx, o))

	patch, err := o.RecordPriorityPhase([]kernel.UUID{kernel.NewUUID()}, now())
	suite.Require().NoError(err)

	suite.Require().NoError(suite.db.Exec(
		"UPDATE orders SET status = ? WHERE id = ?", order.StatusCancelled.String(), o.ID().Bytes(),
	).Error)

	suite.ErrorIs(suite.repository.ApplyAssignmentPatch(ctx, o.ID(), patch), order.ErrStaleOrder)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestApplyAssignmentPatch_ExpandedRequiresStoredPriority() {
	ctx := context.Background()
	o := newOrder(nil, cod())
	suite.Require().NoError(suite.repository.Add(ctx, o))

	// The in-memory order believes priority ran, the stored row does not.
	_, err := o.RecordPriorityPhase([]kernel.UUID{kernel.NewUUID()}, now())
	suite.Require().NoError(err)
	expanded, err := o.RecordExpandedPhase([]kernel.UUID{kernel.NewUUID()}, now())
	suite.Require().NoError(err)

	suite.ErrorIs(suite.repository.ApplyAssignmentPatch(ctx, o.ID(), expanded), order.ErrStaleOrder)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestApplyAssignmentPatch_FirstPhaseAfterExpandedIsStale() {
	ctx := context.Background()
	o := newOrder(nil, cod())
	suite.Require().NoError(suite.repository.Add(ctx, o))

	priority, err := o.RecordPriorityPhase([]kernel.UUID{kernel.NewUUID()}, now())
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.ApplyAssignmentPatch(ctx, o.ID(), priority))
	expanded, err := o.RecordExpandedPhase([]kernel.UUID{kernel.NewUUID()}, now())
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.ApplyAssignmentPatch(ctx, o.ID(), expanded))

	suite.ErrorIs(suite.repository.ApplyAssignmentPatch(ctx, o.ID(), priority), order.ErrStaleOrder)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestApplyAssignmentPatch_SecondFirstPhaseIsStale() {
	ctx := context.Background()
	o := newOrder(nil, cod())
	suite.Require().NoError(suite.repository.Add(ctx, o))

	// Two approvals read the order before either wrote its first phase.
	first, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	second, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)

	firstWave := []kernel.UUID{kernel.NewUUID(), kernel.NewUUID()}
	priority, err := first.RecordPriorityPhase(firstWave, now())
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.ApplyAssignmentPatch(ctx, o.ID(), priority))

	repeated, err := second.RecordPriorityPhase([]kernel.UUID{kernel.NewUUID()}, now())
	suite.Require().NoError(err)
	suite.ErrorIs(suite.repository.ApplyAssignmentPatch(ctx, o.ID(), repeated), order.ErrStaleOrder)

	immediate, err := o.RecordImmediatePhase(kernel.NewUUID(), now())
	suite.Require().NoError(err)
	suite.ErrorIs(suite.repository.ApplyAssignmentPatch(ctx, o.ID(), immediate), order.ErrStaleOrder)

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.PhasePriority, got.Assignment().Phase)
	suite.Equal(firstWave, got.Assignment().PriorityPartnerIDs)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestApplyAssignmentPatch_MissingOrder() {
	o := newOrder(nil, cod())
	patch, err := o.RecordImmediatePhase(kernel.NewUUID(), now())
	suite.Require().NoError(err)

	err = suite.repository.ApplyAssignmentPatch(context.Background(), o.ID(), patch)
	suite.ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestApplyAssignmentPatch_RejectsEmptyPhase() {
	err := suite.repository.ApplyAssignmentPatch(context.Background(), kernel.NewUUID(), order.AssignmentPatch{})
	suite.ErrorIs(err, errs.ErrValueIsRequired)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestSavePromotion_PromotesScheduledOrder() {
	ctx := context.Background()
	slot := now().Add(-time.Minute)
	o := newOrder(&slot, cod())
	suite.Require().NoError(suite.repository.Add(ctx, o))

	promotedAt := now()
	suite.Require().NoError(o.Promote(promotedAt, 2*time.Minute))
	suite.Require().NoError(suite.repository.SavePromotion(ctx, o))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.StatusConfirmed, got.Status())

	confirmed, ok := got.Tracking().Entry(order.StageConfirmed)
	suite.Require().True(ok)
	suite.True(confirmed.Timestamp.Equal(promotedAt))

	window := got.PostOrderActions()
	suite.Require().NotNil(window.ModificationWindowStartAt)
	suite.Require().NotNil(window.ModificationWindowExpiresAt)
	suite.Equal(2*time.Minute, window.ModificationWindowExpiresAt.Sub(*window.ModificationWindowStartAt))
}

func (suite *OrderRepositoryIntegrationTestSuite) TestSavePromotion_KeepsExistingConfirmedEntry() {
	ctx := context.Background()
	slot := now().Add(-time.Minute)
	o := newOrder(&slot, cod())
	suite.Require().NoError(suite.repository.Add(ctx, o))

	earlier := now().Add(-30 * time.Second)
	suite.Require().NoError(suite.db.Exec(
		`UPDATE orders SET tracking = tracking || jsonb_build_object('confirmed', jsonb_build_object('status', true, 'timestamp', ?::text)) WHERE id = ?`,
		earlier.Format(time.RFC3339Nano), o.ID().Bytes(),
	).Error)

	suite.Require().NoError(o.Promote(now(), 2*time.Minute))
	suite.Require().NoError(suite.repository.SavePromotion(ctx, o))

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	confirmed, ok := got.Tracking().Entry(order.StageConfirmed)
	suite.Require().True(ok)
	suite.True(confirmed.Timestamp.Equal(earlier), "existing confirmed entry must win")

	_, ok = got.Tracking().Entry(order.StagePlaced)
	suite.True(ok, "other tracking stages are preserved")
}

func (suite *OrderRepositoryIntegrationTestSuite) TestSavePromotion_NoLongerScheduledIsStale() {
	ctx := context.Background()
	slot := now().Add(-time.Minute)
	o := newOrder(&slot, cod())
	suite.Require().NoError(suite.repository.Add(ctx, o))

	suite.Require().NoError(suite.db.Exec(
		"UPDATE orders SET status = ? WHERE id = ?", order.StatusCancelled.String(), o.ID().Bytes(),
	).Error)

	suite.Require().NoError(o.Promote(now(), 2*time.Minute))
	suite.ErrorIs(suite.repository.SavePromotion(ctx, o), order.ErrStaleOrder)

	got, err := suite.repository.Get(ctx, o.ID())
	suite.Require().NoError(err)
	suite.Equal(order.StatusCancelled, got.Status())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestSavePromotion_RejectsUnpromotedOrder() {
	slot := now().Add(-time.Minute)
	o := newOrder(&slot, cod())

	err := suite.repository.SavePromotion(context.Background(), o)
	suite.ErrorIs(err, errs.ErrValueIsInvalid)
}

func (suite *OrderRepositoryIntegrationTestSuite) TestFindDueScheduled() {
	ctx := context.Background()
	base := now()

	later := base.Add(-time.Minute)
	earlier := base.Add(-time.Hour)
	future := base.Add(time.Hour)
	dueLater := newOrder(&later, cod())
	dueEarlier := newOrder(&earlier, cod())
	notYet := newOrder(&future, cod())
	live := newOrder(nil, cod())
	cancelledSlot := base.Add(-2 * time.Hour)
	cancelled := newOrder(&cancelledSlot, cod())

	for _, o := range []*order.Order{dueLater, dueEarlier, notYet, live, cancelled} {
		suite.Require().NoError(suite.repository.Add(ctx, o))
	}
	suite.Require().NoError(suite.db.Exec(
		"UPDATE orders SET status = ? WHERE id = ?", order.StatusCancelled.String(), cancelled.ID().Bytes(),
	).Error)

	due, err := suite.repository.FindDueScheduled(ctx, base)
	suite.Require().NoError(err)
	suite.Require().Len(due, 2)
	suite.Equal(dueEarlier.ID(), due[0].ID())
	suite.Equal(dueLater.ID(), due[1].ID())
}

func (suite *OrderRepositoryIntegrationTestSuite) TestFindDueScheduled_Empty() {
	due, err := suite.repository.FindDueScheduled(context.Background(), now())
	suite.Require().NoError(err)
	suite.Empty(due)
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func cod() order.Payment {
	return order.Payment{Method: order.PaymentMethodCashOnDelivery, Status: order.PaymentStatusPending}
}

func newOrder(scheduledFor *time.Time, payment order.Payment) *order.Order {
	o, _ := order.NewOrder(kernel.NewUUID(), kernel.NewUUID(), payment, scheduledFor, now().Add(-time.Hour))
	return o
}

func TestOrderRepositoryIntegrationTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(OrderRepositoryIntegrationTestSuite))
}
