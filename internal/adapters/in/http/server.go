package http

import (
	"context"
	"errors"
	"net/http"

	"dispatch/internal/core/application/usecases/commands"
	"dispatch/internal/core/application/usecases/queries"
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/store"
	"dispatch/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type (
	orderBroadcaster interface {
		Trigger(ctx context.Context, approved *order.Order, origin *store.Store) error
	}

	sweepRunner interface {
		RunOnce(ctx context.Context) (commands.PromoteScheduledOrdersResult, bool)
	}

	assignmentReader interface {
		Handle(ctx context.Context, query queries.GetOrderAssignmentQuery) (*queries.GetOrderAssignmentQueryResponse, error)
	}
)

// Error is the body of every non-2xx response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BroadcastAccepted is returned by the approval hook.
type BroadcastAccepted struct {
	OrderID kernel.UUID `json:"orderId"`
	Status  string      `json:"status"`
}

// SweepResponse is returned by the manual sweep trigger.
type SweepResponse struct {
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Message   string `json:"message"`
}

// Server exposes the approval hook, the manual sweep trigger and the
// assignment read model over HTTP.
type Server struct {
	uowFactory  commands.UoWFactory
	broadcaster orderBroadcaster
	sweeper     sweepRunner
	assignments assignmentReader
	gatherer    prometheus.Gatherer
}

// NewServer creates a new HTTP server with the required use cases.
func NewServer(
	uowFactory commands.UoWFactory,
	broadcaster orderBroadcaster,
	sweeper sweepRunner,
	assignments assignmentReader,
	gatherer prometheus.Gatherer,
) *Server {
	return &Server{
		uowFactory:  uowFactory,
		broadcaster: broadcaster,
		sweeper:     sweeper,
		assignments: assignments,
		gatherer:    gatherer,
	}
}

// RegisterRoutes mounts all endpoints on e.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", s.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	registerDocs(e)

	v1 := e.Group("/api/v1")
	v1.POST("/orders/:id/broadcast", s.BroadcastOrder)
	v1.GET("/orders/:id/assignment", s.GetOrderAssignment)
	v1.POST("/scheduled-orders/process", s.ProcessScheduledOrders)
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// BroadcastOrder handles POST /api/v1/orders/:id/broadcast - called by the
// approval workflow once the store accepted the order. The broadcast runs in
// the background; the response never reflects its outcome.
func (s *Server) BroadcastOrder(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id",
		})
	}

	reqCtx := ctx.Request().Context()
	uow := s.uowFactory.Create()

	approved, err := uow.OrderRepository().Get(reqCtx, orderID)
	if err != nil {
		return notFoundOrInternal(ctx, err, "Failed to load order")
	}
	origin, err := uow.StoreRepository().Get(reqCtx, approved.StoreID())
	if err != nil {
		return notFoundOrInternal(ctx, err, "Failed to load store")
	}

	if err = s.broadcaster.Trigger(reqCtx, approved, origin); err != nil {
		ctx.Logger().Errorf("broadcast trigger for order %s: %v", orderID, err)
		return ctx.JSON(http.StatusServiceUnavailable, Error{
			Code:    http.StatusServiceUnavailable,
			Message: "Broadcast is not accepting orders",
		})
	}

	return ctx.JSON(http.StatusAccepted, BroadcastAccepted{OrderID: orderID, Status: "accepted"})
}

// GetOrderAssignment handles GET /api/v1/orders/:id/assignment.
func (s *Server) GetOrderAssignment(ctx echo.Context) error {
	orderID, err := kernel.UUIDFromString(ctx.Param("id"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id",
		})
	}

	query, err := queries.NewGetOrderAssignmentQuery(orderID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, Error{
			Code:    http.StatusBadRequest,
			Message: "Invalid order id",
		})
	}

	view, err := s.assignments.Handle(ctx.Request().Context(), query)
	if err != nil {
		return notFoundOrInternal(ctx, err, "Failed to retrieve assignment")
	}

	return ctx.JSON(http.StatusOK, view)
}

// ProcessScheduledOrders handles POST /api/v1/scheduled-orders/process - runs
// one sweep now. Per-order failures are reported through the counters, not
// the status code.
func (s *Server) ProcessScheduledOrders(ctx echo.Context) error {
	result, ran := s.sweeper.RunOnce(ctx.Request().Context())
	if !ran && result.Err != nil {
		ctx.Logger().Errorf("sweep lock unavailable: %v", result.Err)
		return ctx.JSON(http.StatusServiceUnavailable, Error{
			Code:    http.StatusServiceUnavailable,
			Message: result.Message,
		})
	}
	if !ran {
		return ctx.JSON(http.StatusConflict, Error{
			Code:    http.StatusConflict,
			Message: result.Message,
		})
	}

	return ctx.JSON(http.StatusOK, SweepResponse{
		Processed: result.Processed,
		Skipped:   result.Skipped,
		Message:   result.Message,
	})
}

func notFoundOrInternal(ctx echo.Context, err error, message string) error {
	if errors.Is(err, errs.ErrObjectNotFound) {
		return ctx.JSON(http.StatusNotFound, Error{
			Code:    http.StatusNotFound,
			Message: err.Error(),
		})
	}

	ctx.Logger().Errorf("%s: %v", message, err)
	return ctx.JSON(http.StatusInternalServerError, Error{
		Code:    http.StatusInternalServerError,
		Message: message,
	})
}
