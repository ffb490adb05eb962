// Package queries contains read operations for retrieving system state.
// Implements the Query pattern for read operations in the CQRS architecture.
// Queries return read models shaped for a single use case.
package queries

import (
	"errors"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var (
	ErrGetOrderAssignmentQueryIsNotConstructed = errors.New(
		"GetOrderAssignmentQuery must be created via NewGetOrderAssignmentQuery constructor",
	)
)

// GetOrderAssignmentQuery reads the broadcast bookkeeping of one order:
// which partners were offered the order in which phase, and who claimed it.
//
// Example:
//
//	query, err := NewGetOrderAssignmentQuery(orderID)
//	if err != nil {
//	    return err
//	}
//
//	view, err := handler.Handle(ctx, query)
//	if errors.Is(err, errs.ErrObjectNotFound) {
//	    // unknown order
//	}
type GetOrderAssignmentQuery struct {
	orderID kernel.UUID
	guard   guard.ConstructorGuard
}

// NewGetOrderAssignmentQuery creates a query for the given order.
func NewGetOrderAssignmentQuery(orderID kernel.UUID) (GetOrderAssignmentQuery, error) {
	if err := orderID.Validate(); err != nil {
		return GetOrderAssignmentQuery{}, err
	}
	return GetOrderAssignmentQuery{orderID: orderID, guard: guard.NewConstructorGuard()}, nil
}

func (q GetOrderAssignmentQuery) OrderID() kernel.UUID {
	return q.orderID
}

// Validate ensures the query was created through the constructor.
func (q GetOrderAssignmentQuery) Validate() error {
	return q.guard.Validate(ErrGetOrderAssignmentQueryIsNotConstructed)
}

// GetOrderAssignmentQueryResponse is the assignment read model.
type GetOrderAssignmentQueryResponse struct {
	OrderID            kernel.UUID   `json:"orderId"`
	StoreID            kernel.UUID   `json:"storeId"`
	Status             string        `json:"status"`
	DeliveryPartnerID  *kernel.UUID  `json:"deliveryPartnerId"`
	Phase              string        `json:"notificationPhase"`
	PriorityNotifiedAt *time.Time    `json:"priorityNotifiedAt,omitempty"`
	PriorityPartnerIDs []kernel.UUID `json:"priorityPartnerIds"`
	ExpandedNotifiedAt *time.Time    `json:"expandedNotifiedAt,omitempty"`
	ExpandedPartnerIDs []kernel.UUID `json:"expandedPartnerIds"`
}
