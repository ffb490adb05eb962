package queries

import (
	"context"
	"time"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// GetOrderAssignmentQueryHandler reads the assignment columns of the orders
// table directly, bypassing the aggregate.
type GetOrderAssignmentQueryHandler struct {
	db *gorm.DB
}

// NewGetOrderAssignmentQueryHandler creates a handler for assignment read queries.
func NewGetOrderAssignmentQueryHandler(db *gorm.DB) GetOrderAssignmentQueryHandler {
	return GetOrderAssignmentQueryHandler{db: db}
}

// Handle returns the assignment view of the order, or an ObjectNotFoundError
// when no such order exists.
func (h GetOrderAssignmentQueryHandler) Handle(
	ctx context.Context,
	query GetOrderAssignmentQuery,
) (*GetOrderAssignmentQueryResponse, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT
			id,
			store_id,
			status,
			delivery_partner_id,
			assignment_phase,
			priority_notified_at,
			priority_partner_ids,
			expanded_notified_at,
			expanded_partner_ids
		FROM orders
		WHERE id = ?
	`, query.OrderID().Bytes()).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err = rows.Err(); err != nil {
			return nil, err
		}
		return nil, errs.NewObjectNotFoundError("order", query.OrderID().String())
	}

	var (
		id, storeID        uuid.UUID
		partnerID          uuid.NullUUID
		response           GetOrderAssignmentQueryResponse
		priorityNotifiedAt *time.Time
		expandedNotifiedAt *time.Time
		priorityIDs        pq.StringArray
		expandedIDs        pq.StringArray
	)
	err = rows.Scan(
		&id,
		&storeID,
		&response.Status,
		&partnerID,
		&response.Phase,
		&priorityNotifiedAt,
		&priorityIDs,
		&expandedNotifiedAt,
		&expandedIDs,
	)
	if err != nil {
		return nil, err
	}

	if response.OrderID, err = kernel.UUIDFromBytes(id[:]); err != nil {
		return nil, err
	}
	if response.StoreID, err = kernel.UUIDFromBytes(storeID[:]); err != nil {
		return nil, err
	}
	if partnerID.Valid {
		claimedBy, idErr := kernel.UUIDFromBytes(partnerID.UUID[:])
		if idErr != nil {
			return nil, idErr
		}
		response.DeliveryPartnerID = &claimedBy
	}
	if response.PriorityPartnerIDs, err = kernel.UUIDsFromStrings(priorityIDs); err != nil {
		return nil, err
	}
	if response.ExpandedPartnerIDs, err = kernel.UUIDsFromStrings(expandedIDs); err != nil {
		return nil, err
	}
	response.PriorityNotifiedAt = utc(priorityNotifiedAt)
	response.ExpandedNotifiedAt = utc(expandedNotifiedAt)

	return &response, rows.Err()
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
