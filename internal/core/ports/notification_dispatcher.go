package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/store"
)

// NotificationDispatcher delivers offers to partners and status changes to
// stores. Delivery is best-effort; callers log failures and move on.
type NotificationDispatcher interface {
	DispatchOffer(
		ctx context.Context,
		aggregate *order.Order,
		origin *store.Store,
		partnerIDs []kernel.UUID,
		phase order.NotificationPhase,
	) error

	NotifyStoreStatusChange(ctx context.Context, orderID, storeID kernel.UUID, status order.Status) error
}
