// Package commands contains the business operations that change order state:
// the two broadcast phases and the scheduled-order promotion sweep.
// Every command follows the same pattern: constructor-guarded input, handler
// with explicit dependencies, sentinel errors for precondition no-ops.
package commands

import (
	"context"

	"dispatch/internal/core/ports"
)

// Unit of Work interfaces provide transaction management for command handlers.
type (
	// TxManager handles database transaction lifecycle.
	TxManager interface {
		Begin(ctx context.Context) error
		Commit(ctx context.Context) error
		Rollback(ctx context.Context) error
	}

	// OrderRepoFactory provides access to the order repository, bound to the
	// transaction when one was started.
	OrderRepoFactory interface {
		OrderRepository() ports.OrderRepository
	}

	// StoreRepoFactory provides access to the store repository.
	StoreRepoFactory interface {
		StoreRepository() ports.StoreRepository
	}

	// OrderUoW manages transactions for order-only operations.
	// Used by the promotion sweep, which never reads stores.
	OrderUoW interface {
		TxManager
		OrderRepoFactory
	}

	// OrderUoWFactory creates new order unit of work instances.
	OrderUoWFactory interface {
		Create() OrderUoW
	}

	// UoW spans orders and stores. The broadcast phases use it without Begin:
	// each of their writes is a single conditional update.
	//
	// Example:
	//   uow := factory.Create()
	//   fresh, err := uow.OrderRepository().Get(ctx, id)
	//   ...
	//   err = uow.OrderRepository().ApplyAssignmentPatch(ctx, id, patch)
	UoW interface {
		TxManager
		OrderRepoFactory
		StoreRepoFactory
	}

	// UoWFactory creates new unit of work instances.
	UoWFactory interface {
		Create() UoW
	}
)
