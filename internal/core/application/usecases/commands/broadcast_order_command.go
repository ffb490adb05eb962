package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/order"
	"dispatch/internal/core/domain/model/store"
	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrBroadcastOrderCommandIsNotConstructed = errors.New(
	"BroadcastOrderCommand must be created via NewBroadcastOrderCommand constructor",
)

// BroadcastOrderCommand starts the delivery-partner broadcast for an approved
// order. It carries the order document and store record as the approval
// workflow last saw them; the handler re-reads the order before acting.
//
// Example:
//
//	cmd, err := NewBroadcastOrderCommand(approvedOrder, orderStore)
//	if err != nil {
//	    return err
//	}
//	phase, err := handler.Handle(ctx, cmd)
type BroadcastOrderCommand struct {
	order *order.Order
	store *store.Store
	guard guard.ConstructorGuard
}

// NewBroadcastOrderCommand validates that both records were built through
// their constructors.
func NewBroadcastOrderCommand(o *order.Order, s *store.Store) (BroadcastOrderCommand, error) {
	if o == nil {
		return BroadcastOrderCommand{}, errs.NewValueIsRequiredError("order")
	}
	if s == nil {
		return BroadcastOrderCommand{}, errs.NewValueIsRequiredError("store")
	}
	if err := errors.Join(o.Validate(), s.Validate()); err != nil {
		return BroadcastOrderCommand{}, err
	}

	return BroadcastOrderCommand{
		order: o,
		store: s,
		guard: guard.NewConstructorGuard(),
	}, nil
}

func (c BroadcastOrderCommand) Order() *order.Order {
	return c.order
}

func (c BroadcastOrderCommand) Store() *store.Store {
	return c.store
}

// Validate ensures the command was created through the constructor.
func (c *BroadcastOrderCommand) Validate() error {
	return c.guard.Validate(
		ErrBroadcastOrderCommandIsNotConstructed,
	)
}
