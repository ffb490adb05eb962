package commands

import (
	"errors"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/guard"
)

var ErrExpandBroadcastCommandIsNotConstructed = errors.New(
	"ExpandBroadcastCommand must be created via NewExpandBroadcastCommand constructor",
)

// ExpandBroadcastCommand runs the deferred second broadcast phase for an order.
// It is issued by the expansion timer, once per broadcast lifecycle.
type ExpandBroadcastCommand struct {
	orderID kernel.UUID
	guard   guard.ConstructorGuard
}

func NewExpandBroadcastCommand(orderID kernel.UUID) (ExpandBroadcastCommand, error) {
	if err := orderID.Validate(); err != nil {
		return ExpandBroadcastCommand{}, err
	}

	return ExpandBroadcastCommand{
		orderID: orderID,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c ExpandBroadcastCommand) OrderID() kernel.UUID {
	return c.orderID
}

// Validate ensures the command was created through the constructor.
func (c *ExpandBroadcastCommand) Validate() error {
	return c.guard.Validate(
		ErrExpandBroadcastCommandIsNotConstructed,
	)
}
