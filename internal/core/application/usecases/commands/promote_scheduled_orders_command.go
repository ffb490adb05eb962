package commands

import (
	"errors"
	"time"

	"dispatch/internal/pkg/errs"
	"dispatch/internal/pkg/guard"
)

var ErrPromoteScheduledOrdersCommandIsNotConstructed = errors.New(
	"PromoteScheduledOrdersCommand must be created via NewPromoteScheduledOrdersCommand constructor",
)

// PromoteScheduledOrdersCommand asks for one sweep over scheduled orders that
// are due at Now.
type PromoteScheduledOrdersCommand struct {
	now   time.Time
	guard guard.ConstructorGuard
}

func NewPromoteScheduledOrdersCommand(now time.Time) (PromoteScheduledOrdersCommand, error) {
	if now.IsZero() {
		return PromoteScheduledOrdersCommand{}, errs.NewValueIsRequiredError("now")
	}

	return PromoteScheduledOrdersCommand{
		now:   now,
		guard: guard.NewConstructorGuard(),
	}, nil
}

func (c PromoteScheduledOrdersCommand) Now() time.Time {
	return c.now
}

// Validate ensures the command was created through the constructor.
func (c *PromoteScheduledOrdersCommand) Validate() error {
	return c.guard.Validate(
		ErrPromoteScheduledOrdersCommandIsNotConstructed,
	)
}
