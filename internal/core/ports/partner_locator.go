package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/partner"
)

// PartnerLocator answers nearest-available-partner queries. Results are fresh
// snapshots; implementations must not cache across calls.
type PartnerLocator interface {
	// LocateNearest returns up to maxCount candidates, nearest first. An empty
	// result is not an error.
	LocateNearest(ctx context.Context, seed kernel.GeoPoint, storeID kernel.UUID, maxCount int) ([]partner.Candidate, error)

	// LocateNearestWidened is LocateNearest over the wider fallback radius. It
	// serves the expanded phase, which widens both radius and count.
	LocateNearestWidened(ctx context.Context, seed kernel.GeoPoint, storeID kernel.UUID, maxCount int) ([]partner.Candidate, error)

	// LocateOneNearest returns the best candidate among a pool of maxCount, or
	// nil when there is none.
	LocateOneNearest(ctx context.Context, seed kernel.GeoPoint, storeID kernel.UUID, maxCount int) (*partner.Candidate, error)
}
