package commands

import (
	"context"
	"fmt"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/partner"
	"dispatch/internal/core/ports"
)

// CandidateDiscovery wraps the partner locator with the two lookups used by
// the broadcast. Every call is a fresh lookup.
type CandidateDiscovery struct {
	locator ports.PartnerLocator
}

func NewCandidateDiscovery(locator ports.PartnerLocator) CandidateDiscovery {
	return CandidateDiscovery{locator: locator}
}

// FindTopCandidates returns up to count partners nearest first. No candidates
// is an empty slice, never an error.
func (d CandidateDiscovery) FindTopCandidates(
	ctx context.Context,
	seed kernel.GeoPoint,
	storeID kernel.UUID,
	count int,
) ([]partner.Candidate, error) {
	candidates, err := d.locator.LocateNearest(ctx, seed, storeID, count)
	if err != nil {
		return nil, fmt.Errorf("locate %d nearest partners around %s: %w", count, seed, err)
	}
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates, nil
}

// FindWiderCandidates returns up to count partners from the wider search
// area, nearest first.
func (d CandidateDiscovery) FindWiderCandidates(
	ctx context.Context,
	seed kernel.GeoPoint,
	storeID kernel.UUID,
	count int,
) ([]partner.Candidate, error) {
	candidates, err := d.locator.LocateNearestWidened(ctx, seed, storeID, count)
	if err != nil {
		return nil, fmt.Errorf("locate %d partners in the wider area around %s: %w", count, seed, err)
	}
	if len(candidates) > count {
		candidates = candidates[:count]
	}
	return candidates, nil
}

// FindSingleCandidate returns the best partner among a pool of count, or nil.
func (d CandidateDiscovery) FindSingleCandidate(
	ctx context.Context,
	seed kernel.GeoPoint,
	storeID kernel.UUID,
	count int,
) (*partner.Candidate, error) {
	candidate, err := d.locator.LocateOneNearest(ctx, seed, storeID, count)
	if err != nil {
		return nil, fmt.Errorf("locate fallback partner around %s: %w", seed, err)
	}
	return candidate, nil
}
