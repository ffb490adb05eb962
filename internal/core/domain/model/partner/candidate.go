// Package partner describes delivery partners as the dispatch service sees
// them: short-lived lookup results, never persisted here.
package partner

import "dispatch/internal/core/domain/model/kernel"

// Candidate is one delivery partner returned by a nearest-partner lookup.
// DistanceKm is informational; lookups already return candidates nearest first.
type Candidate struct {
	ID         kernel.UUID
	DistanceKm float64
}

// IDs returns the candidate identifiers in lookup order.
func IDs(candidates []Candidate) []kernel.UUID {
	ids := make([]kernel.UUID, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	return ids
}
