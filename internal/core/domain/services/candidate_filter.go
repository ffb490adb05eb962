package services

import (
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/partner"
)

// CandidateFilter removes partners that were already offered the order. The
// result keeps lookup order and never repeats a partner.
type CandidateFilter struct{}

func NewCandidateFilter() CandidateFilter {
	return CandidateFilter{}
}

// ExcludeNotified returns the candidates whose ids are not in notified.
func (CandidateFilter) ExcludeNotified(candidates []partner.Candidate, notified []kernel.UUID) []partner.Candidate {
	seen := make(map[kernel.UUID]struct{}, len(notified)+len(candidates))
	for _, id := range notified {
		seen[id] = struct{}{}
	}

	result := make([]partner.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		result = append(result, c)
	}
	return result
}
