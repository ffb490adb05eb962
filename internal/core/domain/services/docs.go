// Package services provides domain services for the delivery-partner broadcast.
// They hold decisions that span the order and store aggregates or operate on
// lookup results, and perform no I/O.
//
// The package includes:
//   - EligibilityGate: decides whether an order may be broadcast and yields the seed point
//   - CandidateFilter: narrows a wider candidate pool to partners not yet notified
package services
