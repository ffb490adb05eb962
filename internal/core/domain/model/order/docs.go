// Package order provides the Order aggregate as seen by the dispatch pipeline.
//
// The package includes:
//   - Order: the aggregate root read from and written to the Order Store
//   - Status: the order lifecycle states relevant to dispatch
//   - AssignmentInfo / AssignmentPatch: notification-phase bookkeeping
//   - Payment, Tracking, ScheduledDelivery, PostOrderActions: supporting values
//
// Key business rules:
//   - An order with a delivery partner, or a cancelled order, is never broadcast again
//   - Notification phases only move forward: priority/immediate, then expanded
//   - Expanded-phase partners are disjoint from priority-phase partners
//   - A scheduled order is promoted to confirmed at most once
//   - Tracking entries are first-write-wins per stage
//
// Phase writes are expressed as AssignmentPatch values so that each phase only
// touches its own fields and never clobbers what an earlier phase recorded.
package order
