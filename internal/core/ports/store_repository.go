package ports

import (
	"context"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/store"
)

// StoreRepository reads store records owned by the catalog service.
type StoreRepository interface {
	// Add persists a store. Used by seeding tools and tests.
	Add(ctx context.Context, aggregate *store.Store) error

	// Get returns errs.ErrObjectNotFound when the id is unknown.
	Get(ctx context.Context, id kernel.UUID) (*store.Store, error)
}
