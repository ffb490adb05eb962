// Package store holds the slice of the store record the dispatch service reads:
// its identity and the coordinates that seed partner lookups.
package store

import (
	"errors"
	"strings"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/pkg/errs"
)

var ErrStoreIsNotConstructed = errors.New("Store must be created via NewStore or RestoreStore constructor")

// Store is owned by the catalog service. Location may be unset or left at (0, 0)
// for stores that never completed onboarding.
type Store struct {
	id            kernel.UUID
	name          string
	location      kernel.GeoPoint
	isConstructed bool
}

// NewStore creates a store with a validated location.
func NewStore(id kernel.UUID, name string, location kernel.GeoPoint) (*Store, error) {
	if err := location.Validate(); err != nil {
		return nil, err
	}
	return RestoreStore(id, name, location)
}

// RestoreStore rebuilds a store from persisted state. The location is kept as
// stored; use HasUsableLocation before relying on it.
func RestoreStore(id kernel.UUID, name string, location kernel.GeoPoint) (*Store, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, errs.NewValueIsRequiredError("name")
	}
	return &Store{
		id:            id,
		name:          name,
		location:      location,
		isConstructed: true,
	}, nil
}

func (s *Store) Validate() error {
	if s == nil || !s.isConstructed {
		return ErrStoreIsNotConstructed
	}
	return nil
}

func (s *Store) ID() kernel.UUID {
	return s.id
}

func (s *Store) Name() string {
	return s.name
}

func (s *Store) Location() kernel.GeoPoint {
	return s.location
}

// HasUsableLocation reports whether the store coordinates can seed a lookup.
func (s *Store) HasUsableLocation() bool {
	return s.location.IsUsable()
}
