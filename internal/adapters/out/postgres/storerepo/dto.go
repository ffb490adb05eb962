// Package storerepo maps store records, owned by the catalog service, to the
// store aggregate used for broadcast seeding.
package storerepo

import (
	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/store"

	"github.com/google/uuid"
)

// StoreDTO keeps coordinates nullable: stores that never finished onboarding
// have no location, which the broadcast treats as unset.
type StoreDTO struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Latitude  *float64  `gorm:"type:double precision"`
	Longitude *float64  `gorm:"type:double precision"`
}

func (StoreDTO) TableName() string {
	return "stores"
}

func fromDomain(aggregate *store.Store) StoreDTO {
	dto := StoreDTO{
		ID:   aggregate.ID().Bytes(),
		Name: aggregate.Name(),
	}
	if location := aggregate.Location(); location != (kernel.GeoPoint{}) {
		lat, lng := location.Lat(), location.Lng()
		dto.Latitude = &lat
		dto.Longitude = &lng
	}
	return dto
}

func toDomain(dto StoreDTO) (*store.Store, error) {
	id, err := kernel.UUIDFromBytes(dto.ID[:])
	if err != nil {
		return nil, err
	}

	var location kernel.GeoPoint
	if dto.Latitude != nil && dto.Longitude != nil {
		location = kernel.RawGeoPoint(*dto.Latitude, *dto.Longitude)
	}
	return store.RestoreStore(id, dto.Name, location)
}
