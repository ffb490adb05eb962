package kernel

import (
	"fmt"
	"math"

	"dispatch/internal/pkg/errs"
)

const (
	minLatitude  = -90.0
	maxLatitude  = 90.0
	minLongitude = -180.0
	maxLongitude = 180.0
)

// GeoPoint is a WGS84 coordinate pair.
//
// Store records coming from the catalog carry (0, 0) for coordinates that were
// never filled in, so the origin itself is treated as unset. A single zero
// component is a real place on the equator or prime meridian.
type GeoPoint struct {
	lat float64
	lng float64
}

// NewGeoPoint validates the pair and returns a usable point.
func NewGeoPoint(lat, lng float64) (GeoPoint, error) {
	p := GeoPoint{lat: lat, lng: lng}
	if err := p.Validate(); err != nil {
		return GeoPoint{}, err
	}
	return p, nil
}

// RawGeoPoint keeps the values as stored without validation. Callers must
// check IsUsable before seeding a partner lookup with it.
func RawGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{lat: lat, lng: lng}
}

func (p GeoPoint) Lat() float64 {
	return p.lat
}

func (p GeoPoint) Lng() float64 {
	return p.lng
}

// IsUsable reports whether the point can seed a geospatial search.
func (p GeoPoint) IsUsable() bool {
	return p.Validate() == nil
}

// Validate rejects the origin and non-finite or out-of-range components.
func (p GeoPoint) Validate() error {
	if p.lat == 0 && p.lng == 0 {
		return errs.NewValueIsRequiredError("location")
	}
	if err := validateComponent("latitude", p.lat, minLatitude, maxLatitude); err != nil {
		return err
	}
	return validateComponent("longitude", p.lng, minLongitude, maxLongitude)
}

func (p GeoPoint) String() string {
	return fmt.Sprintf("GeoPoint(%.6f, %.6f)", p.lat, p.lng)
}

func validateComponent(name string, v, lower, upper float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errs.NewValueIsInvalidErrorWithCause(name, fmt.Errorf("%v is not finite", v))
	}
	if v < lower || v > upper {
		return errs.NewValueIsOutOfRangeError(name, v, lower, upper)
	}
	return nil
}
