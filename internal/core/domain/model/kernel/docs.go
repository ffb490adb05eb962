// Package kernel holds the shared value objects of the dispatch domain.
//
// The package includes:
//   - UUID: identifier for orders, stores and delivery partners
//   - GeoPoint: a WGS84 latitude/longitude pair used to seed partner lookups
//
// Both types are immutable values. Zero values are detectable through their
// Validate/IsUsable methods so that unset data coming from the Order Store is
// never mistaken for a real identifier or coordinate.
package kernel
