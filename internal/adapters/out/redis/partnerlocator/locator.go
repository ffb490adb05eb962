// Package partnerlocator answers nearest-partner queries from a Redis GEO set
// of delivery partners that are currently online and free.
//
// The partner availability service maintains the set: a member is the partner
// id, its position the partner's last reported coordinates. Stores may
// override the search radius through a hash keyed by store id.
package partnerlocator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"dispatch/internal/core/domain/model/kernel"
	"dispatch/internal/core/domain/model/partner"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultAvailableKey     = "dispatch:partners:available"
	DefaultStoreRadiusKey   = "dispatch:stores:search_radius_km"
	DefaultRadiusKm         = 5.0
	DefaultFallbackRadiusKm = 10.0
)

type geoClient interface {
	GeoRadius(ctx context.Context, key string, longitude, latitude float64, query *redis.GeoRadiusQuery) *redis.GeoLocationCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// Config names the keys and radii used by the locator. Zero values fall back
// to the package defaults.
type Config struct {
	AvailableKey     string
	StoreRadiusKey   string
	RadiusKm         float64
	FallbackRadiusKm float64
}

func (c Config) withDefaults() Config {
	if c.AvailableKey == "" {
		c.AvailableKey = DefaultAvailableKey
	}
	if c.StoreRadiusKey == "" {
		c.StoreRadiusKey = DefaultStoreRadiusKey
	}
	if c.RadiusKm <= 0 {
		c.RadiusKm = DefaultRadiusKm
	}
	if c.FallbackRadiusKm < c.RadiusKm {
		c.FallbackRadiusKm = max(DefaultFallbackRadiusKm, c.RadiusKm)
	}
	return c
}

// Locator implements ports.PartnerLocator over GEORADIUS_RO.
type Locator struct {
	client geoClient
	cfg    Config
	logger *slog.Logger
}

func NewLocator(client geoClient, cfg Config, logger *slog.Logger) (*Locator, error) {
	if client == nil {
		return nil, errors.New("redis client required for partner locator")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{
		client: client,
		cfg:    cfg.withDefaults(),
		logger: logger.With("component", "PartnerLocator"),
	}, nil
}

// LocateNearest returns up to maxCount partners within the store's search
// radius, nearest first.
func (l *Locator) LocateNearest(
	ctx context.Context,
	seed kernel.GeoPoint,
	storeID kernel.UUID,
	maxCount int,
) ([]partner.Candidate, error) {
	radius, err := l.storeRadius(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return l.search(ctx, seed, radius, maxCount)
}

// LocateNearestWidened returns up to maxCount partners within the larger of
// the store radius and the fallback radius, nearest first.
func (l *Locator) LocateNearestWidened(
	ctx context.Context,
	seed kernel.GeoPoint,
	storeID kernel.UUID,
	maxCount int,
) ([]partner.Candidate, error) {
	radius, err := l.storeRadius(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return l.search(ctx, seed, max(radius, l.cfg.FallbackRadiusKm), maxCount)
}

// LocateOneNearest searches the wider fallback radius, so a store whose
// nearest partners are just outside its normal radius still gets one offer.
func (l *Locator) LocateOneNearest(
	ctx context.Context,
	seed kernel.GeoPoint,
	storeID kernel.UUID,
	maxCount int,
) (*partner.Candidate, error) {
	candidates, err := l.LocateNearestWidened(ctx, seed, storeID, maxCount)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	return &candidates[0], nil
}

func (l *Locator) search(ctx context.Context, seed kernel.GeoPoint, radiusKm float64, maxCount int) ([]partner.Candidate, error) {
	if err := seed.Validate(); err != nil {
		return nil, err
	}
	if maxCount <= 0 {
		return []partner.Candidate{}, nil
	}

	locations, err := l.client.GeoRadius(ctx, l.cfg.AvailableKey, seed.Lng(), seed.Lat(), &redis.GeoRadiusQuery{
		Radius:   radiusKm,
		Unit:     "km",
		WithDist: true,
		Count:    maxCount,
		Sort:     "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("georadius %s: %w", l.cfg.AvailableKey, err)
	}

	candidates := make([]partner.Candidate, 0, len(locations))
	for _, location := range locations {
		id, idErr := kernel.UUIDFromString(location.Name)
		if idErr != nil {
			l.logger.WarnContext(ctx, "skipping malformed partner member",
				"member", location.Name, "error", idErr)
			continue
		}
		candidates = append(candidates, partner.Candidate{ID: id, DistanceKm: location.Dist})
	}
	return candidates, nil
}

func (l *Locator) storeRadius(ctx context.Context, storeID kernel.UUID) (float64, error) {
	raw, err := l.client.HGet(ctx, l.cfg.StoreRadiusKey, storeID.String()).Result()
	if errors.Is(err, redis.Nil) {
		return l.cfg.RadiusKm, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read store search radius: %w", err)
	}

	radius, err := strconv.ParseFloat(raw, 64)
	if err != nil || radius <= 0 {
		l.logger.WarnContext(ctx, "ignoring invalid store search radius",
			"store_id", storeID.String(), "value", raw)
		return l.cfg.RadiusKm, nil
	}
	return radius, nil
}
