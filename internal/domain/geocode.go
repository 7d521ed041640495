package domain

import (
	"context"
	"log/slog"
)

// ResolveAddress replaces the coordinate-only address of a detected location
// with a reverse-geocoded one. If geocoder is nil, the lookup fails, or it
// returns nothing, loc is returned unchanged (graceful degradation).
func ResolveAddress(ctx context.Context, loc Location, pos Position, geocoder Geocoder, logger *slog.Logger) Location {
	if geocoder == nil {
		return loc
	}

	result, err := geocoder.ReverseGeocode(ctx, pos.Latitude, pos.Longitude)
	if err != nil {
		logger.Warn("reverse geocoding failed",
			"lat", pos.Latitude,
			"lon", pos.Longitude,
			"error", err,
		)
		return loc
	}
	if result.FormattedAddress != "" {
		loc.Address = result.FormattedAddress
	}
	return loc
}
