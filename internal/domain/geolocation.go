package domain

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"
)

// Position is a WGS-84 fix reported by a geolocation provider.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// PositionErrorCode classifies geolocation failures. The first three values
// match the W3C Geolocation API codes.
type PositionErrorCode int

const (
	PermissionDenied    PositionErrorCode = 1
	PositionUnavailable PositionErrorCode = 2
	Timeout             PositionErrorCode = 3
	Unsupported         PositionErrorCode = 4
)

var positionErrorNames = map[PositionErrorCode]string{
	PermissionDenied:    "permission_denied",
	PositionUnavailable: "position_unavailable",
	Timeout:             "timeout",
	Unsupported:         "unsupported",
}

func (c PositionErrorCode) String() string {
	if name, ok := positionErrorNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(c))
}

// ParsePositionErrorCode maps a code name such as "timeout" back to its code.
func ParsePositionErrorCode(name string) (PositionErrorCode, bool) {
	for code, n := range positionErrorNames {
		if n == name {
			return code, true
		}
	}
	return 0, false
}

// PositionError is a failed geolocation attempt.
type PositionError struct {
	Code PositionErrorCode
}

func (e *PositionError) Error() string {
	return "geolocation failed: " + e.Code.String()
}

// Locator obtains the reporter's current position.
type Locator interface {
	CurrentPosition(ctx context.Context) (Position, error)
}

// LocationMessage returns the user-facing text for a geolocation failure.
func LocationMessage(err error) string {
	var perr *PositionError
	if !errors.As(err, &perr) {
		return "Unable to detect location"
	}
	switch perr.Code {
	case PermissionDenied:
		return "Location access denied by user"
	case PositionUnavailable:
		return "Location information unavailable"
	case Timeout:
		return "Location request timed out"
	case Unsupported:
		return "Geolocation is not supported by this browser"
	default:
		return "Unable to detect location"
	}
}

// LocationFromPosition formats a fix as a draft location: coordinates with six
// decimals and a "lat, lon" address with four.
func LocationFromPosition(p Position) Location {
	lat := decimal.NewFromFloat(p.Latitude)
	lon := decimal.NewFromFloat(p.Longitude)
	return Location{
		Latitude:  lat.StringFixed(6),
		Longitude: lon.StringFixed(6),
		Address:   lat.StringFixed(4) + ", " + lon.StringFixed(4),
	}
}

const (
	mapEmbedBase = "https://www.google.com/maps"
	mapEmbedZoom = 15
)

// MapEmbedURL returns the embeddable map view for a location. It reports false
// when either coordinate is missing.
func MapEmbedURL(loc Location) (string, bool) {
	if loc.Latitude == "" || loc.Longitude == "" {
		return "", false
	}
	return fmt.Sprintf("%s?q=%s,%s&z=%d&output=embed",
		mapEmbedBase, url.QueryEscape(loc.Latitude), url.QueryEscape(loc.Longitude), mapEmbedZoom), true
}
