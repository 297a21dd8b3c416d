package core

import "context"

type LocationAuthStatus uint8

const (
	LocationAuthUnknown LocationAuthStatus = iota
	LocationAuthNeedsAuthorization
	LocationAuthAuthorized
	LocationAuthDenied
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationProvider is the platform location collaborator. This layer
// only reads it; prompting for permission stays with the caller.
type LocationProvider interface {
	AuthStatus() LocationAuthStatus
	Current() (Location, bool)
}

// GeoService resolves a free-text place into coordinates for centering
// the discovery map.
type GeoService interface {
	Geocode(ctx context.Context, query string) (Location, error)
}
