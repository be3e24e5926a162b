package order

import "github.com/farmstore/backend/internal/domain/shared"

// GeoPoint is a delivery coordinate reported by the customer's device
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"` // metres
}

// Validate checks coordinate ranges
func (g GeoPoint) Validate() error {
	if g.Latitude < -90 || g.Latitude > 90 || g.Longitude < -180 || g.Longitude > 180 || g.Accuracy < 0 {
		return shared.ErrInvalidInput.WithMessage("Invalid geolocation")
	}
	return nil
}

// GeoFailureReason is why the device could not provide a location
type GeoFailureReason string

const (
	GeoDenied      GeoFailureReason = "denied"
	GeoUnavailable GeoFailureReason = "unavailable"
	GeoTimeout     GeoFailureReason = "timeout"
)

// IsValid checks if the reason is one of the known reasons
func (r GeoFailureReason) IsValid() bool {
	switch r {
	case GeoDenied, GeoUnavailable, GeoTimeout:
		return true
	}
	return false
}

// Notice is the message shown to the customer for this failure
func (r GeoFailureReason) Notice() string {
	switch r {
	case GeoDenied:
		return "Location access was denied. Please describe your quartier and address."
	case GeoUnavailable:
		return "Your location could not be determined. Please describe your quartier and address."
	case GeoTimeout:
		return "Locating your device took too long. Please describe your quartier and address."
	}
	return ""
}
