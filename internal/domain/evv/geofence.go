// Package evv implements electronic visit verification: geofence
// validation of GPS readings against a client's registered coordinates,
// and assembly of the immutable location record stored on a shift.
package evv

import (
	"fmt"
	"math"
)

// Validation statuses.
const (
	StatusCompliant           = "COMPLIANT"
	StatusOutOfRange          = "OUT_OF_RANGE"
	StatusLocationUnavailable = "LOCATION_UNAVAILABLE"
)

const earthRadiusM = 6371000.0

// Reading is a raw GPS sample from a caregiver's device.
type Reading struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// Validate checks the reading's coordinate ranges.
func (r Reading) Validate() error {
	if r.Latitude < -90 || r.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range [-90, 90]", r.Latitude)
	}
	if r.Longitude < -180 || r.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range [-180, 180]", r.Longitude)
	}
	if r.Accuracy < 0 {
		return fmt.Errorf("accuracy must be >= 0, got %v", r.Accuracy)
	}
	return nil
}

// ClientLocation is a client's registered service address coordinates and
// allowed check-in radius.
type ClientLocation struct {
	Latitude       float64
	Longitude      float64
	GeofenceRadius float64 // meters; 0 means use the configured default
}

// ValidationResult is the verdict of evaluating a reading against a
// client's geofence.
type ValidationResult struct {
	Status             string  `json:"status"`
	IsWithinGeofence   bool    `json:"is_within_geofence"`
	DistanceFromClient float64 `json:"distance_from_client"`
	Message            string  `json:"message"`
}

// Distance returns the great-circle distance in meters between two points,
// using the haversine formula on a spherical earth. The result is rounded
// to one decimal place so that equality comparisons and stored values are
// stable across platforms.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return math.Round(earthRadiusM*c*10) / 10
}

// ValidateLocation classifies a reading against the client's geofence.
// A reading exactly on the boundary (distance == radius) is compliant.
// defaultRadius is used when the client has no per-client radius override.
func ValidateLocation(reading Reading, client ClientLocation, defaultRadius float64) ValidationResult {
	radius := client.GeofenceRadius
	if radius <= 0 {
		radius = defaultRadius
	}

	dist := Distance(reading.Latitude, reading.Longitude, client.Latitude, client.Longitude)

	if dist <= radius {
		return ValidationResult{
			Status:             StatusCompliant,
			IsWithinGeofence:   true,
			DistanceFromClient: dist,
			Message:            fmt.Sprintf("Location verified: %.1f m from client (allowed %.0f m)", dist, radius),
		}
	}
	return ValidationResult{
		Status:             StatusOutOfRange,
		IsWithinGeofence:   false,
		DistanceFromClient: dist,
		Message:            fmt.Sprintf("Location out of range: %.1f m from client (allowed %.0f m)", dist, radius),
	}
}

// Unavailable returns the verdict used when no usable coordinates exist on
// either side. Callers use it when the client has no registered location or
// the request carried no reading.
func Unavailable(reason string) ValidationResult {
	return ValidationResult{
		Status:  StatusLocationUnavailable,
		Message: reason,
	}
}
