package evv

import "time"

// Capture sources.
const (
	SourceMobile = "mobile"
	SourceWeb    = "web"
)

// LocationData is the immutable record stored on a shift's check-in or
// check-out. It merges the raw reading with the geofence verdict and a
// capture timestamp. It is serialized as JSON on the shift row and never
// queried independently.
type LocationData struct {
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	Accuracy           float64   `json:"accuracy"`
	Timestamp          time.Time `json:"timestamp"`
	Source             string    `json:"source"`
	IsWithinGeofence   bool      `json:"is_within_geofence"`
	DistanceFromClient float64   `json:"distance_from_client"`
	Status             string    `json:"status"`
	Message            string    `json:"message,omitempty"`
}

// NewLocationData assembles the stored record from a reading and its
// verdict. capturedAt should come from the injected clock, not the wall
// clock, so check-ins are reproducible in tests.
func NewLocationData(reading Reading, result ValidationResult, source string, capturedAt time.Time) LocationData {
	return LocationData{
		Latitude:           reading.Latitude,
		Longitude:          reading.Longitude,
		Accuracy:           reading.Accuracy,
		Timestamp:          capturedAt.UTC(),
		Source:             source,
		IsWithinGeofence:   result.IsWithinGeofence,
		DistanceFromClient: result.DistanceFromClient,
		Status:             result.Status,
		Message:            result.Message,
	}
}

// SourceFromUserAgent maps a request's user agent to a capture source tag.
// Mobile app requests identify themselves with a dedicated prefix;
// everything else is treated as a web capture.
func SourceFromUserAgent(ua string) string {
	if len(ua) >= 8 && ua[:8] == "CareLog/" {
		return SourceMobile
	}
	return SourceWeb
}
