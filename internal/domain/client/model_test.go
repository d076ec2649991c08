package client

import "testing"

func f64(v float64) *float64 { return &v }

func TestGeofenceLocation_NoCoordinates(t *testing.T) {
	c := &Client{FirstName: "Maria", LastName: "Alvarez"}
	if _, ok := c.GeofenceLocation(); ok {
		t.Error("expected no location when coordinates absent")
	}

	c.Latitude = f64(40.0)
	if _, ok := c.GeofenceLocation(); ok {
		t.Error("latitude alone is not a usable location")
	}
}

func TestGeofenceLocation_WithRadiusOverride(t *testing.T) {
	c := &Client{Latitude: f64(40.0), Longitude: f64(-75.0), GeofenceRadiusM: f64(75)}
	loc, ok := c.GeofenceLocation()
	if !ok {
		t.Fatal("expected usable location")
	}
	if loc.Latitude != 40.0 || loc.Longitude != -75.0 || loc.GeofenceRadius != 75 {
		t.Errorf("got %+v", loc)
	}
}

func TestGeofenceLocation_DefaultRadiusWhenUnset(t *testing.T) {
	c := &Client{Latitude: f64(40.0), Longitude: f64(-75.0)}
	loc, ok := c.GeofenceLocation()
	if !ok {
		t.Fatal("expected usable location")
	}
	if loc.GeofenceRadius != 0 {
		t.Errorf("radius = %v, want 0 (defer to configured default)", loc.GeofenceRadius)
	}
}
