package geo

import (
	"testing"
)

func almost(a, b, eps float64) bool {
	if a > b {
		return a-b < eps
	}
	return b-a < eps
}

func TestHaversine_SamePoint(t *testing.T) {
	d := Haversine(40.7128, -74.0060, 40.7128, -74.0060)
	if d != 0 {
		t.Fatalf("want 0, got %f", d)
	}
}

func TestHaversine_Berlin_Hamburg(t *testing.T) {
	// ~255 km
	d := Haversine(52.52, 13.405, 53.5511, 9.9937)
	if !almost(d, 255, 5) {
		t.Fatalf("want ~255km, got %f", d)
	}
}

func TestNewCircle_Validation(t *testing.T) {
	tests := []struct {
		name             string
		lat, lon, radius float64
		wantErr          bool
	}{
		{"valid", 52.5, 13.4, 10, false},
		{"lat too high", 91, 0, 10, true},
		{"lon too low", 0, -181, 10, true},
		{"zero radius", 0, 0, 0, true},
		{"negative radius", 0, 0, -1, true},
		{"huge radius", 0, 0, 30000, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewCircle(tc.lat, tc.lon, tc.radius)
			if (err != nil) != tc.wantErr {
				t.Errorf("NewCircle(%g,%g,%g) err=%v, wantErr=%v", tc.lat, tc.lon, tc.radius, err, tc.wantErr)
			}
		})
	}
}

func TestCircle_Contains(t *testing.T) {
	c, err := NewCircle(52.52, 13.405, 50)
	if err != nil {
		t.Fatal(err)
	}
	if !c.Contains(52.4, 13.1) {
		t.Error("Potsdam should be within 50km of Berlin")
	}
	if c.Contains(53.5511, 9.9937) {
		t.Error("Hamburg should not be within 50km of Berlin")
	}
	if !(Circle{}).Contains(0, 0) {
		t.Error("zero circle must contain everything")
	}
}

func TestCircle_String(t *testing.T) {
	c := Circle{Lat: 52.5, Lon: 13.4, RadiusKm: 10}
	if got := c.String(); got != "/radius/52.5/13.4/10" {
		t.Errorf("String() = %q", got)
	}
}
