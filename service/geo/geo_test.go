package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeocode(t *testing.T) {
	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if got := r.URL.Query().Get("q"); got != "madrid" {
			t.Errorf("q = %q, want madrid", got)
		}
		fmt.Fprint(w, `{"status":"success","lat":40.4168,"lon":-3.7038}`)
	}))
	defer ts.Close()

	svc := New(Config{BaseURL: ts.URL})

	loc, err := svc.Geocode(context.Background(), "madrid")
	if err != nil {
		t.Fatalf("Geocode() failed: %v", err)
	}
	if loc.Latitude != 40.4168 || loc.Longitude != -3.7038 {
		t.Errorf("location = %+v", loc)
	}

	// Second lookup is served from the cache.
	if _, err := svc.Geocode(context.Background(), "madrid"); err != nil {
		t.Fatalf("Geocode() failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("upstream calls = %d, want 1", calls)
	}
}

func TestGeocodeUpstreamStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "<html>bad gateway</html>")
	}))
	defer ts.Close()

	svc := New(Config{BaseURL: ts.URL})

	_, err := svc.Geocode(context.Background(), "madrid")
	if err == nil {
		t.Fatal("Geocode() succeeded against a 502 upstream")
	}
	if !strings.Contains(err.Error(), "status 502") {
		t.Errorf("error %q does not name the upstream status", err)
	}
}

func TestGeocodeFailedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"not_found"}`)
	}))
	defer ts.Close()

	svc := New(Config{BaseURL: ts.URL})

	if _, err := svc.Geocode(context.Background(), "nowhere"); err == nil {
		t.Fatal("Geocode() succeeded on a failed lookup")
	}
}
