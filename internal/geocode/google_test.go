package geocode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newGoogleServer(t *testing.T, handler http.HandlerFunc) *Google {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGoogle("test-key", time.Second, zap.NewNop())
	g.apiURL = srv.URL + "/json?"
	return g
}

func TestGoogleGeocode(t *testing.T) {
	var gotAddress, gotKey string
	g := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		q := r.URL.Query()
		if q.Get("latlng") != "" {
			_, _ = w.Write([]byte(`{"status":"OK","results":[{"formatted_address":"Boulder, CO, USA","types":["locality"]}]}`))
			return
		}
		gotAddress, gotKey = q.Get("address"), q.Get("key")
		_, _ = w.Write([]byte(`{"status":"OK","results":[{"geometry":{"location":{"lat":40.0149856,"lng":-105.270545}},"types":["locality"]}]}`))
	})

	loc, err := g.Geocode(context.Background(), " Boulder, CO ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotAddress != "Boulder, CO" || gotKey != "test-key" {
		t.Errorf("request address=%q key=%q", gotAddress, gotKey)
	}
	if loc.Address != "Boulder, CO, USA" || loc.Latitude != 40.0149856 || loc.Longitude != -105.270545 {
		t.Fatalf("unexpected location %+v", loc)
	}
}

func TestGoogleZeroResults(t *testing.T) {
	g := newGoogleServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})

	if _, err := g.Geocode(context.Background(), "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGoogleEmptyResultListIsError(t *testing.T) {
	g := newGoogleServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","results":[]}`))
	})

	_, err := g.Geocode(context.Background(), "Boulder")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestGoogleReturnsWhenContextDone(t *testing.T) {
	release := make(chan struct{})
	g := newGoogleServer(t, func(w http.ResponseWriter, _ *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := g.Geocode(ctx, "Boulder")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Geocode returned after %s", elapsed)
	}
}

func TestGoogleEmptyQuery(t *testing.T) {
	g := NewGoogle("k", 0, zap.NewNop())
	if _, err := g.Geocode(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}
