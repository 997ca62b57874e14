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

func TestNominatimGeocode(t *testing.T) {
	var gotQuery, gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			http.NotFound(w, r)
			return
		}
		gotQuery = r.URL.Query().Get("q")
		gotAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"40.0149856","lon":"-105.270545","display_name":"Boulder, Boulder County, Colorado, United States"}]`))
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL, "", time.Second, zap.NewNop())
	loc, err := g.Geocode(context.Background(), "  Boulder, CO ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotQuery != "Boulder, CO" {
		t.Errorf("query = %q", gotQuery)
	}
	if gotAgent != DefaultUserAgent {
		t.Errorf("User-Agent = %q", gotAgent)
	}
	if loc.Address != "Boulder, Boulder County, Colorado, United States" {
		t.Errorf("address = %q", loc.Address)
	}
	if loc.Latitude != 40.0149856 || loc.Longitude != -105.270545 {
		t.Errorf("coordinates = %v,%v", loc.Latitude, loc.Longitude)
	}
}

func TestNominatimNoMatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL, "", time.Second, zap.NewNop())
	if _, err := g.Geocode(context.Background(), "Nowhere"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNominatimUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := NewNominatim(srv.URL, "", time.Second, zap.NewNop())
	_, err := g.Geocode(context.Background(), "Boulder")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestNominatimEmptyQuery(t *testing.T) {
	g := NewNominatim("http://127.0.0.1:1", "", time.Second, zap.NewNop())
	if _, err := g.Geocode(context.Background(), "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	g, err := New(Options{}, zap.NewNop())
	if err != nil || g.Name() != ProviderNominatim {
		t.Fatalf("default provider = %v, %v", g, err)
	}
	if _, err := New(Options{Provider: ProviderGoogle}, zap.NewNop()); err == nil {
		t.Fatal("expected error for google without API key")
	}
	g, err = New(Options{Provider: "Google", APIKey: "k"}, zap.NewNop())
	if err != nil || g.Name() != ProviderGoogle {
		t.Fatalf("google provider = %v, %v", g, err)
	}
	if _, err := New(Options{Provider: "bing"}, zap.NewNop()); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}
