package openmeteo

import (
	"strings"
	"testing"

	"github.com/wxconsensus/engine/internal/domain"
)

func TestResolverURLDedicatedPaths(t *testing.T) {
	r := NewResolver("https://example.test")
	coords, _ := domain.NewCoordinates(47.6, -122.3)

	tests := []struct {
		name       string
		model      domain.ModelID
		wantPath   string
		wantSelect bool
	}{
		{"ecmwf", domain.ModelECMWF, "/v1/ecmwf", false},
		{"gfs", domain.ModelGFS, "/v1/gfs", false},
		{"icon", domain.ModelICON, "/v1/dwd-icon", false},
		{"meteofrance", domain.ModelMeteoFrance, "/v1/meteofrance", false},
		{"metno", domain.ModelMetNo, "/v1/metno", false},
		{"gem", domain.ModelGEM, "/v1/gem", false},
		{"jma is multiplexed behind the generic endpoint", domain.ModelJMA, "/v1/forecast", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, err := r.URL(tt.model, coords, 7, "UTC")
			if err != nil {
				t.Fatalf("URL() error = %v", err)
			}
			if !strings.Contains(url, tt.wantPath) {
				t.Errorf("URL() = %q, want path %q", url, tt.wantPath)
			}
			hasSelector := strings.Contains(url, "models=")
			if hasSelector != tt.wantSelect {
				t.Errorf("URL() selector presence = %v, want %v", hasSelector, tt.wantSelect)
			}
		})
	}
}

func TestResolverURLUnknownModel(t *testing.T) {
	r := NewResolver("")
	coords, _ := domain.NewCoordinates(0, 0)
	if _, err := r.URL(domain.ModelID("nonsense"), coords, 1, "auto"); err == nil {
		t.Error("URL() with an unknown model should fail")
	}
}

func TestResolverDefaultsToPublicBaseURL(t *testing.T) {
	r := NewResolver("")
	coords, _ := domain.NewCoordinates(0, 0)
	url, err := r.URL(domain.ModelECMWF, coords, 1, "auto")
	if err != nil {
		t.Fatalf("URL() error = %v", err)
	}
	if !strings.HasPrefix(url, defaultBaseURL) {
		t.Errorf("URL() = %q, want prefix %q", url, defaultBaseURL)
	}
}
