package engine

import (
	"context"
	"testing"
	"time"

	"github.com/wxconsensus/engine/internal/domain"
	"github.com/wxconsensus/engine/internal/errs"
	"github.com/wxconsensus/engine/internal/geocode"
	"github.com/wxconsensus/engine/internal/units"
	"github.com/wxconsensus/engine/internal/weather/fanout"
)

type fakeGeocoder struct {
	result domain.GeocodingResult
	err    error
}

func (f *fakeGeocoder) Resolve(ctx context.Context, query string, opts geocode.Options) (domain.GeocodingResult, error) {
	return f.result, f.err
}

func (f *fakeGeocoder) Search(ctx context.Context, query string, opts geocode.Options) ([]domain.GeocodingResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.GeocodingResult{f.result}, nil
}

type fakeFetcher struct {
	forecasts map[domain.ModelID]domain.ModelForecast
	failFor   map[domain.ModelID]error
}

func (f *fakeFetcher) Fetch(ctx context.Context, model domain.ModelID, coords domain.Coordinates, forecastDays int, timezone string) (domain.ModelForecast, error) {
	if err, ok := f.failFor[model]; ok {
		return domain.ModelForecast{}, err
	}
	return f.forecasts[model], nil
}

func coordsAt(t *testing.T, lat, lon float64) domain.Coordinates {
	t.Helper()
	c, err := domain.NewCoordinates(lat, lon)
	if err != nil {
		t.Fatalf("NewCoordinates() error = %v", err)
	}
	return c
}

func simpleForecast(t *testing.T, model domain.ModelID, coords domain.Coordinates) domain.ModelForecast {
	t.Helper()
	ts := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	metrics := domain.WeatherMetrics{
		Temperature: units.NewCelsius(18),
		Pressure:    units.NewHectoPascals(1012),
	}
	return domain.ModelForecast{
		Model:       model,
		Coordinates: coords,
		ValidFrom:   ts,
		ValidTo:     ts.Add(time.Hour),
		Hourly:      []domain.HourlyForecast{{Timestamp: ts, Metrics: metrics}},
		Daily: []domain.DailyForecast{{
			Date:             time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC),
			TemperatureRange: domain.Range{Min: 10, Max: 20},
		}},
	}
}

func TestAggregateForecastResolvesAndAggregates(t *testing.T) {
	coords := coordsAt(t, 47.6, -122.3)
	forecasts := make(map[domain.ModelID]domain.ModelForecast, len(domain.AllModels))
	for _, m := range domain.AllModels {
		forecasts[m] = simpleForecast(t, m, coords)
	}

	geo := &fakeGeocoder{result: domain.GeocodingResult{Name: "Seattle", Coordinates: coords}}
	coordinator := fanout.NewCoordinator(&fakeFetcher{forecasts: forecasts}, nil)
	eng := New(geo, coordinator, nil)

	result, err := eng.AggregateForecast(context.Background(), Location{Query: "Seattle"}, 3, "UTC")
	if err != nil {
		t.Fatalf("AggregateForecast() error = %v", err)
	}
	if len(result.Aggregated.Models) != len(domain.AllModels) {
		t.Errorf("got %d models, want %d", len(result.Aggregated.Models), len(domain.AllModels))
	}
	if result.Narrative.Headline == "" {
		t.Error("Narrative.Headline should not be empty")
	}
	if len(result.Failures) != 0 {
		t.Errorf("got %d failures, want 0", len(result.Failures))
	}
}

func TestAggregateForecastUsesCoordinatesDirectlyWithoutGeocoding(t *testing.T) {
	coords := coordsAt(t, 10, 10)
	forecasts := map[domain.ModelID]domain.ModelForecast{
		domain.ModelECMWF: simpleForecast(t, domain.ModelECMWF, coords),
	}
	geo := &fakeGeocoder{err: errs.New(errs.GeocodingServiceError, "should not be called")}
	coordinator := fanout.NewCoordinator(&fakeFetcher{forecasts: forecasts, failFor: failAllBut(domain.ModelECMWF)}, nil)
	eng := New(geo, coordinator, nil)

	_, err := eng.AggregateForecast(context.Background(), Location{Coordinates: &coords}, 1, "UTC")
	if err != nil {
		t.Fatalf("AggregateForecast() error = %v, want nil (geocoder must not be consulted)", err)
	}
}

func TestAggregateForecastPropagatesGeocodingError(t *testing.T) {
	geo := &fakeGeocoder{err: errs.New(errs.GeocodingNotFound, "no match")}
	coordinator := fanout.NewCoordinator(&fakeFetcher{}, nil)
	eng := New(geo, coordinator, nil)

	_, err := eng.AggregateForecast(context.Background(), Location{Query: "Nowhere"}, 1, "UTC")
	if !errs.Is(err, errs.GeocodingNotFound) {
		t.Errorf("error kind = %v, want GeocodingNotFound", err)
	}
}

func TestAggregateForecastFailsWhenAllModelsFail(t *testing.T) {
	coords := coordsAt(t, 0, 0)
	geo := &fakeGeocoder{result: domain.GeocodingResult{Coordinates: coords}}
	failAll := make(map[domain.ModelID]error, len(domain.AllModels))
	for _, m := range domain.AllModels {
		failAll[m] = errs.New(errs.ApiTimeout, "timed out")
	}
	coordinator := fanout.NewCoordinator(&fakeFetcher{failFor: failAll}, nil)
	eng := New(geo, coordinator, nil)

	_, err := eng.AggregateForecast(context.Background(), Location{Query: "Nowhere"}, 1, "UTC")
	if !errs.Is(err, errs.ApiUnavailable) {
		t.Errorf("error kind = %v, want ApiUnavailable", err)
	}
}

func TestCompareReportsOverallOutliers(t *testing.T) {
	coords := coordsAt(t, 0, 0)
	forecasts := make(map[domain.ModelID]domain.ModelForecast, len(domain.AllModels))
	for _, m := range domain.AllModels {
		forecasts[m] = simpleForecast(t, m, coords)
	}
	geo := &fakeGeocoder{result: domain.GeocodingResult{Coordinates: coords}}
	coordinator := fanout.NewCoordinator(&fakeFetcher{forecasts: forecasts}, nil)
	eng := New(geo, coordinator, nil)

	cmp, err := eng.Compare(context.Background(), Location{Query: "Anywhere"}, 1, "UTC")
	if err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if len(cmp.Forecasts) != len(domain.AllModels) {
		t.Errorf("got %d forecasts, want %d", len(cmp.Forecasts), len(domain.AllModels))
	}
	if len(cmp.Weights) != len(domain.AllModels) {
		t.Errorf("got %d weights, want %d", len(cmp.Weights), len(domain.AllModels))
	}
	if len(cmp.OverallOutliers) != 0 {
		t.Errorf("got overall outliers %v, want none for identical forecasts", cmp.OverallOutliers)
	}
}

func TestGeocodeDelegatesToGeocoder(t *testing.T) {
	geo := &fakeGeocoder{result: domain.GeocodingResult{Name: "Paris"}}
	eng := New(geo, fanout.NewCoordinator(&fakeFetcher{}, nil), nil)

	results, err := eng.Geocode(context.Background(), "Paris", 5)
	if err != nil {
		t.Fatalf("Geocode() error = %v", err)
	}
	if len(results) != 1 || results[0].Name != "Paris" {
		t.Errorf("Geocode() = %v, want a single Paris result", results)
	}
}

func failAllBut(keep domain.ModelID) map[domain.ModelID]error {
	out := make(map[domain.ModelID]error, len(domain.AllModels))
	for _, m := range domain.AllModels {
		if m != keep {
			out[m] = errs.New(errs.ApiTimeout, "timed out")
		}
	}
	return out
}
