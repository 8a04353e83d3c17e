package fanout

import (
	"context"
	"testing"
	"time"

	"github.com/wxconsensus/engine/internal/domain"
	"github.com/wxconsensus/engine/internal/errs"
)

type stubFetcher struct {
	fail  map[domain.ModelID]error
	delay time.Duration
}

func (s *stubFetcher) Fetch(ctx context.Context, model domain.ModelID, coords domain.Coordinates, forecastDays int, timezone string) (domain.ModelForecast, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return domain.ModelForecast{}, errs.Wrap(errs.Cancelled, "cancelled", ctx.Err())
		}
	}
	if err, ok := s.fail[model]; ok {
		return domain.ModelForecast{}, err
	}
	return domain.ModelForecast{Model: model, Coordinates: coords}, nil
}

func TestFetchAllPartitionsSuccessesAndFailures(t *testing.T) {
	fetcher := &stubFetcher{fail: map[domain.ModelID]error{
		domain.ModelGFS: errs.New(errs.ApiUnavailable, "upstream returned status 500"),
	}}
	coord := NewCoordinator(fetcher, nil)
	coords, _ := domain.NewCoordinates(0, 0)

	result := coord.FetchAll(context.Background(), coords, []domain.ModelID{domain.ModelECMWF, domain.ModelGFS, domain.ModelICON}, 7, "UTC")

	if len(result.Forecasts) != 2 {
		t.Errorf("got %d forecasts, want 2", len(result.Forecasts))
	}
	if len(result.Failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(result.Failures))
	}
	if result.Failures[0].Model != domain.ModelGFS {
		t.Errorf("failed model = %v, want gfs", result.Failures[0].Model)
	}
	if !errs.Is(result.Failures[0].Err, errs.ApiUnavailable) {
		t.Errorf("failure kind = %v, want ApiUnavailable", result.Failures[0].Err)
	}
	want := 2.0 / 3.0
	if result.SuccessRate != want {
		t.Errorf("SuccessRate = %v, want %v", result.SuccessRate, want)
	}
}

func TestFetchAllAllFail(t *testing.T) {
	fail := map[domain.ModelID]error{}
	for _, m := range domain.AllModels {
		fail[m] = errs.New(errs.ApiUnavailable, "down")
	}
	fetcher := &stubFetcher{fail: fail}
	coord := NewCoordinator(fetcher, nil)
	coords, _ := domain.NewCoordinates(0, 0)

	result := coord.FetchAll(context.Background(), coords, domain.AllModels, 7, "UTC")

	if len(result.Forecasts) != 0 {
		t.Errorf("got %d forecasts, want 0", len(result.Forecasts))
	}
	if len(result.Failures) != len(domain.AllModels) {
		t.Errorf("got %d failures, want %d", len(result.Failures), len(domain.AllModels))
	}
	if result.SuccessRate != 0 {
		t.Errorf("SuccessRate = %v, want 0", result.SuccessRate)
	}
}

func TestFetchAllHonorsCancellation(t *testing.T) {
	fetcher := &stubFetcher{delay: 200 * time.Millisecond}
	coord := NewCoordinator(fetcher, nil)
	coords, _ := domain.NewCoordinates(0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	result := coord.FetchAll(ctx, coords, domain.AllModels, 7, "UTC")
	if len(result.Forecasts) != 0 {
		t.Errorf("got %d forecasts under cancellation, want 0", len(result.Forecasts))
	}
	if len(result.Failures) != len(domain.AllModels) {
		t.Errorf("got %d failures, want %d", len(result.Failures), len(domain.AllModels))
	}
	for _, f := range result.Failures {
		if !errs.Is(f.Err, errs.Cancelled) {
			t.Errorf("failure for %v kind = %v, want Cancelled", f.Model, f.Err)
		}
	}
}

func TestFetchAllPreservesInputOrderOfModelForecasts(t *testing.T) {
	fetcher := &stubFetcher{}
	coord := NewCoordinator(fetcher, nil)
	coords, _ := domain.NewCoordinates(0, 0)

	models := []domain.ModelID{domain.ModelJMA, domain.ModelECMWF, domain.ModelGEM}
	result := coord.FetchAll(context.Background(), coords, models, 7, "UTC")

	if len(result.Forecasts) != 3 {
		t.Fatalf("got %d forecasts, want 3", len(result.Forecasts))
	}
	for i, m := range models {
		if result.Forecasts[i].Model != m {
			t.Errorf("Forecasts[%d].Model = %v, want %v (input order not preserved)", i, result.Forecasts[i].Model, m)
		}
	}
}

