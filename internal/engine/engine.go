// Package engine wires the Geocoder, Fanout Coordinator, Aggregator,
// Confidence Scorer, and Narrative Builder into the three outward-facing
// queries the CLI and REST surfaces both consume: aggregate-forecast,
// compare, and geocode. Grounded on the teacher's handler-struct-plus-
// constructor shape, generalized from one HTTP-facing service struct into a
// surface-agnostic core.
package engine

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/wxconsensus/engine/internal/domain"
	"github.com/wxconsensus/engine/internal/errs"
	"github.com/wxconsensus/engine/internal/geocode"
	"github.com/wxconsensus/engine/internal/weather/aggregate"
	"github.com/wxconsensus/engine/internal/weather/fanout"
	"github.com/wxconsensus/engine/internal/weather/narrative"
)

// Geocoder resolves free-text location queries; satisfied by
// *geocode.Client.
type Geocoder interface {
	Resolve(ctx context.Context, query string, opts geocode.Options) (domain.GeocodingResult, error)
	Search(ctx context.Context, query string, opts geocode.Options) ([]domain.GeocodingResult, error)
}

// Engine is the core of the system: everything the CLI and REST surfaces
// need to answer the three outward queries.
type Engine struct {
	geocoder    Geocoder
	coordinator *fanout.Coordinator
	logger      *zap.Logger
}

// New builds an Engine from its collaborators. coordinator fetches the
// requested models; geocoder resolves text locations.
func New(geocoder Geocoder, coordinator *fanout.Coordinator, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{geocoder: geocoder, coordinator: coordinator, logger: logger}
}

// ForecastResult is the answer to an aggregate-forecast query: the
// consensus forecast plus its narrative summary.
type ForecastResult struct {
	Aggregated domain.AggregatedForecast
	Narrative  narrative.Narrative
	Failures   []fanout.Failure
}

// Location selects a place either by free-text query or by coordinates
// directly. Exactly one of Query or Coordinates should be set; resolve
// prefers Coordinates when both are present.
type Location struct {
	Query       string
	Coordinates *domain.Coordinates
}

func (l Location) resolve(ctx context.Context, g Geocoder) (domain.Coordinates, error) {
	if l.Coordinates != nil {
		return *l.Coordinates, nil
	}
	result, err := g.Resolve(ctx, l.Query, geocode.Options{})
	if err != nil {
		return domain.Coordinates{}, err
	}
	return result.Coordinates, nil
}

// AggregateForecast answers the aggregate-forecast outward query: resolve
// the location, fetch every requested model concurrently, aggregate into a
// consensus, and compose the narrative. days is clamped to [1,16]; callers
// enforcing a tighter REST-facing [1,7] window do so before calling in.
func (e *Engine) AggregateForecast(ctx context.Context, loc Location, days int, timezone string) (ForecastResult, error) {
	coords, err := loc.resolve(ctx, e.geocoder)
	if err != nil {
		return ForecastResult{}, err
	}
	if days < 1 {
		days = 1
	}
	if days > 16 {
		days = 16
	}

	fetch := e.coordinator.FetchAll(ctx, coords, domain.AllModels, days, timezone)
	if len(fetch.Forecasts) == 0 {
		return ForecastResult{}, errs.New(errs.ApiUnavailable, "no model forecasts were successfully fetched")
	}

	agg, err := aggregate.Aggregate(fetch.Forecasts)
	if err != nil {
		return ForecastResult{}, err
	}

	return ForecastResult{
		Aggregated: agg,
		Narrative:  narrative.Build(agg),
		Failures:   fetch.Failures,
	}, nil
}

// ModelComparison is the answer to a compare query: the raw per-model
// forecasts plus which models were flagged as overall outliers.
type ModelComparison struct {
	Forecasts       []domain.ModelForecast
	Failures        []fanout.Failure
	OverallOutliers []domain.ModelID
	Weights         []domain.ModelWeight
}

// Compare answers the compare outward query: fetch every model and report
// the aggregator's overall-outlier classification and renormalized weights
// alongside the raw, un-aggregated forecasts.
func (e *Engine) Compare(ctx context.Context, loc Location, days int, timezone string) (ModelComparison, error) {
	coords, err := loc.resolve(ctx, e.geocoder)
	if err != nil {
		return ModelComparison{}, err
	}

	fetch := e.coordinator.FetchAll(ctx, coords, domain.AllModels, days, timezone)
	if len(fetch.Forecasts) == 0 {
		return ModelComparison{}, errs.New(errs.ApiUnavailable, "no model forecasts were successfully fetched")
	}

	agg, err := aggregate.Aggregate(fetch.Forecasts)
	if err != nil {
		return ModelComparison{}, err
	}

	var outliers []domain.ModelID
	for _, w := range agg.Weights {
		if w.Rationale != "equal baseline weight" {
			outliers = append(outliers, w.Model)
		}
	}
	sort.Slice(outliers, func(i, j int) bool { return outliers[i] < outliers[j] })

	return ModelComparison{
		Forecasts:       fetch.Forecasts,
		Failures:        fetch.Failures,
		OverallOutliers: outliers,
		Weights:         agg.Weights,
	}, nil
}

// Geocode answers the geocode outward query directly: up to count matches
// for a free-text query.
func (e *Engine) Geocode(ctx context.Context, query string, count int) ([]domain.GeocodingResult, error) {
	return e.geocoder.Search(ctx, query, geocode.Options{Count: count})
}
