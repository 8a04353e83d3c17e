// Package fanout implements the Fanout Coordinator: one goroutine per
// requested model, joined on a sync.WaitGroup, partitioned into successes
// and failures. Grounded on the teacher pack's consensus fetch
// (sync.WaitGroup over a fixed-index slice) and the channel-collected,
// context-cancellable fetch-all shape used elsewhere in the retrieval pack.
package fanout

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wxconsensus/engine/internal/domain"
)

// ModelFetcher is the subset of the Model Client's contract the Coordinator
// depends on; satisfied by *openmeteo.Client.
type ModelFetcher interface {
	Fetch(ctx context.Context, model domain.ModelID, coords domain.Coordinates, forecastDays int, timezone string) (domain.ModelForecast, error)
}

// Failure pairs a model id with the error that aborted its fetch.
type Failure struct {
	Model ModelID
	Err   error
}

// ModelID is re-exported for call-site convenience; identical to domain.ModelID.
type ModelID = domain.ModelID

// Result is the joint outcome of fetching every requested model.
type Result struct {
	Forecasts        []domain.ModelForecast
	Failures         []Failure
	FetchedAt        time.Time
	TotalDurationMs  int64
	SuccessRate      float64
}

// Coordinator runs one ModelFetcher call per requested model concurrently
// and awaits them all before returning.
type Coordinator struct {
	fetcher ModelFetcher
	logger  *zap.Logger
}

// NewCoordinator builds a Coordinator over the given fetcher.
func NewCoordinator(fetcher ModelFetcher, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{fetcher: fetcher, logger: logger}
}

type indexedOutcome struct {
	index    int
	model    domain.ModelID
	forecast domain.ModelForecast
	err      error
}

// FetchAll launches one fetch per model in models, waits for all of them
// (success or failure), and partitions the outcomes. A caller cancellation
// via ctx aborts in-flight fetches; cancelled fetches are reported as
// failures with errs.Cancelled rather than causing FetchAll itself to
// return an error.
func (c *Coordinator) FetchAll(ctx context.Context, coords domain.Coordinates, models []domain.ModelID, forecastDays int, timezone string) Result {
	start := time.Now()

	outcomes := make(chan indexedOutcome, len(models))
	var wg sync.WaitGroup

	for i, model := range models {
		wg.Add(1)
		go func(idx int, m domain.ModelID) {
			defer wg.Done()
			forecast, err := c.fetcher.Fetch(ctx, m, coords, forecastDays, timezone)
			if err != nil {
				c.logger.Warn("model fetch failed",
					zap.String("model", string(m)), zap.Error(err))
			}
			outcomes <- indexedOutcome{index: idx, model: m, forecast: forecast, err: err}
		}(i, model)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	ordered := make([]indexedOutcome, len(models))
	for o := range outcomes {
		ordered[o.index] = o
	}

	result := Result{FetchedAt: time.Now().UTC()}
	for _, o := range ordered {
		if o.err != nil {
			result.Failures = append(result.Failures, Failure{Model: o.model, Err: o.err})
			continue
		}
		result.Forecasts = append(result.Forecasts, o.forecast)
	}

	total := len(result.Forecasts) + len(result.Failures)
	if total > 0 {
		result.SuccessRate = float64(len(result.Forecasts)) / float64(total)
	}
	result.TotalDurationMs = time.Since(start).Milliseconds()
	return result
}
