// Command weatherconsensus is the terminal entry point for the multi-model
// forecast engine. Terminal rendering (colors, spinners, boxes) is out of
// scope for this core; output here is plain text. Grounded on the retrieval
// pack's flag-parsed city/units CLI, trimmed to the engine's own contract.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wxconsensus/engine/internal/config"
	"github.com/wxconsensus/engine/internal/engine"
	"github.com/wxconsensus/engine/internal/geocode"
	"github.com/wxconsensus/engine/internal/weather/fanout"
	"github.com/wxconsensus/engine/internal/weather/openmeteo"
)

func main() {
	cityFlag := flag.String("city", "", "Location name (or first positional argument)")
	daysFlag := flag.Int("days", 5, "Forecast horizon in days (1-16)")
	timezoneFlag := flag.String("timezone", "auto", "IANA timezone name, or \"auto\"")
	compareFlag := flag.Bool("compare", false, "Show per-model comparison instead of the consensus forecast")
	flag.Parse()

	city := *cityFlag
	if city == "" {
		if args := flag.Args(); len(args) > 0 {
			city = strings.Join(args, " ")
		} else {
			city = "London"
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	geocoder := geocode.NewClient(cfg.Weather.GeocodingBaseURL, logger)
	resolver := openmeteo.NewResolver(cfg.Weather.ForecastBaseURL)
	client := openmeteo.NewClient(resolver, logger)
	coordinator := fanout.NewCoordinator(client, logger)
	eng := engine.New(geocoder, coordinator, logger)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Weather.RequestTimeout*2)
	defer cancel()

	if *compareFlag {
		runCompare(ctx, eng, city, *daysFlag, *timezoneFlag)
		return
	}
	runForecast(ctx, eng, city, *daysFlag, *timezoneFlag)
}

func runForecast(ctx context.Context, eng *engine.Engine, city string, days int, timezone string) {
	result, err := eng.AggregateForecast(ctx, engine.Location{Query: city}, days, timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Forecast for %s\n", city)
	fmt.Println(strings.Repeat("-", len(city)+13))
	fmt.Println(result.Narrative.Headline)
	fmt.Println()
	fmt.Println(result.Narrative.Body)
	if len(result.Narrative.Alerts) > 0 {
		fmt.Println("\nAlerts:")
		for _, a := range result.Narrative.Alerts {
			fmt.Printf("  - %s\n", a)
		}
	}
	if len(result.Narrative.ModelNotes) > 0 {
		fmt.Println("\nModel notes:")
		for _, n := range result.Narrative.ModelNotes {
			fmt.Printf("  - %s\n", n)
		}
	}
	if len(result.Failures) > 0 {
		fmt.Println("\nModels that failed to respond:")
		for _, f := range result.Failures {
			fmt.Printf("  - %s: %v\n", f.Model, f.Err)
		}
	}

	fmt.Printf("\nOverall confidence: %s (%.0f%%)\n", result.Aggregated.OverallConfidence.Level, result.Aggregated.OverallConfidence.Score*100)
	fmt.Println("\nDaily outlook:")
	for _, d := range result.Aggregated.Daily {
		fmt.Printf("  %s  %.0f-%.0f°C  confidence=%s\n",
			d.Date.Format("Mon Jan 2"), d.Forecast.TemperatureRange.Min, d.Forecast.TemperatureRange.Max, d.Confidence.Level)
	}
}

func runCompare(ctx context.Context, eng *engine.Engine, city string, days int, timezone string) {
	cmp, err := eng.Compare(ctx, engine.Location{Query: city}, days, timezone)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Model comparison for %s\n", city)
	for _, f := range cmp.Forecasts {
		if len(f.Hourly) == 0 {
			continue
		}
		fmt.Printf("  %-12s  temp=%.1f°C  as of %s\n",
			f.Model.DisplayName(), f.Hourly[0].Metrics.Temperature.Float(), f.Hourly[0].Timestamp.Format(time.Kitchen))
	}
	if len(cmp.OverallOutliers) > 0 {
		fmt.Println("\nOverall outliers:")
		for _, m := range cmp.OverallOutliers {
			fmt.Printf("  - %s\n", m.DisplayName())
		}
	}
	if len(cmp.Failures) > 0 {
		fmt.Println("\nModels that failed to respond:")
		for _, f := range cmp.Failures {
			fmt.Printf("  - %s: %v\n", f.Model, f.Err)
		}
	}
}
