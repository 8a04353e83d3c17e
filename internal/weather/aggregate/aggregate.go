// Package aggregate implements the Aggregator and the Consensus/Agreement
// Analyzer: it combines independently fetched ModelForecasts onto a shared
// time grid, derives per-metric consensus values, flags outlier models by
// z-score, and assigns renormalized model weights. Grounded on the
// retrieval pack's own aggregator (other_examples, mostCommonString
// generalized into the weather-code plurality vote) and the teacher pack's
// consensus spread/agreement skeleton.
package aggregate

import (
	"math"
	"sort"
	"time"

	"github.com/wxconsensus/engine/internal/domain"
	"github.com/wxconsensus/engine/internal/errs"
	"github.com/wxconsensus/engine/internal/units"
	"github.com/wxconsensus/engine/internal/weather/confidence"
)

const outlierZScore = 2.0
const overallOutlierThreshold = 0.25

// Aggregate combines forecasts (non-empty, co-located within 1km) into a
// single consensus AggregatedForecast. Input order is preserved in the
// returned Models/ModelForecasts fields.
func Aggregate(forecasts []domain.ModelForecast) (domain.AggregatedForecast, error) {
	if len(forecasts) == 0 {
		return domain.AggregatedForecast{}, errs.New(errs.InvalidInput, "aggregate requires at least one model forecast")
	}

	base := forecasts[0].Coordinates
	for _, f := range forecasts[1:] {
		if !base.WithinKm(f.Coordinates, 1.0) {
			return domain.AggregatedForecast{}, errs.New(errs.InvalidInput, "all forecasts must share coordinates within 1km")
		}
	}

	models := make([]domain.ModelID, len(forecasts))
	for i, f := range forecasts {
		models[i] = f.Model
	}
	n := len(forecasts)

	hourTimes, hourByModel := alignHourly(forecasts)
	if len(hourTimes) == 0 {
		return domain.AggregatedForecast{}, errs.New(errs.InvalidInput, "no overlapping hourly timestamps across contributing models")
	}
	dayDates, dayByModel := alignDaily(forecasts)
	if len(dayDates) == 0 {
		return domain.AggregatedForecast{}, errs.New(errs.InvalidInput, "no overlapping daily dates across contributing models")
	}

	outlierCounts := make(map[domain.ModelID]map[string]int, n)
	for _, m := range models {
		outlierCounts[m] = map[string]int{"temperature": 0, "precipitation": 0, "wind": 0}
	}

	hourly := make([]domain.AggregatedHourlyForecast, 0, len(hourTimes))
	for idx, ts := range hourTimes {
		perModel := hourByModel[ts]
		hourly = append(hourly, buildHourlyPoint(ts, models, perModel, idx, outlierCounts))
	}

	daily := make([]domain.AggregatedDailyForecast, 0, len(dayDates))
	hourlyByDate := indexHourlyByDate(hourly)
	for idx, date := range dayDates {
		perModel := dayByModel[date]
		dayHourly := hourlyByDate[dateKey(date)]
		point := buildDailyPoint(date, models, perModel, dayHourly, idx)
		daily = append(daily, point)
	}

	overallOutliers := make(map[domain.ModelID]bool, n)
	for _, m := range models {
		counts := outlierCounts[m]
		total := len(hourTimes)
		if total == 0 {
			continue
		}
		for _, metric := range []string{"temperature", "precipitation", "wind"} {
			if float64(counts[metric])/float64(total) >= overallOutlierThreshold {
				overallOutliers[m] = true
				break
			}
		}
	}
	weights := computeWeights(models, overallOutliers)

	var validFrom, validTo time.Time
	if len(hourly) > 0 {
		validFrom = hourly[0].Timestamp
		validTo = hourly[len(hourly)-1].Timestamp.Add(time.Hour)
	}

	overall := overallConfidence(hourly)

	return domain.AggregatedForecast{
		Coordinates:       base,
		GeneratedAt:       time.Now().UTC(),
		ValidFrom:         validFrom,
		ValidTo:           validTo,
		Models:            models,
		ModelForecasts:    forecasts,
		Hourly:            hourly,
		Daily:             daily,
		Weights:           weights,
		OverallConfidence: overall,
	}, nil
}

// alignHourly returns the sorted intersection of hourly timestamps present
// in every forecast, plus a lookup from timestamp to each model's metrics.
func alignHourly(forecasts []domain.ModelForecast) ([]time.Time, map[time.Time]map[domain.ModelID]domain.WeatherMetrics) {
	counts := make(map[time.Time]int)
	byTime := make(map[time.Time]map[domain.ModelID]domain.WeatherMetrics)

	for _, f := range forecasts {
		seen := make(map[time.Time]bool, len(f.Hourly))
		for _, h := range f.Hourly {
			if seen[h.Timestamp] {
				continue
			}
			seen[h.Timestamp] = true
			counts[h.Timestamp]++
			if byTime[h.Timestamp] == nil {
				byTime[h.Timestamp] = make(map[domain.ModelID]domain.WeatherMetrics, len(forecasts))
			}
			byTime[h.Timestamp][f.Model] = h.Metrics
		}
	}

	n := len(forecasts)
	var times []time.Time
	for t, c := range counts {
		if c == n {
			times = append(times, t)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	filtered := make(map[time.Time]map[domain.ModelID]domain.WeatherMetrics, len(times))
	for _, t := range times {
		filtered[t] = byTime[t]
	}
	return times, filtered
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

// alignDaily returns the sorted intersection of calendar dates present in
// every forecast, plus a lookup from date to each model's daily rollup.
func alignDaily(forecasts []domain.ModelForecast) ([]time.Time, map[time.Time]map[domain.ModelID]domain.DailyForecast) {
	counts := make(map[string]int)
	repr := make(map[string]time.Time)
	byDate := make(map[string]map[domain.ModelID]domain.DailyForecast)

	for _, f := range forecasts {
		seen := make(map[string]bool, len(f.Daily))
		for _, d := range f.Daily {
			key := dateKey(d.Date)
			if seen[key] {
				continue
			}
			seen[key] = true
			counts[key]++
			repr[key] = d.Date
			if byDate[key] == nil {
				byDate[key] = make(map[domain.ModelID]domain.DailyForecast, len(forecasts))
			}
			byDate[key][f.Model] = d
		}
	}

	n := len(forecasts)
	var keys []string
	for k, c := range counts {
		if c == n {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	dates := make([]time.Time, 0, len(keys))
	out := make(map[time.Time]map[domain.ModelID]domain.DailyForecast, len(keys))
	for _, k := range keys {
		d := repr[k]
		dates = append(dates, d)
		out[d] = byDate[k]
	}
	return dates, out
}

func indexHourlyByDate(hourly []domain.AggregatedHourlyForecast) map[string][]domain.AggregatedHourlyForecast {
	out := make(map[string][]domain.AggregatedHourlyForecast)
	for _, h := range hourly {
		key := dateKey(h.Timestamp)
		out[key] = append(out[key], h)
	}
	return out
}

func buildHourlyPoint(ts time.Time, models []domain.ModelID, perModel map[domain.ModelID]domain.WeatherMetrics, hourIndex int, outlierCounts map[domain.ModelID]map[string]int) domain.AggregatedHourlyForecast {
	n := len(models)

	temps := make([]float64, 0, n)
	apparents := make([]float64, 0, n)
	precips := make([]float64, 0, n)
	winds := make([]float64, 0, n)
	windDirs := make([]float64, 0, n)
	humidities := make([]float64, 0, n)
	pressures := make([]float64, 0, n)
	clouds := make([]float64, 0, n)
	visibilities := make([]float64, 0, n)
	uvs := make([]float64, 0, n)
	codes := make([]int, 0, n)
	gusts := make([]float64, 0, n)

	for _, m := range models {
		metrics := perModel[m]
		temps = append(temps, metrics.Temperature.Float())
		apparents = append(apparents, metrics.ApparentTemperature.Float())
		precips = append(precips, metrics.Precipitation.Float())
		winds = append(winds, metrics.WindSpeed.Float())
		windDirs = append(windDirs, metrics.WindDirection.Float())
		humidities = append(humidities, metrics.Humidity.Float())
		pressures = append(pressures, metrics.Pressure.Float())
		clouds = append(clouds, metrics.CloudCover.Float())
		visibilities = append(visibilities, metrics.Visibility.Float())
		uvs = append(uvs, metrics.UVIndex.Float())
		codes = append(codes, metrics.WeatherCode.Int())
		if metrics.WindGust != nil {
			gusts = append(gusts, metrics.WindGust.Float())
		}
	}

	tempStats := computeStatistics(temps)
	precipStats := computeStatistics(precips)
	windStats := computeStatistics(winds)

	inAgreement, outliers := classifyOutliers(models, temps, tempStats, outlierZScore)
	markOutlierCounts(models, temps, tempStats, outlierZScore, outlierCounts, "temperature")
	markOutlierCounts(models, precips, precipStats, outlierZScore, outlierCounts, "precipitation")
	markOutlierCounts(models, winds, windStats, outlierZScore, outlierCounts, "wind")

	agreementScore := 0.0
	if n > 0 {
		agreementScore = float64(len(inAgreement)) / float64(n)
	}

	precipProbability := ensembleProbability(precips)

	metrics := domain.WeatherMetrics{
		Temperature:              units.NewCelsius(trimmedMean(temps)),
		ApparentTemperature:      units.NewCelsius(trimmedMean(apparents)),
		Humidity:                 clampPercent(mean(humidities)),
		Pressure:                 units.NewHectoPascals(mean(pressures)),
		WindSpeed:                clampSpeed(median(winds)),
		WindDirection:            units.NormalizeDegrees(circularMeanDegrees(windDirs)),
		Precipitation:            clampMM(mean(precips)),
		PrecipitationProbability: clampProbability(precipProbability),
		CloudCover:               clampPercent(mean(clouds)),
		Visibility:               clampMeters(mean(visibilities)),
		UVIndex:                  clampUV(maxOf(uvs)),
		WeatherCode:              units.WeatherCode(plurality(codes)),
	}
	if len(gusts) > 0 {
		gust := clampSpeed(maxOf(gusts))
		metrics.WindGust = &gust
	}

	tempMin, tempMax := rangeOf(temps)
	precipMin, precipMax := rangeOf(precips)
	windMin, windMax := rangeOf(winds)
	humidityMin, humidityMax := rangeOf(humidities)

	consensus := domain.ModelConsensus{
		AgreementScore:    agreementScore,
		ModelsInAgreement: inAgreement,
		OutlierModels:     outliers,
		Temperature:       toDomainStats(tempStats),
		Precipitation:     toDomainStats(precipStats),
		Wind:              toDomainStats(windStats),
	}

	conf := confidence.Score(confidence.Input{
		TemperatureStdevC:        tempStats.Stdev,
		WindRangeKmh:             (windMax - windMin) * 3.6,
		PrecipitationProbability: precipProbability,
		HumidityRangePercent:     humidityMax - humidityMin,
		ModelsInAgreement:        len(inAgreement),
		TotalModels:              n,
		DaysAhead:                hourIndex / 24,
	})

	return domain.AggregatedHourlyForecast{
		Timestamp:  ts,
		Metrics:    metrics,
		Confidence: conf,
		Consensus:  consensus,
		Ranges: domain.MetricRanges{
			Temperature:   domain.Range{Min: tempMin, Max: tempMax},
			Precipitation: domain.Range{Min: precipMin, Max: precipMax},
			Wind:          domain.Range{Min: windMin, Max: windMax},
			Humidity:      domain.Range{Min: humidityMin, Max: humidityMax},
		},
	}
}

// markOutlierCounts tracks, per model, how many aligned timesteps flag it
// as an outlier on a given metric — used for the per-forecast
// overall-outlier classification (spec §4.5), distinct from the
// per-timestep temperature-only ModelConsensus.OutlierModels.
func markOutlierCounts(models []domain.ModelID, values []float64, stats statistics, z float64, counts map[domain.ModelID]map[string]int, metric string) {
	for i, m := range models {
		if isOutlier(values[i], stats, z) {
			counts[m][metric]++
		}
	}
}

func isOutlier(v float64, stats statistics, z float64) bool {
	if stats.Stdev == 0 {
		return false
	}
	return math.Abs(v-stats.Mean)/stats.Stdev > z
}

// classifyOutliers returns the in-agreement and outlier model id sets for
// one timestep, based on temperature z-score only, per spec §4.5.
func classifyOutliers(models []domain.ModelID, values []float64, stats statistics, z float64) ([]domain.ModelID, []domain.ModelID) {
	var inAgreement, outliers []domain.ModelID
	for i, m := range models {
		if isOutlier(values[i], stats, z) {
			outliers = append(outliers, m)
		} else {
			inAgreement = append(inAgreement, m)
		}
	}
	return inAgreement, outliers
}

// ensembleProbability is the fraction of models reporting precipitation
// amount greater than 0.1mm at this point.
func ensembleProbability(precip []float64) float64 {
	if len(precip) == 0 {
		return 0
	}
	count := 0
	for _, v := range precip {
		if v > 0.1 {
			count++
		}
	}
	return float64(count) / float64(len(precip))
}

func toDomainStats(s statistics) domain.MetricStatistics {
	return domain.MetricStatistics{Mean: s.Mean, Median: s.Median, Min: s.Min, Max: s.Max, Stdev: s.Stdev, Range: s.Range}
}

func computeWeights(models []domain.ModelID, overallOutliers map[domain.ModelID]bool) []domain.ModelWeight {
	n := len(models)
	if n == 0 {
		return nil
	}
	baseline := 1.0 / float64(n)

	raw := make([]float64, n)
	total := 0.0
	for i, m := range models {
		w := baseline
		if overallOutliers[m] {
			w *= 0.5
		}
		raw[i] = w
		total += w
	}

	weights := make([]domain.ModelWeight, n)
	for i, m := range models {
		w := raw[i]
		if total > 0 {
			w = raw[i] / total
		}
		rationale := "equal baseline weight"
		if overallOutliers[m] {
			rationale = "halved: flagged as an overall outlier"
		}
		weights[i] = domain.ModelWeight{Model: m, Weight: w, Rationale: rationale}
	}
	return weights
}

// overallConfidence summarizes the forecast's confidence using its
// nearest-term (day-0) hourly point, which best represents the confidence a
// caller sees "right now".
func overallConfidence(hourly []domain.AggregatedHourlyForecast) domain.Confidence {
	if len(hourly) == 0 {
		return domain.Confidence{Level: domain.ConfidenceLow, Score: 0}
	}
	return hourly[0].Confidence
}

func clampPercent(v float64) units.Percent {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return units.Percent(v)
}

func clampProbability(v float64) units.Probability {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return units.Probability(v)
}

func clampSpeed(v float64) units.MetersPerSecond {
	if v < 0 {
		v = 0
	}
	return units.MetersPerSecond(v)
}

func clampMM(v float64) units.Millimeters {
	if v < 0 {
		v = 0
	}
	return units.Millimeters(v)
}

func clampMeters(v float64) units.Meters {
	if v < 0 {
		v = 0
	}
	return units.Meters(v)
}

func clampUV(v float64) units.UVIndex {
	if v < 0 {
		v = 0
	}
	return units.UVIndex(v)
}
