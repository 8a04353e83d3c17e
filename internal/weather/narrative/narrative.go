// Package narrative composes the short human-readable summary attached to an
// aggregated forecast: a one-sentence headline, a short body paragraph,
// threshold-triggered alerts, and per-outlier-model notes. Grounded on the
// retrieval pack's own ordered threshold-rule alert list, generalized from a
// single current reading to a multi-day consensus forecast.
package narrative

import (
	"fmt"
	"math"

	"github.com/wxconsensus/engine/internal/domain"
)

// Narrative is the composed natural-language summary for an AggregatedForecast.
type Narrative struct {
	Headline   string
	Body       string
	Alerts     []string
	ModelNotes []string
}

const (
	extendedRangeDays      = 5
	severeWeatherCode      = 95
	severeHotC             = 35.0
	severeColdC            = -10.0
	severePrecipMM         = 50.0
	severeWindMS           = 15.0
	significantStdevC      = 5.0
	windMentionThresholdMS = 10.0
	headlineAgreementRatio = 0.7
)

// Build composes a Narrative from a fully formed AggregatedForecast. It never
// fails: with zero hourly or daily points it returns a neutral, minimal
// narrative rather than an error, per spec §5's "Confidence and Narrative
// never fail" contract.
func Build(agg domain.AggregatedForecast) Narrative {
	return Narrative{
		Headline:   headline(agg),
		Body:       body(agg),
		Alerts:     alerts(agg),
		ModelNotes: modelNotes(agg),
	}
}

// dominantCategory buckets a WMO weather code into a coarse condition class.
func dominantCategory(code int) string {
	switch {
	case code >= 71 && code <= 77, code == 85, code == 86:
		return "snowy"
	case code >= 51 && code <= 67, code >= 80 && code <= 82, code >= 95:
		return "rainy"
	case code == 0 || code == 1:
		return "dry"
	default:
		return "mixed"
	}
}

func headline(agg domain.AggregatedForecast) string {
	window := windowHours(agg.Hourly, 48)
	if len(window) == 0 {
		return "Not enough data for a forecast summary."
	}

	hoursByCategory := make(map[string]int)
	var agreementSum float64
	for _, h := range window {
		hoursByCategory[dominantCategory(h.Metrics.WeatherCode.Int())]++
		agreementSum += h.Consensus.AgreementScore
	}
	avgAgreement := agreementSum / float64(len(window))

	dominant, best := "mixed", -1
	for category, count := range hoursByCategory {
		if count > best {
			dominant, best = category, count
		}
	}

	dayName := window[len(window)-1].Timestamp.Weekday().String()
	if avgAgreement >= headlineAgreementRatio {
		return fmt.Sprintf("Models agree on %s conditions through %s.", dominant, dayName)
	}
	return fmt.Sprintf("Models disagree on conditions for %s.", dayName)
}

func body(agg domain.AggregatedForecast) string {
	if len(agg.Daily) == 0 {
		return "No daily summary is available."
	}
	today := agg.Daily[0]

	sentences := []string{
		fmt.Sprintf("Today's temperature ranges from %.0f to %.0f°C.",
			today.Forecast.TemperatureRange.Min, today.Forecast.TemperatureRange.Max),
	}

	peakDay, peakProb := 0, today.Forecast.Precipitation.Probability.Float()
	for i, d := range agg.Daily {
		if p := d.Forecast.Precipitation.Probability.Float(); p > peakProb {
			peakDay, peakProb = i, p
		}
	}
	if peakProb > 0 {
		when := "today"
		if peakDay > 0 {
			when = agg.Daily[peakDay].Date.Weekday().String()
		}
		sentences = append(sentences, fmt.Sprintf("Peak precipitation chance is %.0f%% on %s.", peakProb*100, when))
	}

	maxWind := today.Forecast.Wind.Max.Float()
	if maxWind >= windMentionThresholdMS {
		sentences = append(sentences, fmt.Sprintf("Expect wind gusting up to %.0f km/h.", today.Forecast.Wind.Max.KmH()))
	}

	sentences = append(sentences, fmt.Sprintf("Overall confidence is %s.", agg.OverallConfidence.Level))

	out := sentences[0]
	for _, s := range sentences[1:] {
		out += " " + s
	}
	return out
}

func alerts(agg domain.AggregatedForecast) []string {
	var out []string

	if len(agg.Daily) > extendedRangeDays {
		out = append(out, "Extended range beyond 5 days carries higher uncertainty")
	}

	seenCode := make(map[int]bool)
	seenHot := make(map[int]bool)
	seenCold := make(map[int]bool)
	seenWind := make(map[int]bool)
	seenDisagreement := make(map[int]bool)
	for _, h := range agg.Hourly {
		code := h.Metrics.WeatherCode.Int()
		tempC := h.Metrics.Temperature.Float()
		windMS := h.Metrics.WindSpeed.Float()

		dayIndex := h.Timestamp.Sub(agg.Hourly[0].Timestamp).Hours() / 24
		day := int(math.Floor(dayIndex))

		if code >= severeWeatherCode && !seenCode[day] {
			seenCode[day] = true
			out = append(out, fmt.Sprintf("Severe weather code %d forecast on day %d", code, day))
		}
		if tempC > severeHotC && !seenHot[day] {
			seenHot[day] = true
			out = append(out, fmt.Sprintf("Temperature above %.0f°C forecast on day %d", severeHotC, day))
		}
		if tempC < severeColdC && !seenCold[day] {
			seenCold[day] = true
			out = append(out, fmt.Sprintf("Temperature below %.0f°C forecast on day %d", severeColdC, day))
		}
		if windMS > severeWindMS && !seenWind[day] {
			seenWind[day] = true
			out = append(out, fmt.Sprintf("Wind above %.0f m/s forecast on day %d", severeWindMS, day))
		}
		if h.Consensus.Temperature.Stdev > significantStdevC && !seenDisagreement[day] {
			seenDisagreement[day] = true
			out = append(out, fmt.Sprintf("Significant model disagreement on day %d", day))
		}
	}

	// Precipitation severity is a daily/day total (spec §4.7: "precipitation >
	// 50 mm/day"), not an hourly consensus amount, which almost never reaches
	// that magnitude on its own.
	for i, d := range agg.Daily {
		if d.Forecast.Precipitation.TotalMM.Float() > severePrecipMM {
			out = append(out, fmt.Sprintf("Precipitation above %.0fmm/day forecast on day %d", severePrecipMM, i))
		}
	}

	return out
}

func modelNotes(agg domain.AggregatedForecast) []string {
	if len(agg.Hourly) == 0 {
		return nil
	}
	first := agg.Hourly[0]
	var notes []string
	for _, model := range first.Consensus.OutlierModels {
		reading, ok := readingFor(agg, model)
		if !ok {
			continue
		}
		direction := "warmer"
		value, unit := reading.Temperature.Float(), "°C"
		switch {
		case reading.Temperature.Float() > first.Consensus.Temperature.Mean:
			direction, value, unit = "warmer", reading.Temperature.Float(), "°C"
		case reading.Temperature.Float() < first.Consensus.Temperature.Mean:
			direction, value, unit = "cooler", reading.Temperature.Float(), "°C"
		case reading.Precipitation.Float() > first.Consensus.Precipitation.Mean:
			direction, value, unit = "wetter", reading.Precipitation.Float(), "mm"
		default:
			direction, value, unit = "drier", reading.Precipitation.Float(), "mm"
		}
		notes = append(notes, fmt.Sprintf("%s is notably %s at %.1f%s.", model.DisplayName(), direction, value, unit))
	}
	return notes
}

func readingFor(agg domain.AggregatedForecast, model domain.ModelID) (domain.WeatherMetrics, bool) {
	if len(agg.Hourly) == 0 {
		return domain.WeatherMetrics{}, false
	}
	ts := agg.Hourly[0].Timestamp
	for _, mf := range agg.ModelForecasts {
		if mf.Model != model {
			continue
		}
		for _, h := range mf.Hourly {
			if h.Timestamp.Equal(ts) {
				return h.Metrics, true
			}
		}
	}
	return domain.WeatherMetrics{}, false
}

func windowHours(hourly []domain.AggregatedHourlyForecast, n int) []domain.AggregatedHourlyForecast {
	if len(hourly) <= n {
		return hourly
	}
	return hourly[:n]
}
