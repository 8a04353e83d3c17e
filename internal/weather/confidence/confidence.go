// Package confidence implements the Confidence Scorer: three weighted
// factors (spread, agreement, time horizon) combined into a bounded [0,1]
// score and a three-level label. Grounded on the teacher's rock-drying
// confidence calculator (internal/weather/rock_drying/confidence.go) —
// baseline-plus-adjustment, clamp-to-range shape — restructured here around
// the spec's explicit weighted-factor model instead of ad hoc point
// deductions.
package confidence

import (
	"fmt"

	"github.com/wxconsensus/engine/internal/domain"
)

const (
	spreadWeight    = 0.5
	agreementWeight = 0.3
	horizonWeight   = 0.2
)

// Input carries everything one Score call needs, gathered from an
// AggregatedForecast's per-point consensus and ranges by the Aggregator.
type Input struct {
	// TemperatureStdevC is the cross-model population stdev of temperature
	// at this point, in Celsius.
	TemperatureStdevC float64
	// WindRangeKmh is the cross-model (max-min) wind-speed range at this
	// point, converted to km/h.
	WindRangeKmh float64
	// PrecipitationProbability is the consensus precipitation probability at
	// this point, in [0,1]: the ensemble fraction for hourly points, the mean
	// of the models' reported daily maxima for daily points.
	PrecipitationProbability float64
	// HumidityRangePercent is the cross-model (max-min) humidity range at
	// this point, in percentage points.
	HumidityRangePercent float64

	ModelsInAgreement int
	TotalModels       int

	// DaysAhead is the forecast horizon of this point, in days (0 = today).
	DaysAhead int
}

// Score computes the bounded confidence for one aggregated point.
func Score(in Input) domain.Confidence {
	spread := spreadFactor(in)
	agreement := agreementFactor(in)
	horizon := horizonFactor(in)

	score := spread*spreadWeight + agreement*agreementWeight + horizon*horizonWeight
	level := domain.LevelForScore(score)

	factors := []domain.ConfidenceFactor{
		{
			Name: "spread", Weight: spreadWeight, RawScore: spread, Weighted: spread * spreadWeight,
			Detail: fmt.Sprintf("temperature stdev %.1f°C, wind range %.1fkm/h, humidity range %.1f%%", in.TemperatureStdevC, in.WindRangeKmh, in.HumidityRangePercent),
		},
		{
			Name: "agreement", Weight: agreementWeight, RawScore: agreement, Weighted: agreement * agreementWeight,
			Detail: fmt.Sprintf("%d of %d models in agreement", in.ModelsInAgreement, in.TotalModels),
		},
		{
			Name: "horizon", Weight: horizonWeight, RawScore: horizon, Weighted: horizon * horizonWeight,
			Detail: fmt.Sprintf("%d day(s) ahead", in.DaysAhead),
		},
	}

	return domain.Confidence{
		Level:       level,
		Score:       clamp01(score),
		Factors:     factors,
		Explanation: explanation(level, in),
	}
}

func explanation(level domain.ConfidenceLevel, in Input) string {
	label := "Low"
	switch level {
	case domain.ConfidenceHigh:
		label = "High"
	case domain.ConfidenceMedium:
		label = "Medium"
	}
	return fmt.Sprintf("%s confidence: %d of %d models agree on temperature predictions.", label, in.ModelsInAgreement, in.TotalModels)
}

// spreadFactor is the mean of the four per-metric spread sub-scores
// (temperature, wind, precipitation, humidity). Each range-based sub-score maps its metric's dispersion linearly into
// [0.3, 1.0] between the documented thresholds.
func spreadFactor(in Input) float64 {
	temp := linearFactor(in.TemperatureStdevC, 1.5, 4.0)
	wind := linearFactor(in.WindRangeKmh, 10, 25)
	humidity := linearFactor(in.HumidityRangePercent, 10, 30)

	precipPct := in.PrecipitationProbability * 100
	precip := 0.5
	if precipPct >= 80 || precipPct <= 20 {
		precip = 1.0
	}

	return (temp + wind + precip + humidity) / 4
}

// linearFactor maps v into [0.3, 1.0]: 1.0 at or below lowThresh, 0.3 at or
// above highThresh, linear between.
func linearFactor(v, lowThresh, highThresh float64) float64 {
	if v <= lowThresh {
		return 1.0
	}
	if v >= highThresh {
		return 0.3
	}
	frac := (v - lowThresh) / (highThresh - lowThresh)
	return 1.0 - frac*0.7
}

func agreementFactor(in Input) float64 {
	if in.TotalModels == 0 {
		return 0.5
	}
	return 0.3 + 0.7*float64(in.ModelsInAgreement)/float64(in.TotalModels)
}

func horizonFactor(in Input) float64 {
	days := in.DaysAhead
	if days > 10 {
		days = 10
	}
	f := 1.0 - 0.05*float64(days)
	if f < 0.5 {
		return 0.5
	}
	return f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
