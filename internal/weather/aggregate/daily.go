package aggregate

import (
	"time"

	"github.com/wxconsensus/engine/internal/domain"
	"github.com/wxconsensus/engine/internal/units"
	"github.com/wxconsensus/engine/internal/weather/confidence"
)

// buildDailyPoint applies the same per-metric consensus rules used for
// hourly points to one aligned calendar day, plus two day-specific
// concerns: sunrise/sunset (astronomical, not model-dependent, so the first
// contributing model's value is used rather than averaged) and binding the
// day's already-aggregated hourly slice.
func buildDailyPoint(date time.Time, models []domain.ModelID, perModel map[domain.ModelID]domain.DailyForecast, dayHourly []domain.AggregatedHourlyForecast, daysAhead int) domain.AggregatedDailyForecast {
	n := len(models)

	tempMaxes := make([]float64, 0, n)
	tempMins := make([]float64, 0, n)
	humidityMins := make([]float64, 0, n)
	humidityMaxes := make([]float64, 0, n)
	pressureMins := make([]float64, 0, n)
	pressureMaxes := make([]float64, 0, n)
	precipTotals := make([]float64, 0, n)
	precipProbs := make([]float64, 0, n)
	precipHours := make([]float64, 0, n)
	windAvgs := make([]float64, 0, n)
	windMaxes := make([]float64, 0, n)
	windDirs := make([]float64, 0, n)
	cloudAvgs := make([]float64, 0, n)
	cloudMaxes := make([]float64, 0, n)
	uvMaxes := make([]float64, 0, n)
	codes := make([]int, 0, n)

	var sunrise, sunset time.Time
	var daylightSecs float64

	for i, m := range models {
		d := perModel[m]
		tempMaxes = append(tempMaxes, d.TemperatureRange.Max)
		tempMins = append(tempMins, d.TemperatureRange.Min)
		humidityMins = append(humidityMins, d.HumidityRange.Min)
		humidityMaxes = append(humidityMaxes, d.HumidityRange.Max)
		pressureMins = append(pressureMins, d.PressureRange.Min)
		pressureMaxes = append(pressureMaxes, d.PressureRange.Max)
		precipTotals = append(precipTotals, d.Precipitation.TotalMM.Float())
		precipProbs = append(precipProbs, d.Precipitation.Probability.Float())
		precipHours = append(precipHours, d.Precipitation.Hours)
		windAvgs = append(windAvgs, d.Wind.Avg.Float())
		windMaxes = append(windMaxes, d.Wind.Max.Float())
		windDirs = append(windDirs, d.Wind.DominantDirection.Float())
		cloudAvgs = append(cloudAvgs, d.CloudCoverAvg.Float())
		cloudMaxes = append(cloudMaxes, d.CloudCoverMax.Float())
		uvMaxes = append(uvMaxes, d.UVMax.Float())
		codes = append(codes, d.DominantCode.Int())
		if i == 0 {
			sunrise, sunset, daylightSecs = d.Sun.Sunrise, d.Sun.Sunset, d.Sun.DaylightSecs
		}
	}

	tempMaxStats := computeStatistics(tempMaxes)
	precipStats := computeStatistics(precipTotals)
	windStats := computeStatistics(windAvgs)

	// Daily precipitation probability aggregates each model's own reported
	// daily probability (precipitation_probability_max), unlike the hourly
	// consensus metric, which derives a probability from the ensemble's
	// precipitation-amount agreement (spec §4.5).
	precipProbability := mean(precipProbs)

	forecast := domain.DailyForecast{
		Date:             date,
		TemperatureRange: domain.Range{Min: trimmedMean(tempMins), Max: trimmedMean(tempMaxes)},
		HumidityRange:    domain.Range{Min: mean(humidityMins), Max: mean(humidityMaxes)},
		PressureRange:    domain.Range{Min: mean(pressureMins), Max: mean(pressureMaxes)},
		Precipitation: domain.PrecipitationSummary{
			TotalMM:     clampMM(mean(precipTotals)),
			Probability: clampProbability(precipProbability),
			Hours:       mean(precipHours),
		},
		Wind: domain.WindSummary{
			Avg:               clampSpeed(median(windAvgs)),
			Max:               clampSpeed(maxOf(windMaxes)),
			DominantDirection: units.NormalizeDegrees(circularMeanDegrees(windDirs)),
		},
		CloudCoverAvg: clampPercent(mean(cloudAvgs)),
		CloudCoverMax: clampPercent(maxOf(cloudMaxes)),
		UVMax:         clampUV(maxOf(uvMaxes)),
		Sun: domain.SunTimes{
			Sunrise:      sunrise,
			Sunset:       sunset,
			DaylightSecs: daylightSecs,
		},
		DominantCode: units.WeatherCode(plurality(codes)),
	}
	for i := 0; i < 24 && i < len(dayHourly); i++ {
		forecast.Hourly[i] = domain.HourlyForecast{Timestamp: dayHourly[i].Timestamp, Metrics: dayHourly[i].Metrics}
	}

	tempMinMin, _ := rangeOf(tempMins)
	precipMin, precipMax := rangeOf(precipTotals)
	windMin, windMax := rangeOf(windAvgs)
	humMin, humMax := rangeOf(humidityMaxes)

	inAgreement, outliers := classifyOutliers(models, tempMaxes, tempMaxStats, outlierZScore)
	agreementScore := 0.0
	if n > 0 {
		agreementScore = float64(len(inAgreement)) / float64(n)
	}

	consensus := domain.ModelConsensus{
		AgreementScore:    agreementScore,
		ModelsInAgreement: inAgreement,
		OutlierModels:     outliers,
		Temperature:       toDomainStats(tempMaxStats),
		Precipitation:     toDomainStats(precipStats),
		Wind:              toDomainStats(windStats),
	}

	conf := confidence.Score(confidence.Input{
		TemperatureStdevC:        tempMaxStats.Stdev,
		WindRangeKmh:             (windMax - windMin) * 3.6,
		PrecipitationProbability: precipProbability,
		HumidityRangePercent:     humMax - humMin,
		ModelsInAgreement:        len(inAgreement),
		TotalModels:              n,
		DaysAhead:                daysAhead,
	})

	return domain.AggregatedDailyForecast{
		Date:       date,
		Forecast:   forecast,
		Confidence: conf,
		Consensus:  consensus,
		Ranges: domain.MetricRanges{
			Temperature:   domain.Range{Min: tempMinMin, Max: tempMaxStats.Max},
			Precipitation: domain.Range{Min: precipMin, Max: precipMax},
			Wind:          domain.Range{Min: windMin, Max: windMax},
			Humidity:      domain.Range{Min: humMin, Max: humMax},
		},
	}
}
