// Package units wraps the canonical measurements the engine passes between
// components in distinct, non-interchangeable types. Arithmetic across
// brands (adding a Celsius to a MetersPerSecond, say) does not compile;
// conversions must go through an explicit accessor. Every range-constrained
// constructor validates its range and returns an *errs.Error{Kind: errs.InvalidInput}
// on failure rather than a bare bool/error pair, so callers can propagate it
// unchanged per spec §7.
package units

import (
	"fmt"
	"math"

	"github.com/wxconsensus/engine/internal/errs"
)

// Celsius is a temperature in degrees Celsius. No hard range limit applies;
// Earth's surface air temperature record is well inside float64 precision,
// so construction never fails.
type Celsius float64

func NewCelsius(v float64) Celsius { return Celsius(v) }

func (c Celsius) Float() float64 { return float64(c) }

// Millimeters is a non-negative precipitation depth.
type Millimeters float64

func NewMillimeters(v float64) (Millimeters, error) {
	if v < 0 {
		return 0, errs.New(errs.InvalidInput, fmt.Sprintf("precipitation %.3fmm must be >= 0", v))
	}
	return Millimeters(v), nil
}

func (m Millimeters) Float() float64 { return float64(m) }

// MetersPerSecond is a non-negative wind speed.
type MetersPerSecond float64

func NewMetersPerSecond(v float64) (MetersPerSecond, error) {
	if v < 0 {
		return 0, errs.New(errs.InvalidInput, fmt.Sprintf("wind speed %.3fm/s must be >= 0", v))
	}
	return MetersPerSecond(v), nil
}

func (w MetersPerSecond) Float() float64 { return float64(w) }
func (w MetersPerSecond) KmH() float64   { return float64(w) * 3.6 }

// Degrees is a compass direction normalized to [0, 360).
type Degrees float64

func NewDegrees(v float64) (Degrees, error) {
	if v < 0 || v >= 360 {
		return 0, errs.New(errs.InvalidInput, fmt.Sprintf("direction %.3f must be in [0, 360)", v))
	}
	return Degrees(v), nil
}

// NormalizeDegrees folds any real-valued angle into [0, 360) without
// rejecting it; used after circular-mean arithmetic where the result is
// arithmetically guaranteed in range modulo floating point, not user input.
func NormalizeDegrees(v float64) Degrees {
	v = math.Mod(v, 360)
	if v < 0 {
		v += 360
	}
	return Degrees(v)
}

func (d Degrees) Float() float64 { return float64(d) }

// Percent is a value in [0, 100], used for humidity and cloud cover.
type Percent float64

func NewPercent(v float64) (Percent, error) {
	if v < 0 || v > 100 {
		return 0, errs.New(errs.InvalidInput, fmt.Sprintf("percent %.3f must be in [0, 100]", v))
	}
	return Percent(v), nil
}

func (p Percent) Float() float64 { return float64(p) }

// Probability is a value in [0, 1], used for precipitation probability.
type Probability float64

func NewProbability(v float64) (Probability, error) {
	if v < 0 || v > 1 {
		return 0, errs.New(errs.InvalidInput, fmt.Sprintf("probability %.3f must be in [0, 1]", v))
	}
	return Probability(v), nil
}

func (p Probability) Float() float64 { return float64(p) }

// HectoPascals is barometric pressure.
type HectoPascals float64

func NewHectoPascals(v float64) HectoPascals { return HectoPascals(v) }

func (h HectoPascals) Float() float64 { return float64(h) }

// Meters is a non-negative distance, used for visibility and elevation.
type Meters float64

func NewMeters(v float64) (Meters, error) {
	if v < 0 {
		return 0, errs.New(errs.InvalidInput, fmt.Sprintf("meters %.3f must be >= 0", v))
	}
	return Meters(v), nil
}

func (m Meters) Float() float64 { return float64(m) }

// UVIndex is a non-negative, unitless UV exposure index.
type UVIndex float64

func NewUVIndex(v float64) (UVIndex, error) {
	if v < 0 {
		return 0, errs.New(errs.InvalidInput, fmt.Sprintf("uv index %.3f must be >= 0", v))
	}
	return UVIndex(v), nil
}

func (u UVIndex) Float() float64 { return float64(u) }

// WeatherCode is a WMO weather condition code (see GLOSSARY). Open-Meteo
// only ever emits the documented subset of the WMO table, so range
// validation is deliberately loose: any non-negative integer is accepted.
type WeatherCode int

func NewWeatherCode(v int) (WeatherCode, error) {
	if v < 0 {
		return 0, errs.New(errs.InvalidInput, fmt.Sprintf("weather code %d must be >= 0", v))
	}
	return WeatherCode(v), nil
}

func (w WeatherCode) Int() int { return int(w) }

// Latitude is a value in [-90, 90].
type Latitude float64

func NewLatitude(v float64) (Latitude, error) {
	if v < -90 || v > 90 {
		return 0, errs.New(errs.InvalidInput, fmt.Sprintf("latitude %.6f must be in [-90, 90]", v))
	}
	return Latitude(v), nil
}

func (l Latitude) Float() float64 { return float64(l) }

// Longitude is a value in [-180, 180].
type Longitude float64

func NewLongitude(v float64) (Longitude, error) {
	if v < -180 || v > 180 {
		return 0, errs.New(errs.InvalidInput, fmt.Sprintf("longitude %.6f must be in [-180, 180]", v))
	}
	return Longitude(v), nil
}

func (l Longitude) Float() float64 { return float64(l) }
