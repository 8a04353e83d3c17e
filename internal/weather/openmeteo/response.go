package openmeteo

// rawResponse mirrors Open-Meteo's column-oriented payload: parallel arrays
// keyed by variable name, zipped by index against the matching time array.
// Each field is decoded as its own typed column before any row is built, per
// the column-then-zip approach the design notes call for.
type rawResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Error     bool    `json:"error"`
	Reason    string  `json:"reason"`

	Hourly struct {
		Time                     []string   `json:"time"`
		Temperature2m            []*float64 `json:"temperature_2m"`
		ApparentTemperature      []*float64 `json:"apparent_temperature"`
		RelativeHumidity2m       []*float64 `json:"relative_humidity_2m"`
		SurfacePressure          []*float64 `json:"surface_pressure"`
		WindSpeed10m             []*float64 `json:"wind_speed_10m"`
		WindDirection10m         []*float64 `json:"wind_direction_10m"`
		WindGusts10m             []*float64 `json:"wind_gusts_10m"`
		Precipitation            []*float64 `json:"precipitation"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		CloudCover               []*float64 `json:"cloud_cover"`
		Visibility               []*float64 `json:"visibility"`
		UVIndex                  []*float64 `json:"uv_index"`
		WeatherCode              []*int     `json:"weather_code"`
	} `json:"hourly"`

	Daily struct {
		Time                      []string   `json:"time"`
		Temperature2mMax          []*float64 `json:"temperature_2m_max"`
		Temperature2mMin          []*float64 `json:"temperature_2m_min"`
		ApparentTemperatureMax    []*float64 `json:"apparent_temperature_max"`
		ApparentTemperatureMin    []*float64 `json:"apparent_temperature_min"`
		PrecipitationSum          []*float64 `json:"precipitation_sum"`
		PrecipitationProbability  []*float64 `json:"precipitation_probability_max"`
		PrecipitationHours        []*float64 `json:"precipitation_hours"`
		WindSpeed10mMax           []*float64 `json:"wind_speed_10m_max"`
		WindGusts10mMax           []*float64 `json:"wind_gusts_10m_max"`
		WindDirection10mDominant  []*float64 `json:"wind_direction_10m_dominant"`
		Sunrise                   []string   `json:"sunrise"`
		Sunset                    []string   `json:"sunset"`
		DaylightDuration          []*float64 `json:"daylight_duration"`
		UVIndexMax                []*float64 `json:"uv_index_max"`
		WeatherCode               []*int     `json:"weather_code"`
	} `json:"daily"`
}
