// Package geocode resolves free-text location queries against Open-Meteo's
// geocoding API. It is grounded on the same column-free, single-JSON-object
// request/decode shape as the Model Client's upstream calls, generalized
// into the full resolve/search contract of spec §4.1.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/wxconsensus/engine/internal/domain"
	"github.com/wxconsensus/engine/internal/errs"
	"github.com/wxconsensus/engine/internal/units"
)

const defaultBaseURL = "https://geocoding-api.open-meteo.com"

const defaultCount = 5

// Client resolves location queries. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient builds a Client. An empty baseURL falls back to the public
// Open-Meteo geocoding API; tests override it to point at an httptest server.
func NewClient(baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		logger:     logger,
	}
}

// Options configures a resolve/search call.
type Options struct {
	Count    int    // 1-10, default 5; ignored by Resolve
	Language string // ISO-639-1, optional
}

type geoResponse struct {
	Results []geoResult `json:"results"`
}

type geoResult struct {
	Name        string   `json:"name"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code"`
	Admin1      string   `json:"admin1"`
	Timezone    string   `json:"timezone"`
	Elevation   *float64 `json:"elevation"`
	Population  *int     `json:"population"`
}

// Resolve returns the first match for query. It is a thin wrapper around
// Search with count=1.
func (c *Client) Resolve(ctx context.Context, query string, opts Options) (domain.GeocodingResult, error) {
	opts.Count = 1
	results, err := c.Search(ctx, query, opts)
	if err != nil {
		return domain.GeocodingResult{}, err
	}
	return results[0], nil
}

// Search returns up to opts.Count matches for query, in upstream relevance
// order.
func (c *Client) Search(ctx context.Context, query string, opts Options) ([]domain.GeocodingResult, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return nil, errs.New(errs.GeocodingInvalidInput, "location query must not be empty")
	}

	count := opts.Count
	if count <= 0 {
		count = defaultCount
	}
	if count > 10 {
		count = 10
	}

	q := url.Values{}
	q.Set("name", trimmed)
	q.Set("count", fmt.Sprintf("%d", count))
	if opts.Language != "" {
		q.Set("language", opts.Language)
	}

	reqURL := c.baseURL + "/v1/search?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errs.Wrap(errs.GeocodingServiceError, "failed to build geocoding request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errs.Wrap(errs.Cancelled, "geocoding request cancelled", ctx.Err())
		}
		return nil, errs.Wrap(errs.GeocodingServiceError, "failed to contact geocoding service", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errs.Wrap(errs.GeocodingServiceError, "failed to read geocoding response", err)
	}
	if resp.StatusCode != http.StatusOK {
		excerpt := string(body)
		if len(excerpt) > 200 {
			excerpt = excerpt[:200]
		}
		return nil, errs.New(errs.GeocodingServiceError, fmt.Sprintf("geocoding service returned status %d: %s", resp.StatusCode, excerpt))
	}

	var raw geoResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		c.logger.Warn("failed to decode geocoding response", zap.Error(err))
		return nil, errs.Wrap(errs.GeocodingServiceError, "failed to decode geocoding response", err)
	}

	if len(raw.Results) == 0 {
		return nil, errs.New(errs.GeocodingNotFound, fmt.Sprintf("no location found matching %q", trimmed))
	}

	out := make([]domain.GeocodingResult, 0, len(raw.Results))
	for _, r := range raw.Results {
		coords, err := domain.NewCoordinates(r.Latitude, r.Longitude)
		if err != nil {
			c.logger.Warn("dropping geocoding result with invalid coordinates",
				zap.String("name", r.Name), zap.Error(err))
			continue
		}
		result := domain.GeocodingResult{
			Name:        r.Name,
			Coordinates: coords,
			Country:     r.Country,
			CountryCode: r.CountryCode,
			Region:      r.Admin1,
			Timezone:    r.Timezone,
			Population:  r.Population,
		}
		if r.Elevation != nil {
			if m, err := units.NewMeters(*r.Elevation); err == nil {
				result.Elevation = &m
			}
		}
		out = append(out, result)
	}

	if len(out) == 0 {
		return nil, errs.New(errs.GeocodingNotFound, fmt.Sprintf("no location found matching %q", trimmed))
	}

	if len(out) > count {
		out = out[:count]
	}
	return out, nil
}
