package geocoding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"solarintake/internal/geodesy"
	"solarintake/internal/lookup/providers"
)

const ProviderID = "nominatim"

// NominatimClient queries a Nominatim-compatible search endpoint and uses the
// first ranked candidate.
type NominatimClient struct {
	baseURL      string
	userAgent    string
	countryCodes string
	http         providers.HTTPDoer
}

func NewNominatimClient(baseURL, userAgent, countryCodes string, timeout time.Duration) *NominatimClient {
	return &NominatimClient{
		baseURL:      strings.TrimRight(baseURL, "/"),
		userAgent:    userAgent,
		countryCodes: countryCodes,
		http:         providers.NewHTTPClient(timeout),
	}
}

func (c *NominatimClient) WithHTTPClient(doer providers.HTTPDoer) *NominatimClient {
	c.http = doer
	return c
}

func (c *NominatimClient) Search(ctx context.Context, query string) (geodesy.Coordinate, error) {
	params := url.Values{}
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("q", query)
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}

	status, body, err := providers.Get(ctx, c.http, ProviderID, c.baseURL+"/search?"+params.Encode(), c.userAgent)
	if err != nil {
		return geodesy.Coordinate{}, err
	}
	return parseSearchResponse(status, body)
}

type candidate struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

func parseSearchResponse(status int, body []byte) (geodesy.Coordinate, error) {
	if status != http.StatusOK {
		return geodesy.Coordinate{}, providers.ClassifyStatus(ProviderID, status)
	}
	var candidates []candidate
	if err := json.Unmarshal(body, &candidates); err != nil {
		return geodesy.Coordinate{}, providers.NewProviderError(providers.ErrorBadData, ProviderID, "decode response", err)
	}
	if len(candidates) == 0 {
		return geodesy.Coordinate{}, providers.NewProviderError(providers.ErrorNotFound, ProviderID, "no match", nil)
	}

	lat, err := strconv.ParseFloat(candidates[0].Lat, 64)
	if err != nil {
		return geodesy.Coordinate{}, providers.NewProviderError(providers.ErrorBadData, ProviderID, "parse lat", err)
	}
	lon, err := strconv.ParseFloat(candidates[0].Lon, 64)
	if err != nil {
		return geodesy.Coordinate{}, providers.NewProviderError(providers.ErrorBadData, ProviderID, "parse lon", err)
	}
	coord := geodesy.Coordinate{Latitude: lat, Longitude: lon}
	if err := coord.Validate(); err != nil {
		return geodesy.Coordinate{}, providers.NewProviderError(providers.ErrorBadData, ProviderID, "coordinate out of range", err)
	}
	return coord, nil
}
