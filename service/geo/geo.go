package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/coraldao/vote-wallet/core"
	lru "github.com/hashicorp/golang-lru/v2"
)

type Config struct {
	BaseURL string `valid:"url,required"`
}

func New(cfg Config) core.GeoService {
	if _, err := govalidator.ValidateStruct(cfg); err != nil {
		panic(err)
	}

	cache, err := lru.New[string, core.Location](256)
	if err != nil {
		panic(err)
	}

	return &service{
		client:  &http.Client{Timeout: 10 * time.Second},
		baseURL: cfg.BaseURL,
		cache:   cache,
	}
}

type service struct {
	client  *http.Client
	baseURL string
	cache   *lru.Cache[string, core.Location]
}

type geocodeResponse struct {
	Status    string  `json:"status"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// Geocode resolves query to coordinates, caching results; map centers
// repeat heavily while the user pans.
func (s *service) Geocode(ctx context.Context, query string) (core.Location, error) {
	if loc, ok := s.cache.Get(query); ok {
		return loc, nil
	}

	u := fmt.Sprintf("%s/geocode?q=%s", s.baseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return core.Location{}, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return core.Location{}, fmt.Errorf("geocode %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return core.Location{}, fmt.Errorf("geocode %q: unexpected status %d", query, resp.StatusCode)
	}

	var body geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return core.Location{}, fmt.Errorf("decode geocode response: %w", err)
	}

	if body.Status != "success" {
		return core.Location{}, fmt.Errorf("geocode %q failed: %s", query, body.Status)
	}

	loc := core.Location{Latitude: body.Latitude, Longitude: body.Longitude}
	s.cache.Add(query, loc)

	return loc, nil
}
