package geocode

import (
	"context"
	"fmt"
	"time"

	"Noesis/internal/service/ratelimit"
	"Noesis/pkg/cache"
	httpclient "Noesis/pkg/http"
)

const (
	cacheKeyFormat = "geocode:%.3f:%.3f"
	cacheTTL       = 7 * 24 * time.Hour
)

// Nominatim reverse-geocodes centroids through the OSM Nominatim API.
// Results are cached with coordinates rounded to three decimals (about 110 m)
// so nearby centroids share an entry. The limiter enforces the public API's
// one request per second policy; when throttled the lookup returns an error
// and the caller falls back to a coordinate label instead of waiting.
type Nominatim struct {
	client    *httpclient.Client
	baseURL   string
	userAgent string
	cache     cache.Service
	limiter   *ratelimit.Limiter
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		Suburb  string `json:"suburb"`
		County  string `json:"county"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
}

func NewNominatim(client *httpclient.Client, baseURL, userAgent string, cacheSvc cache.Service, limiter *ratelimit.Limiter) *Nominatim {
	if baseURL == "" {
		baseURL = "https://nominatim.openstreetmap.org"
	}
	if userAgent == "" {
		userAgent = "noesis/1.0"
	}
	return &Nominatim{
		client:    client,
		baseURL:   baseURL,
		userAgent: userAgent,
		cache:     cacheSvc,
		limiter:   limiter,
	}
}

// PlaceName resolves coordinates to a short place name, preferring the most
// specific populated-place field the response carries.
func (n *Nominatim) PlaceName(ctx context.Context, lat, lng float64) (string, error) {
	key := fmt.Sprintf(cacheKeyFormat, lat, lng)

	if n.cache != nil {
		var cached string
		if err := n.cache.Get(ctx, key, &cached); err == nil && cached != "" {
			return cached, nil
		}
	}

	if n.limiter != nil && !n.limiter.Allow("nominatim", 1, 1) {
		return "", fmt.Errorf("geocode throttled")
	}

	var resp nominatimResponse
	err := n.client.SendAndParse(ctx, &httpclient.RequestOptions{
		Method: httpclient.MethodGet,
		URL:    n.baseURL + "/reverse",
		Headers: map[string]string{
			"User-Agent": n.userAgent,
		},
		QueryParams: map[string][]string{
			"lat":    {fmt.Sprintf("%f", lat)},
			"lon":    {fmt.Sprintf("%f", lng)},
			"format": {"json"},
			"zoom":   {"14"},
		},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("nominatim reverse: %w", err)
	}

	name := pickName(resp)
	if name == "" {
		return "", fmt.Errorf("nominatim: no name for (%.3f, %.3f)", lat, lng)
	}

	if n.cache != nil {
		_ = n.cache.Set(ctx, key, name, cacheTTL)
	}
	return name, nil
}

func pickName(resp nominatimResponse) string {
	addr := resp.Address
	for _, candidate := range []string{addr.City, addr.Town, addr.Village, addr.Suburb, addr.County, addr.State} {
		if candidate != "" {
			return candidate
		}
	}
	return resp.DisplayName
}
