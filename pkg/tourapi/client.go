// Package tourapi is the typed client for the tour backend: theme suggestions,
// guardrail validation, tour generation status, and narration synthesis.
package tourapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/paulmach/orb"
	"github.com/uber/h3-go/v4"

	"tourflow/pkg/model"
	"tourflow/pkg/request"
)

// ErrRequestRejected is returned when the guardrail declines a tour request.
// This is terminal for the session.
var ErrRequestRejected = errors.New("tour request rejected by guardrail")

// Client talks to the tour backend.
type Client struct {
	base     string
	http     *request.Client
	cacheRes int
}

// New creates a new backend client. cacheRes is the H3 resolution used to
// bucket coordinates into suggestion cache keys.
func New(baseURL string, httpClient *request.Client, cacheRes int) *Client {
	return &Client{base: baseURL, http: httpClient, cacheRes: cacheRes}
}

// HealthCheck verifies the backend is reachable. Used by startup probes.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.http.Get(ctx, c.base+"/health", ""); err != nil {
		return fmt.Errorf("backend unreachable: %w", err)
	}
	return nil
}

// ThemeOptions fetches theme suggestions for a position or address.
// Coordinate-based requests are cached per H3 cell so nearby sessions share a
// cached response.
func (c *Client) ThemeOptions(ctx context.Context, req ThemeOptionsRequest) (*ThemeOptionsResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode theme request: %w", err)
	}

	cacheKey := ""
	if req.UseCoordinates && req.Latitude != nil && req.Longitude != nil {
		cacheKey = c.suggestionCacheKey(*req.Latitude, *req.Longitude)
	}

	raw, err := c.http.Post(ctx, c.base+"/theme_options", body, cacheKey)
	if err != nil {
		return nil, fmt.Errorf("theme options request failed: %w", err)
	}

	var resp ThemeOptionsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode theme response: %w", err)
	}
	return &resp, nil
}

// suggestionCacheKey buckets a coordinate into an H3 cell identifier.
// Falls back to empty (no caching) if the coordinate cannot be indexed.
func (c *Client) suggestionCacheKey(lat, lng float64) string {
	cell, err := h3.LatLngToCell(h3.NewLatLng(lat, lng), c.cacheRes)
	if err != nil {
		slog.Debug("Suggest: H3 cell lookup failed, skipping cache", "lat", lat, "lng", lng, "error", err)
		return ""
	}
	return "themes:" + cell.String()
}

// Guardrail validates a tour request. A negative verdict returns
// ErrRequestRejected; a positive one returns the transaction id.
func (c *Client) Guardrail(ctx context.Context, constraints Constraints) (string, error) {
	body, err := json.Marshal(GuardrailRequest{Constraints: constraints})
	if err != nil {
		return "", fmt.Errorf("failed to encode guardrail request: %w", err)
	}

	raw, err := c.http.Post(ctx, c.base+"/guardrail", body, "")
	if err != nil {
		return "", fmt.Errorf("guardrail request failed: %w", err)
	}

	var resp GuardrailResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", fmt.Errorf("failed to decode guardrail response: %w", err)
	}
	if !resp.Valid {
		return "", ErrRequestRejected
	}
	return resp.TransactionID, nil
}

// Tour fetches the current generation state of a tour by id.
func (c *Client) Tour(ctx context.Context, id string) (*model.Tour, error) {
	raw, err := c.http.Get(ctx, c.base+"/tour/"+url.PathEscape(id), "")
	if err != nil {
		return nil, fmt.Errorf("tour status request failed: %w", err)
	}

	var wire tourWire
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode tour response: %w", err)
	}
	return wire.toModel(), nil
}

// GeneratePOI asks the backend for candidate POIs (manual flow).
func (c *Client) GeneratePOI(ctx context.Context, req GeneratePOIRequest) (*GeneratePOIResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode poi request: %w", err)
	}

	raw, err := c.http.Post(ctx, c.base+"/generate_poi", body, "")
	if err != nil {
		return nil, fmt.Errorf("poi generation request failed: %w", err)
	}

	var resp GeneratePOIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode poi response: %w", err)
	}
	return &resp, nil
}

// FilterPOI verifies candidate POIs against the places registry.
func (c *Client) FilterPOI(ctx context.Context, pois []CandidatePOI) (*FilterPOIResponse, error) {
	body, err := json.Marshal(FilterPOIRequest{POIs: pois})
	if err != nil {
		return nil, fmt.Errorf("failed to encode filter request: %w", err)
	}

	raw, err := c.http.Post(ctx, c.base+"/filter_poi", body, "")
	if err != nil {
		return nil, fmt.Errorf("poi filter request failed: %w", err)
	}

	var resp FilterPOIResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode filter response: %w", err)
	}
	return &resp, nil
}

func gpsPoint(lat, lng float64) orb.Point {
	return orb.Point{lng, lat}
}
