package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/contactdesk/contactdesk/internal/contact"
)

// Route status values stored on records.
const (
	RouteSuccess = "success"
	RouteNoRoute = "no_route"
	RouteError   = "error"
)

// StartPoint is the configured origin for route calculations.
type StartPoint struct {
	Lat float64
	Lon float64
}

// ParseStartPoint reads a "lat,lon" settings value.
func ParseStartPoint(s string) (StartPoint, error) {
	parts := strings.Split(strings.TrimSpace(s), ",")
	if len(parts) != 2 {
		return StartPoint{}, fmt.Errorf("start point must be \"lat,lon\", got %q", s)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return StartPoint{}, fmt.Errorf("invalid start latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return StartPoint{}, fmt.Errorf("invalid start longitude: %w", err)
	}
	return StartPoint{Lat: lat, Lon: lon}, nil
}

// RouteProvider computes driving distance and duration from the configured
// start point to each record's coordinates against an OSRM-style endpoint.
type RouteProvider struct {
	BaseURL string
	Start   StartPoint
	client  *http.Client
}

func NewRouteProvider(baseURL string, start StartPoint, timeout time.Duration) *RouteProvider {
	return &RouteProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Start:   start,
		client:  newHTTPClient(timeout),
	}
}

func (p *RouteProvider) Kind() Kind { return KindRoute }

// Skip passes over records without coordinates (geocode them first) and
// records that already have a route.
func (p *RouteProvider) Skip(c *contact.Contact) bool {
	if !c.HasGeo() {
		return true
	}
	return c.DistanceMeters != nil && c.DurationSeconds != nil
}

type routeResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"` // meters
		Duration float64 `json:"duration"` // seconds
	} `json:"routes"`
}

func (p *RouteProvider) Enrich(ctx context.Context, c *contact.Contact) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	u := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=false",
		p.BaseURL, p.Start.Lon, p.Start.Lat, *c.Lon, *c.Lat)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.RouteStatus = RouteError
		return true, nil
	}
	defer resp.Body.Close()

	var decoded routeResponse
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("router returned status %d", resp.StatusCode)
	} else {
		err = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	if err != nil {
		c.RouteStatus = RouteError
		return true, nil
	}

	if decoded.Code != "Ok" || len(decoded.Routes) == 0 {
		c.RouteStatus = RouteNoRoute
		return true, nil
	}

	c.DistanceMeters = &decoded.Routes[0].Distance
	c.DurationSeconds = &decoded.Routes[0].Duration
	c.RouteStatus = RouteSuccess
	return true, nil
}
