package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/contactdesk/contactdesk/internal/contact"
)

// Geocode status values stored on records.
const (
	GeoSuccess  = "success"
	GeoNotFound = "not_found"
	GeoError    = "error"
)

// GeocodeProvider resolves a record's street address to coordinates using a
// BAN-style address API (GeoJSON FeatureCollection responses).
type GeocodeProvider struct {
	BaseURL string
	client  *http.Client
}

func NewGeocodeProvider(baseURL string, timeout time.Duration) *GeocodeProvider {
	return &GeocodeProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
	}
}

func (p *GeocodeProvider) Kind() Kind { return KindGeocode }

// Skip passes over records that already have coordinates or no address at
// all to geocode.
func (p *GeocodeProvider) Skip(c *contact.Contact) bool {
	if c.HasGeo() {
		return true
	}
	return c.Address == "" && c.City == "" && c.PostalCode == ""
}

type geocodeResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"` // [lon, lat]
		} `json:"geometry"`
	} `json:"features"`
}

func (p *GeocodeProvider) Enrich(ctx context.Context, c *contact.Contact) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	q := url.Values{}
	q.Set("q", strings.TrimSpace(c.Address+" "+c.City))
	q.Set("limit", "1")
	if c.PostalCode != "" {
		q.Set("postcode", c.PostalCode)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return false, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		c.GeoStatus = GeoError
		return true, nil
	}
	defer resp.Body.Close()

	var decoded geocodeResponse
	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	} else {
		err = json.NewDecoder(resp.Body).Decode(&decoded)
	}
	if err != nil {
		c.GeoStatus = GeoError
		return true, nil
	}

	if len(decoded.Features) == 0 || len(decoded.Features[0].Geometry.Coordinates) < 2 {
		c.GeoStatus = GeoNotFound
		return true, nil
	}

	coords := decoded.Features[0].Geometry.Coordinates
	lon, lat := coords[0], coords[1]
	c.Lon = &lon
	c.Lat = &lat
	c.GeoStatus = GeoSuccess
	return true, nil
}
