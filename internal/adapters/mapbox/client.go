// Package mapbox implements geocoding and directions against the Mapbox APIs.
package mapbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/campusride/internal/core/domain"
)

const geocodeLimit = 5

// Client implements ports.Geocoder and ports.DirectionsProvider.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client. timeout bounds every request on top of the caller's
// context.
func New(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type geocodeResponse struct {
	Features []struct {
		ID        string    `json:"id"`
		PlaceName string    `json:"place_name"`
		Text      string    `json:"text"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

// Geocode resolves query into places, biased toward near when given.
func (c *Client) Geocode(ctx context.Context, query string, near *domain.GeoPoint) ([]domain.Place, error) {
	params := url.Values{}
	params.Set("access_token", c.token)
	params.Set("limit", strconv.Itoa(geocodeLimit))
	params.Set("autocomplete", "true")
	if near != nil {
		params.Set("proximity", coord(*near))
	}
	endpoint := fmt.Sprintf("%s/geocoding/v5/mapbox.places/%s.json?%s",
		c.baseURL, url.PathEscape(query), params.Encode())

	var resp geocodeResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("geocode: %w", err)
	}

	places := make([]domain.Place, 0, len(resp.Features))
	for _, f := range resp.Features {
		if len(f.Center) != 2 {
			continue
		}
		name := f.PlaceName
		if name == "" {
			name = f.Text
		}
		places = append(places, domain.Place{
			ID:          f.ID,
			DisplayName: name,
			Location:    domain.GeoPoint{Lat: f.Center[1], Lon: f.Center[0]},
		})
	}
	return places, nil
}

type directionsResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry *geojson.Geometry `json:"geometry"`
		Distance float64           `json:"distance"`
		Duration float64           `json:"duration"`
		Legs     []struct {
			Steps []struct {
				Distance float64 `json:"distance"`
				Maneuver struct {
					Instruction string `json:"instruction"`
				} `json:"maneuver"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// Directions returns the first route Mapbox proposes through waypoints.
func (c *Client) Directions(ctx context.Context, profile string, waypoints []domain.GeoPoint) (*domain.Directions, error) {
	if len(waypoints) < 2 {
		return nil, fmt.Errorf("directions: need at least two waypoints")
	}
	coords := make([]string, len(waypoints))
	for i, p := range waypoints {
		coords[i] = coord(p)
	}

	params := url.Values{}
	params.Set("access_token", c.token)
	params.Set("geometries", "geojson")
	params.Set("overview", "full")
	params.Set("steps", "true")
	endpoint := fmt.Sprintf("%s/directions/v5/mapbox/%s/%s?%s",
		c.baseURL, url.PathEscape(profile), strings.Join(coords, ";"), params.Encode())

	var resp directionsResponse
	if err := c.get(ctx, endpoint, &resp); err != nil {
		return nil, fmt.Errorf("directions: %w", err)
	}
	if resp.Code != "Ok" || len(resp.Routes) == 0 {
		return nil, fmt.Errorf("directions: %s %s", resp.Code, resp.Message)
	}

	r := resp.Routes[0]
	out := &domain.Directions{
		DistanceMeters: r.Distance,
		DurationSec:    r.Duration,
	}
	if r.Geometry != nil {
		if line, ok := r.Geometry.Coordinates.(orb.LineString); ok {
			out.Geometry = line
		}
	}
	for _, leg := range r.Legs {
		for _, s := range leg.Steps {
			out.Steps = append(out.Steps, domain.Step{
				Instruction:    s.Maneuver.Instruction,
				DistanceMeters: s.Distance,
			})
		}
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return redact(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// redact drops the query string, and with it the access token, from transport
// errors that echo the request URL.
func redact(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		if u, perr := url.Parse(ue.URL); perr == nil {
			u.RawQuery = ""
			ue.URL = u.String()
		} else {
			ue.URL = ""
		}
	}
	return err
}

// coord formats p as Mapbox's "lon,lat".
func coord(p domain.GeoPoint) string {
	return strconv.FormatFloat(p.Lon, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lat, 'f', 6, 64)
}
