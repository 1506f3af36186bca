package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/motocraft35/moto-asistan-sub000/internal/shared/geo"
)

// Provider computes a road route between two points.
type Provider interface {
	Route(ctx context.Context, origin, dest geo.Point) (Route, error)
}

// Client consumes an OSRM-compatible road-routing HTTP API.
type Client struct {
	baseURL string
	profile string
	http    *http.Client
}

func NewClient(baseURL, profile string, timeout time.Duration) *Client {
	if profile == "" {
		profile = "driving"
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		profile: profile,
		http:    &http.Client{Timeout: timeout},
	}
}

type osrmResponse struct {
	Code   string      `json:"code"`
	Routes []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry osrmGeometry `json:"geometry"`
	Distance float64      `json:"distance"`
	Duration float64      `json:"duration"`
	Legs     []osrmLeg    `json:"legs"`
}

type osrmGeometry struct {
	Type        string      `json:"type"`
	Coordinates [][]float64 `json:"coordinates"`
}

type osrmLeg struct {
	Steps []osrmStep `json:"steps"`
}

type osrmStep struct {
	Distance float64      `json:"distance"`
	Maneuver osrmManeuver `json:"maneuver"`
}

type osrmManeuver struct {
	Instruction string    `json:"instruction"`
	Modifier    string    `json:"modifier"`
	Location    []float64 `json:"location"`
}

// Route requests full geojson geometry plus step annotations and validates the
// payload at the boundary; anything unexpected is a MalformedResponse.
func (c *Client) Route(ctx context.Context, origin, dest geo.Point) (Route, error) {
	url := fmt.Sprintf("%s/route/v1/%s/%s,%s;%s,%s?overview=full&geometries=geojson&steps=true",
		c.baseURL, c.profile,
		coord(origin.Lng), coord(origin.Lat),
		coord(dest.Lng), coord(dest.Lat))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Route{}, routeError(ProviderUnreachable, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Route{}, routeError(ProviderUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return Route{}, routeError(ProviderUnreachable, fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Route{}, routeError(MalformedResponse, err)
	}

	if payload.Code != "Ok" || resp.StatusCode != http.StatusOK {
		return Route{}, routeError(NoRouteFound, fmt.Errorf("provider code %q", payload.Code))
	}
	if len(payload.Routes) == 0 {
		return Route{}, routeError(NoRouteFound, errors.New("empty routes"))
	}

	return decodeRoute(payload.Routes[0])
}

func decodeRoute(raw osrmRoute) (Route, error) {
	if raw.Geometry.Type != "LineString" || len(raw.Geometry.Coordinates) < 2 {
		return Route{}, routeError(MalformedResponse, errors.New("bad geometry"))
	}

	route := Route{
		DistanceM: raw.Distance,
		DurationS: raw.Duration,
		Geometry:  make([]geo.Point, 0, len(raw.Geometry.Coordinates)),
	}
	for _, pair := range raw.Geometry.Coordinates {
		if len(pair) != 2 {
			return Route{}, routeError(MalformedResponse, errors.New("bad coordinate pair"))
		}
		route.Geometry = append(route.Geometry, geo.Point{Lat: pair[1], Lng: pair[0]})
	}

	if len(raw.Legs) == 0 || len(raw.Legs[0].Steps) == 0 {
		return Route{}, routeError(MalformedResponse, errors.New("missing steps"))
	}
	for _, s := range raw.Legs[0].Steps {
		if len(s.Maneuver.Location) != 2 {
			return Route{}, routeError(MalformedResponse, errors.New("bad maneuver location"))
		}
		route.Steps = append(route.Steps, Step{
			Instruction: s.Maneuver.Instruction,
			Modifier:    parseModifier(s.Maneuver.Modifier),
			DistanceM:   s.Distance,
			Maneuver:    geo.Point{Lat: s.Maneuver.Location[1], Lng: s.Maneuver.Location[0]},
		})
	}
	return route, nil
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
