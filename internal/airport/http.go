package airport

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Simplici0/charterquote/internal/geo"
)

// HTTPResolver queries an airportdb.io style endpoint:
// GET {BaseURL}/{ICAO}?apiToken={Token}.
type HTTPResolver struct {
	BaseURL string
	Token   string
	Client  *http.Client
}

// NewHTTPResolver returns a resolver with a bounded HTTP client.
func NewHTTPResolver(baseURL, token string) *HTTPResolver {
	return &HTTPResolver{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// coordinates arrive as numbers or as strings depending on the record
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type airportResponse struct {
	ICAO      string     `json:"icao_code"`
	Ident     string     `json:"ident"`
	Name      string     `json:"name"`
	Latitude  *flexFloat `json:"latitude_deg"`
	Longitude *flexFloat `json:"longitude_deg"`
}

// Resolve implements Resolver.
func (h *HTTPResolver) Resolve(ctx context.Context, code string) (geo.Point, error) {
	c, err := NormalizeCode(code)
	if err != nil {
		return geo.Point{}, err
	}

	u := h.BaseURL + "/" + url.PathEscape(c)
	if h.Token != "" {
		u += "?apiToken=" + url.QueryEscape(h.Token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return geo.Point{}, &LookupError{Code: c, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return geo.Point{}, &LookupError{Code: c, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return geo.Point{}, &LookupError{Code: c, Err: ErrUnknownAirport}
	case resp.StatusCode != http.StatusOK:
		return geo.Point{}, &LookupError{Code: c, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	var body airportResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return geo.Point{}, &LookupError{Code: c, Err: fmt.Errorf("decode response: %w", err)}
	}
	if body.Latitude == nil || body.Longitude == nil {
		return geo.Point{}, &LookupError{Code: c, Err: ErrUnknownAirport}
	}
	p := geo.Point{Lat: float64(*body.Latitude), Lng: float64(*body.Longitude)}
	if !validPoint(p) {
		return geo.Point{}, &LookupError{Code: c, Err: fmt.Errorf("coordinates %v,%v out of range: %w", p.Lat, p.Lng, ErrUnknownAirport)}
	}
	return p, nil
}

// validPoint rejects NaN and out of range coordinates.
func validPoint(p geo.Point) bool {
	return math.Abs(p.Lat) <= 90 && math.Abs(p.Lng) <= 180
}
