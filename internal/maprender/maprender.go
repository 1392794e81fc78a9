// Package maprender produces a static route image embedded in quote documents.
package maprender

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Simplici0/charterquote/internal/geo"
)

// maxImageBytes bounds the upstream payload.
const maxImageBytes = 4 << 20

// Renderer draws a route and returns it as a data URL. An empty string with
// a nil error means there was nothing to draw.
type Renderer interface {
	Render(ctx context.Context, points []geo.Point) (string, error)
}

// Noop never draws anything.
type Noop struct{}

// Render implements Renderer.
func (Noop) Render(context.Context, []geo.Point) (string, error) { return "", nil }

// StaticMap renders through a static map tile service. The request carries
// the route as path=lat,lng|lat,lng|... plus size, and the service answers
// with an image.
type StaticMap struct {
	BaseURL string
	Width   int
	Height  int
	Client  *http.Client
}

// NewStaticMap returns a renderer sized for an A4 document column.
func NewStaticMap(baseURL string) *StaticMap {
	return &StaticMap{
		BaseURL: baseURL,
		Width:   1024,
		Height:  512,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// RequestURL builds the upstream URL for points.
func (s *StaticMap) RequestURL(points []geo.Point) (string, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parse map url: %w", err)
	}
	path := make([]string, len(points))
	for i, p := range points {
		path[i] = strconv.FormatFloat(p.Lat, 'f', 6, 64) + "," + strconv.FormatFloat(p.Lng, 'f', 6, 64)
	}
	q := u.Query()
	q.Set("path", strings.Join(path, "|"))
	q.Set("size", fmt.Sprintf("%dx%d", s.Width, s.Height))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Render implements Renderer. Fewer than two points yield no image.
func (s *StaticMap) Render(ctx context.Context, points []geo.Point) (string, error) {
	if len(points) < 2 {
		return "", nil
	}
	if s.BaseURL == "" {
		return "", errors.New("map renderer has no base url")
	}
	u, err := s.RequestURL(points)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create map request: %w", err)
	}
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch map: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch map: unexpected status %d", resp.StatusCode)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("fetch map: unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read map: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", errors.New("read map: image too large")
	}
	return DataURL(mediaType, data), nil
}

// DataURL encodes data as a base64 data URL.
func DataURL(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
