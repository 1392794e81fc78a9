// Package airport resolves ICAO codes to coordinates.
package airport

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Simplici0/charterquote/internal/geo"
	"github.com/Simplici0/charterquote/internal/logging"
)

// ErrInvalidCode is returned for codes that are not four letters or digits.
var ErrInvalidCode = errors.New("invalid ICAO code")

// ErrUnknownAirport is returned when a resolver has no coordinates for a code.
var ErrUnknownAirport = errors.New("unknown airport")

// Resolver maps an ICAO code to a point.
type Resolver interface {
	Resolve(ctx context.Context, code string) (geo.Point, error)
}

// LookupError wraps why a single code could not be resolved.
type LookupError struct {
	Code string
	Err  error
}

func (e *LookupError) Error() string {
	return "airport " + e.Code + ": " + e.Err.Error()
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// NormalizeCode upper-cases and trims code and checks its shape.
func NormalizeCode(code string) (string, error) {
	c := strings.ToUpper(strings.TrimSpace(code))
	if len(c) != 4 {
		return "", &LookupError{Code: c, Err: ErrInvalidCode}
	}
	for i := 0; i < len(c); i++ {
		ch := c[i]
		if (ch < 'A' || ch > 'Z') && (ch < '0' || ch > '9') {
			return "", &LookupError{Code: c, Err: ErrInvalidCode}
		}
	}
	return c, nil
}

// ResolvedPoint is one code of a route and its coordinates.
type ResolvedPoint struct {
	Code  string    `json:"code"`
	Point geo.Point `json:"point"`
}

// ResolveRoute resolves codes in order. Codes that fail are logged and left
// out; the remaining points keep their relative order.
func ResolveRoute(ctx context.Context, r Resolver, codes []string, log *zap.SugaredLogger) []ResolvedPoint {
	log = logging.OrNop(log)
	out := make([]ResolvedPoint, 0, len(codes))
	for _, code := range codes {
		p, err := r.Resolve(ctx, code)
		if err != nil {
			log.Infow("skip unresolved airport", "code", code, "error", err)
			continue
		}
		out = append(out, ResolvedPoint{Code: strings.ToUpper(strings.TrimSpace(code)), Point: p})
	}
	return out
}

// Points strips the codes from a resolved route.
func Points(route []ResolvedPoint) []geo.Point {
	pts := make([]geo.Point, len(route))
	for i, rp := range route {
		pts[i] = rp.Point
	}
	return pts
}

// StaticResolver answers from a fixed table.
type StaticResolver map[string]geo.Point

// Resolve implements Resolver.
func (s StaticResolver) Resolve(_ context.Context, code string) (geo.Point, error) {
	c, err := NormalizeCode(code)
	if err != nil {
		return geo.Point{}, err
	}
	p, ok := s[c]
	if !ok {
		return geo.Point{}, &LookupError{Code: c, Err: ErrUnknownAirport}
	}
	return p, nil
}

func (s StaticResolver) String() string {
	return fmt.Sprintf("static(%d airports)", len(s))
}
