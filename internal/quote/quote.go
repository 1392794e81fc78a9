// Package quote holds the plain configuration produced by the quote form and
// the frozen snapshots built from it.
package quote

import (
	"strings"

	"github.com/Simplici0/charterquote/internal/pricing"
	"github.com/Simplici0/charterquote/internal/units"
)

// Flags selects which sections appear in generated documents. A nil flag
// means "not set" and falls back to the next source, then to true.
type Flags struct {
	Route        *bool `json:"route,omitempty"`
	Aircraft     *bool `json:"aircraft,omitempty"`
	Tariff       *bool `json:"tariff,omitempty"`
	Distance     *bool `json:"distance,omitempty"`
	Dates        *bool `json:"dates,omitempty"`
	Adjustment   *bool `json:"adjustment,omitempty"`
	Commission   *bool `json:"commission,omitempty"`
	Observations *bool `json:"observations,omitempty"`
	Payment      *bool `json:"payment,omitempty"`
	Map          *bool `json:"map,omitempty"`
}

// State is one quote as entered on the form.
type State struct {
	AircraftID    string   `json:"aircraftId"`
	Origin        string   `json:"origin"`
	Destination   string   `json:"destination"`
	Stops         []string `json:"stops,omitempty"`
	DepartureDate string   `json:"departureDate,omitempty"`
	ReturnDate    string   `json:"returnDate,omitempty"`
	ClientName    string   `json:"clientName,omitempty"`
	Observations  string   `json:"observations,omitempty"`
	PaymentTerms  string   `json:"paymentTerms,omitempty"`

	DistanceNm float64 `json:"distanceNm"`
	DistanceKm float64 `json:"distanceKm,omitempty"`
	RatePerKm  float64 `json:"ratePerKm"`

	HourlyRate         float64       `json:"hourlyRate,omitempty"`
	CruiseSpeedKt      float64       `json:"cruiseSpeedKt,omitempty"`
	Legs               []pricing.Leg `json:"legs,omitempty"`
	WindPercent        float64       `json:"windPercent,omitempty"`
	TaxiMinutes        float64       `json:"taxiMinutes,omitempty"`
	MinBillableMinutes float64       `json:"minBillableMinutes,omitempty"`

	AdjustmentAmount float64              `json:"adjustmentAmount,omitempty"`
	AdjustmentKind   units.AdjustmentKind `json:"adjustmentKind,omitempty"`
	Commissions      []float64            `json:"commissions,omitempty"`
	FlatCommission   float64              `json:"flatCommission,omitempty"`

	Flags Flags `json:"flags"`
}

// ResolvedKm returns the trip distance in kilometers: an explicit kilometer
// value wins, then nautical miles are converted, else 0.
func (s State) ResolvedKm() float64 {
	if km := units.Finite(s.DistanceKm); km > 0 {
		return km
	}
	if nm := units.Finite(s.DistanceNm); nm > 0 {
		return units.NmToKm(nm)
	}
	return 0
}

// ResolvedNm is ResolvedKm expressed in nautical miles.
func (s State) ResolvedNm() float64 {
	return units.KmToNm(s.ResolvedKm())
}

// RouteCodes returns origin, destination and then the stops, skipping blanks.
func (s State) RouteCodes() []string {
	codes := make([]string, 0, 2+len(s.Stops))
	for _, c := range append([]string{s.Origin, s.Destination}, s.Stops...) {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}

// Aircraft carries the effective performance figures used for time pricing.
type Aircraft struct {
	ID            string
	Name          string
	CruiseSpeedKt float64
	HourlyRate    float64
}

// Results are both pricing methods computed for one State.
type Results struct {
	Distance *pricing.Result `json:"distance,omitempty"`
	Time     *pricing.Result `json:"time,omitempty"`
}

// Compute prices s with both methods. The aircraft's effective cruise speed
// and hourly rate are used when s leaves them at zero. The time method is
// only produced when a cruise speed is known.
func Compute(s State, ac Aircraft, commission pricing.CommissionFunc) Results {
	nm := s.ResolvedNm()

	distance := pricing.Distance(pricing.DistanceInput{
		DistanceNm:       nm,
		RatePerKm:        s.RatePerKm,
		AdjustmentAmount: s.AdjustmentAmount,
		AdjustmentKind:   s.AdjustmentKind,
		Commissions:      s.Commissions,
		FlatCommission:   s.FlatCommission,
	}, commission)
	res := Results{Distance: &distance}

	speed := s.CruiseSpeedKt
	if speed <= 0 {
		speed = ac.CruiseSpeedKt
	}
	rate := s.HourlyRate
	if rate <= 0 {
		rate = ac.HourlyRate
	}
	if units.Finite(speed) <= 0 {
		return res
	}

	t := pricing.Time(pricing.TimeInput{
		DistanceNm:         nm,
		CruiseSpeedKt:      speed,
		HourlyRate:         rate,
		Legs:               s.Legs,
		WindPercent:        s.WindPercent,
		TaxiMinutes:        s.TaxiMinutes,
		MinBillableMinutes: s.MinBillableMinutes,
		AdjustmentAmount:   s.AdjustmentAmount,
		AdjustmentKind:     s.AdjustmentKind,
		Commissions:        s.Commissions,
		FlatCommission:     s.FlatCommission,
	}, commission)
	res.Time = &t
	return res
}
