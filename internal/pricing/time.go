package pricing

import (
	"fmt"
	"math"

	"github.com/Simplici0/charterquote/internal/units"
)

const hourDecimals = 4

// Leg is one segment of a time-priced itinerary.
type Leg struct {
	DistanceNm float64         `json:"distanceNm"`
	Override   *ManualOverride `json:"override,omitempty"`
	UseCustom  bool            `json:"useCustom"`
}

// ManualOverride replaces the computed time of a leg when UseCustom is set.
type ManualOverride struct {
	HoursDecimal *float64 `json:"hoursDecimal,omitempty"`
}

// TimeInput holds the parameters of a time-priced quote.
type TimeInput struct {
	DistanceNm         float64
	CruiseSpeedKt      float64
	HourlyRate         float64
	Legs               []Leg
	WindPercent        float64
	TaxiMinutes        float64
	MinBillableMinutes float64
	AdjustmentAmount   float64
	AdjustmentKind     units.AdjustmentKind
	Commissions        []float64
	FlatCommission     float64
}

// Time prices a quote as billed hours times the hourly rate. Taxi, wind and
// the minimum billable time are applied to every leg on its own.
func Time(in TimeInput, commission CommissionFunc) Result {
	legs := in.Legs
	if len(legs) == 0 {
		legs = []Leg{{DistanceNm: in.DistanceNm}}
	}

	speed := nonNegative(in.CruiseSpeedKt)
	rate := units.Finite(in.HourlyRate)
	taxiHours := units.Finite(in.TaxiMinutes) / 60
	windFactor := 1 + units.Finite(in.WindPercent)/100
	minHours := units.Finite(in.MinBillableMinutes) / 60

	r := Result{
		Method: MethodTime,
		Rate:   rate,
		Legs:   make([]LegResult, 0, len(legs)),
	}

	total := 0.0
	totalNm := 0.0
	for _, leg := range legs {
		lr := legHours(leg, speed, taxiHours, windFactor, minHours)
		r.Legs = append(r.Legs, lr)
		total += lr.Hours
		totalNm += lr.DistanceNm
	}

	r.TotalHours = units.Round(total, hourDecimals)
	r.HoursLabel = HoursLabel(r.TotalHours)
	r.DistanceNm = totalNm
	r.DistanceKm = units.NmToKm(totalNm)
	r.Subtotal = r.TotalHours * rate

	return finish(r, in.AdjustmentAmount, in.AdjustmentKind, in.Commissions, in.FlatCommission, commission)
}

func legHours(leg Leg, speed, taxiHours, windFactor, minHours float64) LegResult {
	nm := nonNegative(leg.DistanceNm)

	base := 0.0
	if speed > 0 && nm > 0 {
		base = units.Round(nm/speed, hourDecimals)
	}
	lr := LegResult{DistanceNm: nm, BaseHours: base, Hours: base}

	if leg.UseCustom && leg.Override != nil && leg.Override.HoursDecimal != nil {
		if v := *leg.Override.HoursDecimal; !math.IsNaN(v) && !math.IsInf(v, 0) {
			lr.Hours = units.Round(math.Max(v, 0), hourDecimals)
			lr.Custom = true
			return lr
		}
	}

	adjusted := (base + taxiHours) * windFactor
	if minHours > 0 && minHours > adjusted {
		adjusted = minHours
	}
	lr.Hours = units.Round(math.Max(adjusted, 0), hourDecimals)
	return lr
}

// HoursLabel renders decimal hours as "H:MM", rounding to the nearest minute.
func HoursLabel(hours float64) string {
	minutes := int(math.Round(units.Finite(hours) * 60))
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%d:%02d", minutes/60, minutes%60)
}
