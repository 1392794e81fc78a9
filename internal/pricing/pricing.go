package pricing

import "github.com/Simplici0/charterquote/internal/units"

// Method identifies how a quote was priced.
type Method string

const (
	MethodDistance Method = "distance"
	MethodTime     Method = "time"
)

// CommissionLine is one percentage-based commission item.
type CommissionLine struct {
	Percent float64 `json:"percent"`
	Amount  float64 `json:"amount"`
}

// LegResult is the billed time of a single leg.
type LegResult struct {
	DistanceNm float64 `json:"distanceNm"`
	BaseHours  float64 `json:"baseHours"`
	Hours      float64 `json:"hours"`
	Custom     bool    `json:"custom"`
}

// Result is the immutable outcome of pricing one quote with one method.
// Total always equals Subtotal + Adjustment + CommissionTotal + FlatCommission.
type Result struct {
	Method          Method               `json:"method"`
	DistanceKm      float64              `json:"distanceKm"`
	DistanceNm      float64              `json:"distanceNm"`
	Rate            float64              `json:"rate"`
	Subtotal        float64              `json:"subtotal"`
	Adjustment      float64              `json:"adjustment"`
	AdjustmentKind  units.AdjustmentKind `json:"adjustmentKind,omitempty"`
	CommissionTotal float64              `json:"commissionTotal"`
	Commissions     []CommissionLine     `json:"commissions"`
	FlatCommission  float64              `json:"flatCommission"`
	Total           float64              `json:"total"`

	// Time method only.
	TotalHours float64     `json:"totalHours,omitempty"`
	HoursLabel string      `json:"hoursLabel,omitempty"`
	Legs       []LegResult `json:"legs,omitempty"`
}

// finish applies the adjustment and commissions shared by both methods.
func finish(r Result, amount float64, kind units.AdjustmentKind, percents []float64, flat float64, commission CommissionFunc) Result {
	if commission == nil {
		commission = StandardCommission
	}

	extra := units.ApplyExtra(r.Subtotal, amount, kind)
	c := commission(CommissionContext{
		Subtotal:         r.Subtotal,
		AdjustmentAmount: units.Finite(amount),
		AdjustmentKind:   kind,
		Percentages:      percents,
		FlatAmount:       units.Finite(flat),
		DistanceKm:       r.DistanceKm,
		Rate:             r.Rate,
	})

	r.Adjustment = extra.Adjustment
	if extra.Adjustment != 0 {
		r.AdjustmentKind = kind
		if kind != units.Discount {
			r.AdjustmentKind = units.Surcharge
		}
	}
	r.CommissionTotal = c.Total
	r.Commissions = c.Lines
	r.FlatCommission = c.Flat
	r.Total = extra.Total + c.Total + c.Flat
	return r
}

func nonNegative(v float64) float64 {
	v = units.Finite(v)
	if v < 0 {
		return 0
	}
	return v
}
