package pricing

import "github.com/Simplici0/charterquote/internal/units"

// DistanceInput holds the parameters of a distance-priced quote.
type DistanceInput struct {
	DistanceNm       float64
	RatePerKm        float64
	AdjustmentAmount float64
	AdjustmentKind   units.AdjustmentKind
	Commissions      []float64
	FlatCommission   float64
}

// Distance prices a quote as kilometers flown times the per-km rate.
// Malformed numbers degrade to zero instead of failing.
func Distance(in DistanceInput, commission CommissionFunc) Result {
	nm := nonNegative(in.DistanceNm)
	rate := units.Finite(in.RatePerKm)
	km := units.NmToKm(nm)

	r := Result{
		Method:     MethodDistance,
		DistanceKm: km,
		DistanceNm: nm,
		Rate:       rate,
		Subtotal:   km * rate,
	}
	return finish(r, in.AdjustmentAmount, in.AdjustmentKind, in.Commissions, in.FlatCommission, commission)
}
