package pricing

import "github.com/Simplici0/charterquote/internal/units"

// Commission is the outcome of the commission engine.
type Commission struct {
	Total float64          `json:"total"`
	Lines []CommissionLine `json:"lines"`
	Flat  float64          `json:"flat"`
}

// CommissionContext is everything an engine hands its commission function.
type CommissionContext struct {
	Subtotal         float64
	AdjustmentAmount float64
	AdjustmentKind   units.AdjustmentKind
	Percentages      []float64
	FlatAmount       float64
	DistanceKm       float64
	Rate             float64
}

// CommissionFunc computes commissions for a priced subtotal. Engines take it
// as a parameter so callers can substitute their own commission policy.
type CommissionFunc func(CommissionContext) Commission

// StandardCommission charges every percentage on the subtotal and adds the
// flat amount on top.
func StandardCommission(ctx CommissionContext) Commission {
	return Commissions(ctx.Subtotal, ctx.Percentages, ctx.FlatAmount)
}

// Commissions charges each percentage on base, in input order. Repeated
// percentages produce repeated lines. flat is added as-is, never scaled.
func Commissions(base float64, percents []float64, flat float64) Commission {
	base = units.Finite(base)

	c := Commission{
		Lines: make([]CommissionLine, 0, len(percents)),
		Flat:  units.Finite(flat),
	}
	for _, p := range percents {
		p = units.Finite(p)
		amount := base * p / 100
		c.Total += amount
		c.Lines = append(c.Lines, CommissionLine{Percent: p, Amount: amount})
	}
	return c
}
