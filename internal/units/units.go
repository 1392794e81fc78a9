package units

import "math"

// KmPerNM is the number of kilometers in one nautical mile.
const KmPerNM = 1.852

// AdjustmentKind selects whether an adjustment is added to or subtracted from a subtotal.
type AdjustmentKind string

const (
	Surcharge AdjustmentKind = "surcharge"
	Discount  AdjustmentKind = "discount"
)

// Extra is the outcome of applying an adjustment to a subtotal.
// Adjustment is signed: positive for a surcharge, negative for a discount.
type Extra struct {
	Adjustment float64
	Total      float64
}

// Finite returns v, or 0 when v is NaN or infinite.
func Finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// NmToKm converts nautical miles to kilometers.
func NmToKm(nm float64) float64 {
	return Finite(nm) * KmPerNM
}

// KmToNm converts kilometers to nautical miles.
func KmToNm(km float64) float64 {
	return Finite(km) / KmPerNM
}

// ApplyExtra applies a surcharge or discount to subtotal. Anything other than
// Discount is treated as a surcharge. The total is not floored at zero.
func ApplyExtra(subtotal, amount float64, kind AdjustmentKind) Extra {
	subtotal = Finite(subtotal)
	amount = Finite(amount)
	if amount == 0 {
		return Extra{Adjustment: 0, Total: subtotal}
	}
	if kind == Discount {
		return Extra{Adjustment: -amount, Total: subtotal - amount}
	}
	return Extra{Adjustment: amount, Total: subtotal + amount}
}

// Round rounds v to the given number of decimal places.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(Finite(v)*p) / p
}
