package main

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/Simplici0/charterquote/internal/pricing"
	"github.com/Simplici0/charterquote/internal/quote"
	"github.com/Simplici0/charterquote/internal/units"
)

const maxBodyBytes = 1 << 20

// decodeState reads a quote.State from a JSON body or from an HTML form
// posted with Brazilian formatted numbers.
func decodeState(w http.ResponseWriter, r *http.Request) (quote.State, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return quote.State{}, fmt.Errorf("parse form: %w", err)
		}
		return parseStateForm(r), nil
	}

	var st quote.State
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&st); err != nil {
		return quote.State{}, fmt.Errorf("decode quote state: %w", err)
	}
	return st, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// parseStateForm maps form fields onto a quote.State. Numbers go through
// the Brazilian locale parser, so "1.852,5" and "1852.5" both work and
// anything unreadable becomes 0.
func parseStateForm(r *http.Request) quote.State {
	f := r.Form
	num := func(key string) float64 { return units.ParseLocaleNumber(f.Get(key)) }

	st := quote.State{
		AircraftID:    strings.TrimSpace(f.Get("aircraft_id")),
		Origin:        f.Get("origin"),
		Destination:   f.Get("destination"),
		Stops:         splitList(f["stops"]),
		DepartureDate: strings.TrimSpace(f.Get("departure_date")),
		ReturnDate:    strings.TrimSpace(f.Get("return_date")),
		ClientName:    strings.TrimSpace(f.Get("client_name")),
		Observations:  strings.TrimSpace(f.Get("observations")),
		PaymentTerms:  strings.TrimSpace(f.Get("payment_terms")),

		DistanceNm: num("distance_nm"),
		DistanceKm: num("distance_km"),
		RatePerKm:  num("rate_per_km"),

		HourlyRate:         num("hourly_rate"),
		CruiseSpeedKt:      num("cruise_speed_kt"),
		WindPercent:        num("wind_percent"),
		TaxiMinutes:        num("taxi_minutes"),
		MinBillableMinutes: num("min_billable_minutes"),

		AdjustmentAmount: num("adjustment_amount"),
		AdjustmentKind:   units.Surcharge,
		FlatCommission:   num("flat_commission"),
	}
	if strings.EqualFold(strings.TrimSpace(f.Get("adjustment_kind")), string(units.Discount)) {
		st.AdjustmentKind = units.Discount
	}

	for _, raw := range splitList(f["commissions"]) {
		if p := units.ParseLocaleNumber(raw); p != 0 {
			st.Commissions = append(st.Commissions, p)
		}
	}

	// leg_nm repeats in leg order; per-leg hours and the custom checkbox carry
	// the leg index in their names since unchecked boxes are not submitted.
	for i, raw := range f["leg_nm"] {
		leg := pricing.Leg{DistanceNm: units.ParseLocaleNumber(raw)}
		idx := strconv.Itoa(i)
		if h := strings.TrimSpace(f.Get("leg_hours_" + idx)); h != "" {
			hours := units.ParseLocaleNumber(h)
			leg.Override = &pricing.ManualOverride{HoursDecimal: &hours}
		}
		leg.UseCustom = truthy(f.Get("leg_custom_" + idx))
		st.Legs = append(st.Legs, leg)
	}

	st.Flags = quote.Flags{
		Route:        formFlag(r, "show_route"),
		Aircraft:     formFlag(r, "show_aircraft"),
		Tariff:       formFlag(r, "show_tariff"),
		Distance:     formFlag(r, "show_distance"),
		Dates:        formFlag(r, "show_dates"),
		Adjustment:   formFlag(r, "show_adjustment"),
		Commission:   formFlag(r, "show_commission"),
		Observations: formFlag(r, "show_observations"),
		Payment:      formFlag(r, "show_payment"),
		Map:          formFlag(r, "show_map"),
	}
	return st
}

// splitList accepts repeated fields and ";" separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ";") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func formFlag(r *http.Request, key string) *bool {
	raw, ok := r.Form[key]
	if !ok || len(raw) == 0 {
		return nil
	}
	v := truthy(raw[len(raw)-1])
	return &v
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "true", "yes", "sim":
		return true
	default:
		return false
	}
}
