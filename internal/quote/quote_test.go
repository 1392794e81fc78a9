package quote

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/Simplici0/charterquote/internal/pricing"
)

func nearlyEqual(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, got, want)
	}
}

func TestResolvedKm(t *testing.T) {
	nearlyEqual(t, "explicit km", State{DistanceKm: 300, DistanceNm: 100}.ResolvedKm(), 300)
	nearlyEqual(t, "from nm", State{DistanceNm: 100}.ResolvedKm(), 185.2)
	nearlyEqual(t, "none", State{}.ResolvedKm(), 0)
	nearlyEqual(t, "negative", State{DistanceNm: -5}.ResolvedKm(), 0)
	nearlyEqual(t, "nan", State{DistanceKm: math.NaN()}.ResolvedKm(), 0)
}

func TestRouteCodes_OriginDestinationThenStops(t *testing.T) {
	s := State{Origin: "SBBR", Destination: "sbmo", Stops: []string{"SBBH", " ", "SBBR"}}
	want := []string{"SBBR", "SBMO", "SBBH", "SBBR"}
	if got := s.RouteCodes(); !reflect.DeepEqual(got, want) {
		t.Fatalf("RouteCodes = %v, want %v", got, want)
	}
}

func TestCompute_UsesAircraftDefaults(t *testing.T) {
	s := State{DistanceNm: 300, RatePerKm: 10}
	res := Compute(s, Aircraft{CruiseSpeedKt: 300, HourlyRate: 9000}, nil)

	if res.Distance == nil || res.Time == nil {
		t.Fatalf("expected both methods, got %+v", res)
	}
	nearlyEqual(t, "distance subtotal", res.Distance.Subtotal, 5556)
	nearlyEqual(t, "time hours", res.Time.TotalHours, 1)
	nearlyEqual(t, "time subtotal", res.Time.Subtotal, 9000)
}

func TestCompute_StateOverridesAircraft(t *testing.T) {
	s := State{DistanceNm: 300, CruiseSpeedKt: 150, HourlyRate: 1000}
	res := Compute(s, Aircraft{CruiseSpeedKt: 300, HourlyRate: 9000}, nil)

	nearlyEqual(t, "hours", res.Time.TotalHours, 2)
	nearlyEqual(t, "subtotal", res.Time.Subtotal, 2000)
}

func TestCompute_NoSpeedSkipsTimeMethod(t *testing.T) {
	res := Compute(State{DistanceNm: 100, RatePerKm: 10}, Aircraft{}, nil)
	if res.Time != nil {
		t.Fatalf("expected no time result without cruise speed")
	}
}

func TestNewSnapshot_IsIndependentCopy(t *testing.T) {
	hours := 1.5
	s := State{
		Origin:      "SBSP",
		Destination: "SBRJ",
		Stops:       []string{"SBKP"},
		Commissions: []float64{5},
		Legs:        []pricing.Leg{{DistanceNm: 200, UseCustom: true, Override: &pricing.ManualOverride{HoursDecimal: &hours}}},
	}
	res := Compute(s, Aircraft{CruiseSpeedKt: 300}, nil)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	snap, err := NewSnapshot("q-1", s, res, "Phenom 100", "", at)
	if err != nil {
		t.Fatalf("NewSnapshot: %v", err)
	}

	s.Stops[0] = "XXXX"
	s.Commissions[0] = 99
	hours = 9
	res.Distance.Total = -1

	if snap.State.Stops[0] != "SBKP" || snap.State.Commissions[0] != 5 {
		t.Fatalf("snapshot state changed with source: %+v", snap.State)
	}
	if *snap.State.Legs[0].Override.HoursDecimal != 1.5 {
		t.Fatalf("snapshot leg override changed with source")
	}
	if snap.Results.Distance.Total == -1 {
		t.Fatalf("snapshot results changed with source")
	}
	if snap.Version != SnapshotVersion || !snap.FrozenAt.Equal(at) {
		t.Fatalf("unexpected snapshot metadata: %+v", snap)
	}
}

func TestSnapshotTitle(t *testing.T) {
	snap := Snapshot{AircraftName: "King Air C90", State: State{Origin: "SBBR", Destination: "SBGO", ClientName: "ACME"}}
	if got := snap.Title(); got != "ACME: King Air C90 SBBR-SBGO" {
		t.Fatalf("Title = %q", got)
	}
	if got := (Snapshot{State: State{Origin: "SBBR", Destination: "SBGO"}}).Title(); got != "SBBR-SBGO" {
		t.Fatalf("Title = %q", got)
	}
}
