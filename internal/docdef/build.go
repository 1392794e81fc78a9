package docdef

import (
	"fmt"
	"strings"

	"github.com/Simplici0/charterquote/internal/catalog"
	"github.com/Simplici0/charterquote/internal/pricing"
	"github.com/Simplici0/charterquote/internal/quote"
	"github.com/Simplici0/charterquote/internal/units"
)

// Selection picks which pricing methods the proposal presents.
type Selection string

const (
	Method1 Selection = "method1" // distance
	Method2 Selection = "method2" // time
	Both    Selection = "both"
)

// ParseSelection maps user input to a Selection, defaulting to Both.
func ParseSelection(s string) Selection {
	switch Selection(strings.ToLower(strings.TrimSpace(s))) {
	case Method1:
		return Method1
	case Method2:
		return Method2
	default:
		return Both
	}
}

// Options are per-document inclusion toggles. A nil field falls back to the
// matching snapshot flag, then to true.
type Options struct {
	ShowMethod1 *bool `json:"showMethod1,omitempty"`
	ShowMethod2 *bool `json:"showMethod2,omitempty"`

	IncludeRoute        *bool `json:"includeRoute,omitempty"`
	IncludeAircraft     *bool `json:"includeAircraft,omitempty"`
	IncludeTariff       *bool `json:"includeTariff,omitempty"`
	IncludeDistance     *bool `json:"includeDistance,omitempty"`
	IncludeDates        *bool `json:"includeDates,omitempty"`
	IncludeAdjustment   *bool `json:"includeAdjustment,omitempty"`
	IncludeCommission   *bool `json:"includeCommission,omitempty"`
	IncludeObservations *bool `json:"includeObservations,omitempty"`
	IncludePayment      *bool `json:"includePayment,omitempty"`
	IncludeMap          *bool `json:"includeMap,omitempty"`
}

// Catalog resolves aircraft details not captured in the snapshot.
type Catalog interface {
	Lookup(id string) (catalog.Entry, bool)
}

const (
	RouteSeparator = " → "

	fillTotal       = "#e8eef7"
	fillTotalSecond = "#fff4d6"
	fillLabel       = "#f5f5f5"
)

type sections struct {
	route, aircraft, tariff, distance, dates bool
	adjustment, commission                   bool
	observations, payment, mapImage          bool
}

func resolve(opt, flag *bool) bool {
	if opt != nil {
		return *opt
	}
	if flag != nil {
		return *flag
	}
	return true
}

func resolveSections(o Options, f quote.Flags) sections {
	return sections{
		route:        resolve(o.IncludeRoute, f.Route),
		aircraft:     resolve(o.IncludeAircraft, f.Aircraft),
		tariff:       resolve(o.IncludeTariff, f.Tariff),
		distance:     resolve(o.IncludeDistance, f.Distance),
		dates:        resolve(o.IncludeDates, f.Dates),
		adjustment:   resolve(o.IncludeAdjustment, f.Adjustment),
		commission:   resolve(o.IncludeCommission, f.Commission),
		observations: resolve(o.IncludeObservations, f.Observations),
		payment:      resolve(o.IncludePayment, f.Payment),
		mapImage:     resolve(o.IncludeMap, f.Map),
	}
}

// methods returns the results to render, in presentation order. It never
// returns an empty list: without usable data a zero distance result stands in.
func methods(snap quote.Snapshot, sel Selection, o Options) []pricing.Result {
	var out []pricing.Result
	dist, tm := snap.Results.Distance, snap.Results.Time

	show1, show2 := false, false
	switch sel {
	case Method1:
		show1 = true
	case Method2:
		show2 = true
	default:
		show1 = resolve(o.ShowMethod1, nil)
		show2 = resolve(o.ShowMethod2, nil)
	}

	if show1 && dist != nil {
		out = append(out, *dist)
	}
	if show2 && tm != nil {
		out = append(out, *tm)
	}
	if len(out) > 0 {
		return out
	}
	if dist != nil {
		return []pricing.Result{*dist}
	}
	return []pricing.Result{{Method: pricing.MethodDistance}}
}

// Build assembles the proposal for snap. It is a pure function of its
// arguments; cat may be nil.
func Build(snap quote.Snapshot, sel Selection, o Options, cat Catalog) Definition {
	sec := resolveSections(o, snap.State.Flags)
	results := methods(snap, sel, o)

	def := Definition{
		PageSize:    "A4",
		PageMargins: [4]float64{40, 60, 40, 60},
		DefaultStyle: Style{
			FontSize: 10,
		},
		Styles: map[string]Style{
			"header":    {FontSize: 18, Bold: true, Color: "#1f3a5f", Margin: []float64{0, 0, 0, 4}},
			"subheader": {FontSize: 11, Color: "#555555", Margin: []float64{0, 0, 0, 12}},
			"section":   {FontSize: 13, Bold: true, Color: "#1f3a5f", Margin: []float64{0, 14, 0, 6}},
			"method":    {FontSize: 11, Bold: true, Margin: []float64{0, 8, 0, 4}},
			"small":     {FontSize: 8, Color: "#666666"},
			"body":      {FontSize: 10},
		},
		Footer: Footer{PageTemplate: "{page}/{pages}"},
	}

	def.Content = append(def.Content, header(snap)...)
	if summary := summaryTable(snap, sec, results, cat); summary != nil {
		def.Content = append(def.Content, text("Resumo do voo", "section"), *summary)
	}

	def.Content = append(def.Content, text("Investimento", "section"))
	for i, r := range results {
		if len(results) > 1 {
			def.Content = append(def.Content, text(methodTitle(i, r.Method), "method"))
		}
		def.Content = append(def.Content, investmentTable(r, sec, i > 0))
		if r.Method == pricing.MethodTime && len(r.Legs) > 1 {
			def.Content = append(def.Content, legLines(r.Legs)...)
		}
	}

	if sec.observations {
		if obs := strings.TrimSpace(snap.State.Observations); obs != "" {
			def.Content = append(def.Content, text("Observações", "section"), text(obs, "body"))
		}
	}
	if sec.payment {
		if pay := strings.TrimSpace(snap.State.PaymentTerms); pay != "" {
			def.Content = append(def.Content, text("Condições de pagamento", "section"), text(pay, "body"))
		}
	}
	if sec.mapImage && snap.MapImage != "" {
		def.Content = append(def.Content,
			text("Mapa da rota", "section"),
			Block{Kind: KindImage, Image: snap.MapImage, Width: 515},
		)
	}

	if snap.ID != "" {
		def.Footer.Left = "Ref. " + snap.ID
	}
	return def
}

func header(snap quote.Snapshot) []Block {
	blocks := []Block{text("Proposta de Fretamento Aéreo", "header")}

	var sub []string
	if name := strings.TrimSpace(snap.State.ClientName); name != "" {
		sub = append(sub, "Cliente: "+name)
	}
	if !snap.FrozenAt.IsZero() {
		sub = append(sub, "Emitida em "+snap.FrozenAt.UTC().Format("02/01/2006"))
	}
	if len(sub) > 0 {
		blocks = append(blocks, text(strings.Join(sub, "  |  "), "subheader"))
	}
	return blocks
}

func aircraftLabel(snap quote.Snapshot, cat Catalog) string {
	name := strings.TrimSpace(snap.AircraftName)
	var category string
	if cat != nil && snap.State.AircraftID != "" {
		if e, ok := cat.Lookup(snap.State.AircraftID); ok {
			if name == "" {
				name = e.Name
			}
			category = e.Category
		}
	}
	if name != "" && category != "" {
		return name + " (" + category + ")"
	}
	return name
}

func summaryTable(snap quote.Snapshot, sec sections, results []pricing.Result, cat Catalog) *Block {
	var rows [][]Cell
	row := func(label, value string) {
		rows = append(rows, []Cell{{Text: label, Bold: true, FillColor: fillLabel}, {Text: value}})
	}

	if sec.route {
		if codes := snap.State.RouteCodes(); len(codes) > 0 {
			row("Rota", strings.Join(codes, RouteSeparator))
		}
	}
	if sec.aircraft {
		if label := aircraftLabel(snap, cat); label != "" {
			row("Aeronave", label)
		}
	}
	if sec.dates {
		if d := strings.TrimSpace(snap.State.DepartureDate); d != "" {
			row("Data de ida", d)
		}
		if d := strings.TrimSpace(snap.State.ReturnDate); d != "" {
			row("Data de volta", d)
		}
	}
	if sec.distance {
		r := results[0]
		if r.DistanceKm > 0 {
			row("Distância", units.FormatNumber(r.DistanceKm, 1)+" km ("+units.FormatNumber(r.DistanceNm, 1)+" NM)")
		}
	}
	if sec.tariff {
		for _, r := range results {
			switch r.Method {
			case pricing.MethodDistance:
				row("Tarifa por km", units.FormatCurrencyBRL(r.Rate))
			case pricing.MethodTime:
				row("Valor da hora de voo", units.FormatCurrencyBRL(r.Rate))
			}
		}
	}

	if len(rows) == 0 {
		return nil
	}
	return &Block{Kind: KindTable, Table: &Table{Widths: []string{"auto", "*"}, Body: rows}}
}

func methodTitle(i int, m pricing.Method) string {
	if m == pricing.MethodTime {
		return fmt.Sprintf("Opção %d: por tempo de voo", i+1)
	}
	return fmt.Sprintf("Opção %d: por distância", i+1)
}

func baseLine(r pricing.Result) string {
	if r.Method == pricing.MethodTime {
		return fmt.Sprintf("Tempo de voo %s h × %s/h", r.HoursLabel, units.FormatCurrencyBRL(r.Rate))
	}
	return fmt.Sprintf("%s km × %s/km", units.FormatNumber(r.DistanceKm, 1), units.FormatCurrencyBRL(r.Rate))
}

func investmentTable(r pricing.Result, sec sections, secondary bool) Block {
	var rows [][]Cell
	line := func(label string, amount float64) {
		rows = append(rows, []Cell{{Text: label}, {Text: units.FormatCurrencyBRL(amount), Alignment: "right"}})
	}

	line(baseLine(r), r.Subtotal)

	if sec.adjustment && r.Adjustment != 0 {
		label := "Acréscimo"
		if r.Adjustment < 0 || r.AdjustmentKind == units.Discount {
			label = "Desconto"
		}
		line(label, r.Adjustment)
	}

	if sec.commission {
		for i, c := range r.Commissions {
			label := "Comissão"
			if len(r.Commissions) > 1 {
				label = fmt.Sprintf("Comissão %d", i+1)
			}
			line(fmt.Sprintf("%s (%s%%)", label, units.FormatNumber(c.Percent, 2)), c.Amount)
		}
		if r.FlatCommission > 0 {
			line("Comissão fixa", r.FlatCommission)
		}
	}

	fill := fillTotal
	if secondary {
		fill = fillTotalSecond
	}
	rows = append(rows, []Cell{
		{Text: "Total", Bold: true, FillColor: fill},
		{Text: units.FormatCurrencyBRL(r.Total), Bold: true, FillColor: fill, Alignment: "right"},
	})

	return Block{Kind: KindTable, Table: &Table{Widths: []string{"*", "auto"}, Body: rows}}
}

func legLines(legs []pricing.LegResult) []Block {
	blocks := make([]Block, 0, len(legs))
	for i, l := range legs {
		s := fmt.Sprintf("Trecho %d: %s NM, %s h", i+1, units.FormatNumber(l.DistanceNm, 1), pricing.HoursLabel(l.Hours))
		if l.Custom {
			s += " (tempo informado)"
		}
		blocks = append(blocks, text(s, "small"))
	}
	return blocks
}
