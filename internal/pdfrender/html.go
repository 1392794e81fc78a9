package pdfrender

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"sort"
	"strconv"
	"strings"

	"github.com/Simplici0/charterquote/internal/docdef"
)

//go:embed templates/proposal.html
var templateFS embed.FS

var proposalTemplate = template.Must(template.ParseFS(templateFS, "templates/proposal.html"))

type htmlView struct {
	PageSize template.CSS
	Margins  template.CSS
	CSS      template.CSS
	Blocks   []htmlBlock
}

type htmlBlock struct {
	Kind    string
	Text    string
	Class   string
	Rows    [][]htmlCell
	Image   template.URL
	Width   float64
	Columns []htmlBlock
}

type htmlCell struct {
	Text  string
	Bold  bool
	Style template.CSS
}

// HTML renders def as a standalone HTML page.
func HTML(def docdef.Definition) ([]byte, error) {
	view := htmlView{
		PageSize: template.CSS(cssIdent(def.PageSize, "A4")),
		Margins:  template.CSS(margins(def.PageMargins[:])),
		CSS:      template.CSS(styleSheet(def)),
		Blocks:   convertBlocks(def.Content),
	}

	var buf bytes.Buffer
	if err := proposalTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("execute proposal template: %w", err)
	}
	return buf.Bytes(), nil
}

func convertBlocks(blocks []docdef.Block) []htmlBlock {
	out := make([]htmlBlock, 0, len(blocks))
	for _, b := range blocks {
		hb := htmlBlock{Kind: string(b.Kind), Text: b.Text, Width: b.Width}
		if b.Style != "" {
			hb.Class = "s-" + cssIdent(b.Style, "body")
		}
		switch b.Kind {
		case docdef.KindTable:
			if b.Table != nil {
				hb.Rows = convertRows(b.Table.Body)
			}
		case docdef.KindImage:
			// only inline images are rendered; the builder never references remote files
			if !strings.HasPrefix(b.Image, "data:image/") {
				continue
			}
			hb.Image = template.URL(b.Image)
		case docdef.KindColumns:
			hb.Columns = convertBlocks(b.Columns)
		}
		out = append(out, hb)
	}
	return out
}

func convertRows(body [][]docdef.Cell) [][]htmlCell {
	rows := make([][]htmlCell, len(body))
	for i, row := range body {
		cells := make([]htmlCell, len(row))
		for j, c := range row {
			var style []string
			if color := cssColor(c.FillColor); color != "" {
				style = append(style, "background-color: "+color)
			}
			if a := cssIdent(c.Alignment, ""); a != "" {
				style = append(style, "text-align: "+a)
			}
			cells[j] = htmlCell{Text: c.Text, Bold: c.Bold, Style: template.CSS(strings.Join(style, "; "))}
		}
		rows[i] = cells
	}
	return rows
}

func styleSheet(def docdef.Definition) string {
	var b strings.Builder
	b.WriteString(".default { " + styleRules(def.DefaultStyle) + " }\n")

	names := make([]string, 0, len(def.Styles))
	for name := range def.Styles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b.WriteString(".s-" + cssIdent(name, "body") + " { " + styleRules(def.Styles[name]) + " }\n")
	}
	return b.String()
}

func styleRules(s docdef.Style) string {
	var rules []string
	if s.FontSize > 0 {
		rules = append(rules, "font-size: "+strconv.FormatFloat(s.FontSize, 'f', -1, 64)+"pt")
	}
	if s.Bold {
		rules = append(rules, "font-weight: bold")
	}
	if color := cssColor(s.Color); color != "" {
		rules = append(rules, "color: "+color)
	}
	if a := cssIdent(s.Alignment, ""); a != "" {
		rules = append(rules, "text-align: "+a)
	}
	if len(s.Margin) == 4 {
		rules = append(rules, "margin: "+margins(s.Margin))
	}
	return strings.Join(rules, "; ")
}

// margins converts [left, top, right, bottom] points into CSS order.
func margins(m []float64) string {
	if len(m) != 4 {
		return "0"
	}
	pt := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) + "pt" }
	return strings.Join([]string{pt(m[1]), pt(m[2]), pt(m[3]), pt(m[0])}, " ")
}

func cssColor(s string) string {
	if len(s) != 4 && len(s) != 7 || s[0] != '#' {
		return ""
	}
	for _, r := range s[1:] {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return ""
		}
	}
	return s
}

func cssIdent(s, fallback string) string {
	if s == "" {
		return fallback
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return fallback
		}
	}
	return s
}
