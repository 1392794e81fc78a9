// Package docdef builds renderer-neutral document definitions for quote
// proposals. Nothing here fetches data or renders bytes.
package docdef

// BlockKind identifies the shape of a Block.
type BlockKind string

const (
	KindText    BlockKind = "text"
	KindTable   BlockKind = "table"
	KindImage   BlockKind = "image"
	KindColumns BlockKind = "columns"
)

// Definition is the full document tree handed to a renderer.
type Definition struct {
	PageSize     string           `json:"pageSize"`
	PageMargins  [4]float64       `json:"pageMargins"`
	DefaultStyle Style            `json:"defaultStyle"`
	Styles       map[string]Style `json:"styles"`
	Content      []Block          `json:"content"`
	Footer       Footer           `json:"footer"`
}

// Style is a named set of text attributes.
type Style struct {
	FontSize  float64   `json:"fontSize,omitempty"`
	Bold      bool      `json:"bold,omitempty"`
	Color     string    `json:"color,omitempty"`
	Alignment string    `json:"alignment,omitempty"`
	Margin    []float64 `json:"margin,omitempty"`
}

// Block is one content node. Only the fields of its Kind are set.
type Block struct {
	Kind    BlockKind `json:"kind"`
	Text    string    `json:"text,omitempty"`
	Style   string    `json:"style,omitempty"`
	Table   *Table    `json:"table,omitempty"`
	Image   string    `json:"image,omitempty"`
	Width   float64   `json:"width,omitempty"`
	Columns []Block   `json:"columns,omitempty"`
}

// Table is a grid of cells. Widths follow the "*" / "auto" / number
// convention of declarative PDF layouts.
type Table struct {
	Widths []string `json:"widths"`
	Body   [][]Cell `json:"body"`
}

// Cell is one table cell.
type Cell struct {
	Text      string `json:"text"`
	Bold      bool   `json:"bold,omitempty"`
	FillColor string `json:"fillColor,omitempty"`
	Alignment string `json:"alignment,omitempty"`
}

// Footer is repeated on every page. PageTemplate carries {page} and {pages}
// placeholders for the renderer to substitute.
type Footer struct {
	Left         string `json:"left,omitempty"`
	PageTemplate string `json:"pageTemplate"`
}

func text(s, style string) Block {
	return Block{Kind: KindText, Text: s, Style: style}
}
