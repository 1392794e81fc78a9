// Package pdfrender turns document definitions into PDF bytes through a
// headless Chrome.
package pdfrender

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/Simplici0/charterquote/internal/docdef"
	"github.com/Simplici0/charterquote/internal/logging"
	"github.com/Simplici0/charterquote/internal/metrics"
)

// Config tunes Renderer.
type Config struct {
	CacheSize int
	CacheTTL  time.Duration
	Timeout   time.Duration
}

// DefaultConfig returns the renderer defaults.
func DefaultConfig() Config {
	return Config{
		CacheSize: 64,
		CacheTTL:  30 * time.Minute,
		Timeout:   30 * time.Second,
	}
}

// PrintFunc converts an HTML page into PDF bytes. footer is a Chrome footer
// template.
type PrintFunc func(ctx context.Context, html []byte, footer string) ([]byte, error)

// Renderer caches PDFs by definition. Definitions are deterministic, so equal
// content always maps to the same key.
type Renderer struct {
	cfg     Config
	cache   *expirable.LRU[string, []byte]
	print   PrintFunc
	metrics *metrics.Registry
	log     *zap.SugaredLogger

	allocCtx context.Context
	cancel   context.CancelFunc
}

// New returns a renderer backed by a headless Chrome allocator. The browser
// process starts on first use.
func New(cfg Config, reg *metrics.Registry, log *zap.SugaredLogger) *Renderer {
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), chromedp.DefaultExecAllocatorOptions[:]...)
	r := newRenderer(cfg, nil, reg, log)
	r.allocCtx, r.cancel = allocCtx, cancel
	r.print = r.chromePrint
	return r
}

// NewWithPrinter returns a renderer using print instead of Chrome.
func NewWithPrinter(cfg Config, print PrintFunc, reg *metrics.Registry, log *zap.SugaredLogger) *Renderer {
	return newRenderer(cfg, print, reg, log)
}

func newRenderer(cfg Config, print PrintFunc, reg *metrics.Registry, log *zap.SugaredLogger) *Renderer {
	def := DefaultConfig()
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = def.CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = def.CacheTTL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Renderer{
		cfg:     cfg,
		cache:   expirable.NewLRU[string, []byte](cfg.CacheSize, nil, cfg.CacheTTL),
		print:   print,
		metrics: reg,
		log:     logging.OrNop(log),
	}
}

// CacheKey is the hex SHA-256 of the serialized definition.
func CacheKey(def docdef.Definition) (string, error) {
	raw, err := json.Marshal(def)
	if err != nil {
		return "", fmt.Errorf("marshal document definition: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Render returns the PDF for def, from cache when possible.
func (r *Renderer) Render(ctx context.Context, def docdef.Definition) ([]byte, error) {
	key, err := CacheKey(def)
	if err != nil {
		return nil, err
	}
	if pdf, ok := r.cache.Get(key); ok {
		if r.metrics != nil {
			r.metrics.PDFCacheHits.Inc()
		}
		return pdf, nil
	}

	html, err := HTML(def)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	start := time.Now()
	pdf, err := r.print(ctx, html, FooterTemplate(def.Footer))
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	if r.metrics != nil {
		r.metrics.PDFRenderDuration.Observe(time.Since(start).Seconds())
	}
	r.log.Debugw("rendered pdf", "key", key, "bytes", len(pdf), "duration_ms", time.Since(start).Milliseconds())

	r.cache.Add(key, pdf)
	return pdf, nil
}

// Close shuts down the browser allocator.
func (r *Renderer) Close() {
	if r.cancel != nil {
		r.cancel()
	}
}

// FooterTemplate converts a definition footer into Chrome's footer markup.
func FooterTemplate(f docdef.Footer) string {
	pages := strings.NewReplacer(
		"{page}", `<span class="pageNumber"></span>`,
		"{pages}", `<span class="totalPages"></span>`,
	).Replace(escapeText(f.PageTemplate))

	return `<div style="font-size:8px; width:100%; padding:0 40px; display:flex; justify-content:space-between; color:#666;">` +
		`<span>` + escapeText(f.Left) + `</span><span>` + pages + `</span></div>`
}

func escapeText(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;").Replace(s)
}

func (r *Renderer) chromePrint(ctx context.Context, html []byte, footer string) ([]byte, error) {
	taskCtx, cancel := chromedp.NewContext(r.allocCtx)
	defer cancel()

	// stop the tab when the caller gives up
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var pdf []byte
	err := chromedp.Run(taskCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(8.27).  // A4 width
				WithPaperHeight(11.7). // A4 height
				WithDisplayHeaderFooter(true).
				WithHeaderTemplate("<span></span>").
				WithFooterTemplate(footer).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdf, nil
}
