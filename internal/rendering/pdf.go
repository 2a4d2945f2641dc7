package rendering

import (
	"context"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/forgecv/internal/types"
)

// DefaultPDFTimeout bounds one print, including browser start-up.
const DefaultPDFTimeout = 60 * time.Second

// PDFRenderer prints HTML resumes to PDF with a headless Chrome.
type PDFRenderer struct {
	execPath string
	timeout  time.Duration
}

// PDFOption configures a PDFRenderer.
type PDFOption func(*PDFRenderer)

// WithExecPath selects the Chrome binary. Empty uses chromedp's lookup.
func WithExecPath(path string) PDFOption {
	return func(p *PDFRenderer) { p.execPath = path }
}

// WithPDFTimeout overrides DefaultPDFTimeout.
func WithPDFTimeout(d time.Duration) PDFOption {
	return func(p *PDFRenderer) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// NewPDFRenderer returns a renderer. Chrome is started per call.
func NewPDFRenderer(opts ...PDFOption) *PDFRenderer {
	p := &PDFRenderer{timeout: DefaultPDFTimeout}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RenderResume lays r out with f and prints it.
func (p *PDFRenderer) RenderResume(ctx context.Context, r *types.Resume, f types.FormatSettings) ([]byte, error) {
	html, err := RenderHTML(r, f)
	if err != nil {
		return nil, err
	}
	return p.Print(ctx, html, PageFor(f.PageSize))
}

// Print loads html into a blank tab and prints it on paper of the given size.
func (p *PDFRenderer) Print(ctx context.Context, html string, size PageSize) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if p.execPath != "" {
		opts = append(opts, chromedp.ExecPath(p.execPath))
	}

	allocCtx, cancel := chromedp.NewExecAllocator(ctx, opts...)
	defer cancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()
	browserCtx, cancel = context.WithTimeout(browserCtx, p.timeout)
	defer cancel()

	start := time.Now()
	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(size.Width).
				WithPaperHeight(size.Height).
				WithMarginTop(0).
				WithMarginBottom(0).
				WithMarginLeft(0).
				WithMarginRight(0).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, &RenderError{Message: "failed to print PDF", Cause: err}
	}
	slog.Debug("printed resume PDF", "bytes", len(pdf), "page", size.Name, "duration", time.Since(start))
	return pdf, nil
}
