package invoice

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// paper is A4 portrait with a 12mm margin, in inches
var paper = struct{ width, height, margin float64 }{210 / 25.4, 297 / 25.4, 12 / 25.4}

// Chrome prints documents in a headless Chrome over the DevTools protocol.
// One browser is shared and every Print opens its own tab.
type Chrome struct {
	remoteURL string
	sandbox   bool
	timeout   time.Duration
	log       *zap.Logger

	browser  context.Context
	shutdown context.CancelFunc
}

type ChromeOption func(*Chrome)

// WithRemoteChrome attaches to a running browser instead of launching one
func WithRemoteChrome(devtoolsURL string) ChromeOption {
	return func(c *Chrome) { c.remoteURL = devtoolsURL }
}

// WithoutSandbox is needed when Chrome runs as root inside a container
func WithoutSandbox() ChromeOption {
	return func(c *Chrome) { c.sandbox = false }
}

func WithPrintTimeout(d time.Duration) ChromeOption {
	return func(c *Chrome) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithChromeLogger(log *zap.Logger) ChromeOption {
	return func(c *Chrome) {
		if log != nil {
			c.log = log
		}
	}
}

// NewChrome prepares the browser allocator. Chrome itself starts on the
// first Print.
func NewChrome(opts ...ChromeOption) *Chrome {
	c := &Chrome{sandbox: true, timeout: 30 * time.Second, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}

	if c.remoteURL != "" {
		c.browser, c.shutdown = chromedp.NewRemoteAllocator(context.Background(), c.remoteURL)
		return c
	}
	flags := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("font-render-hinting", "none"),
		chromedp.Flag("no-sandbox", !c.sandbox),
	)
	c.browser, c.shutdown = chromedp.NewExecAllocator(context.Background(), flags...)
	return c
}

func (c *Chrome) Print(ctx context.Context, doc Document) ([]byte, error) {
	if strings.TrimSpace(doc.HTML) == "" {
		return nil, ErrEmptyDocument
	}
	timeout := doc.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tab, closeTab := chromedp.NewContext(c.browser, chromedp.WithLogf(c.log.Sugar().Debugf))
	defer closeTab()
	// the tab belongs to the browser context, so tie it to the caller here
	defer context.AfterFunc(ctx, closeTab)()

	began := time.Now()
	var pdf []byte
	err := chromedp.Run(tab,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, standalone(doc)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) (err error) {
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(paper.width).
				WithPaperHeight(paper.height).
				WithMarginTop(paper.margin).
				WithMarginBottom(paper.margin).
				WithMarginLeft(paper.margin).
				WithMarginRight(paper.margin).
				Do(ctx)
			return err
		}),
	)
	switch {
	case err != nil && ctx.Err() != nil:
		return nil, fmt.Errorf("%w after %v: %w", ErrPrintTimeout, timeout, err)
	case err != nil:
		c.log.Error("Chrome print failed", zap.String("title", doc.Title), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPrintFailed, err)
	case len(pdf) == 0:
		return nil, fmt.Errorf("%w: chrome returned no bytes", ErrPrintFailed)
	}

	c.log.Debug("Document printed",
		zap.String("title", doc.Title),
		zap.Int("bytes", len(pdf)),
		zap.Duration("took", time.Since(began)))
	return pdf, nil
}

// Close shuts the browser down
func (c *Chrome) Close() error {
	c.shutdown()
	return nil
}

// standalone returns doc.HTML as a full page, adding the skeleton when the
// content is only a fragment
func standalone(doc Document) string {
	lower := strings.ToLower(doc.HTML)
	if strings.Contains(lower, "<html") || strings.Contains(lower, "<!doctype") {
		return doc.HTML
	}
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8">`)
	if doc.Title != "" {
		fmt.Fprintf(&b, "<title>%s</title>", html.EscapeString(doc.Title))
	}
	fmt.Fprintf(&b, "</head><body>%s</body></html>", doc.HTML)
	return b.String()
}

var _ Printer = (*Chrome)(nil)
