package render

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/lmartins/quizchain/internal/htmldoc"
)

// textSnapshotTimeout bounds the body-text read after the page is captured.
// A timed-out read yields an empty text snapshot, not a render failure.
const textSnapshotTimeout = 1 * time.Second

// Chrome drives a headless Chrome via the DevTools protocol. One browser
// process is shared across a chain; each Render opens a fresh tab and closes
// it before returning.
type Chrome struct {
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
	timeout       time.Duration
	settle        time.Duration
}

func NewChrome(ctx context.Context, opts Options) (*Chrome, error) {
	opts = opts.withDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.UserAgent(opts.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so launch failures surface here, before the
	// solver loop begins.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("chrome launch: %w", err)
	}
	return &Chrome{
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
		timeout:       opts.Timeout,
		settle:        opts.SettleWait,
	}, nil
}

func (c *Chrome) Render(ctx context.Context, pageURL string) (*htmldoc.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tabCtx, closeTab := chromedp.NewContext(c.browserCtx)
	defer closeTab()
	runCtx, cancel := context.WithTimeout(tabCtx, c.timeout)
	defer cancel()

	var outerHTML string
	err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(c.settle),
		chromedp.OuterHTML("html", &outerHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}

	doc, err := htmldoc.Parse(pageURL, []byte(outerHTML))
	if err != nil {
		return nil, fmt.Errorf("render %s: parse: %w", pageURL, err)
	}

	// Prefer the browser's own visible-text snapshot; on timeout keep the
	// parser's view rather than failing the render.
	textCtx, textCancel := context.WithTimeout(tabCtx, textSnapshotTimeout)
	defer textCancel()
	var bodyText string
	if err := chromedp.Run(textCtx, chromedp.Text("body", &bodyText, chromedp.ByQuery)); err == nil && bodyText != "" {
		doc = doc.WithBodyText(bodyText)
	}
	return doc, nil
}

func (c *Chrome) Close() error {
	c.browserCancel()
	c.allocCancel()
	return nil
}
