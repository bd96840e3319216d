// Package render abstracts "fetch a URL and hand back a document snapshot"
// behind a narrow capability interface, so the solver's control logic never
// touches a browser directly and can be tested against fakes.
package render

import (
	"context"
	"time"

	"github.com/lmartins/quizchain/internal/htmldoc"
)

type Renderer interface {
	// Render navigates to pageURL, waits for client-side content to settle,
	// and returns an immutable document snapshot. The underlying page handle
	// is released before Render returns, on success and failure alike.
	Render(ctx context.Context, pageURL string) (*htmldoc.Document, error)
	Close() error
}

type Options struct {
	// Timeout bounds a single navigation plus snapshot.
	Timeout time.Duration
	// SettleWait is a fixed pause after navigation; the browser offers no
	// "content ready" signal for client-rendered pages.
	SettleWait time.Duration
	UserAgent  string
}

// Some quiz hosts reject the default Go client UA.
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.SettleWait < 0 {
		o.SettleWait = 0
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUserAgent
	}
	return o
}
