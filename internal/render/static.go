package render

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/lmartins/quizchain/internal/htmldoc"
)

// maxPageBytes caps how much of a page body is read into the snapshot.
const maxPageBytes = 2 << 20

// Static renders a page with a plain HTTP GET and an HTML parse. It covers
// quiz pages that do not require client-side rendering and is the
// implementation exercised by httptest-based tests.
type Static struct {
	client *http.Client
	ua     string
}

func NewStatic(opts Options) *Static {
	opts = opts.withDefaults()
	return &Static{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext:           (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				ResponseHeaderTimeout: opts.Timeout,
			},
		},
		ua: opts.UserAgent,
	}
}

func (s *Static) Render(ctx context.Context, pageURL string) (*htmldoc.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", s.ua)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("render %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("render %s: read body: %w", pageURL, err)
	}
	doc, err := htmldoc.Parse(pageURL, body)
	if err != nil {
		return nil, fmt.Errorf("render %s: parse: %w", pageURL, err)
	}
	return doc, nil
}

func (s *Static) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
