// Package extract derives a candidate answer from a rendered quiz page and
// locates the URL the answer should be submitted to. Strategies are tried in
// a fixed priority order; nothing in this package returns an error to the
// solver — a page that defeats every heuristic yields the no-answer sentinel.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/lmartins/quizchain/internal/htmldoc"
	"github.com/lmartins/quizchain/pkg/domain"
)

// maxFileBytes caps linked-file downloads (PDFs).
const maxFileBytes = 10 << 20

var (
	numberRe  = regexp.MustCompile(`[-+]?\d+\.\d+|[-+]?\d+`)
	integerRe = regexp.MustCompile(`^[-+]?\d+$`)
)

type Extractor struct {
	client *http.Client
	column string
	logger *slog.Logger
}

func New(fetchTimeout time.Duration, column string, logger *slog.Logger) *Extractor {
	if fetchTimeout <= 0 {
		fetchTimeout = 30 * time.Second
	}
	if column == "" {
		column = "value"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		client: &http.Client{Timeout: fetchTimeout},
		column: column,
		logger: logger,
	}
}

// Extract runs the strategy chain: structured <pre> answer, linked PDF table,
// numeric text fallback.
func (e *Extractor) Extract(ctx context.Context, doc *htmldoc.Document) domain.Answer {
	structured := StructuredBlock(doc)

	if structured != nil {
		if v, ok := structured["answer"]; ok {
			return domain.AnswerFromJSONValue(v)
		}
		for _, key := range []string{"url", "file"} {
			ref, ok := structured[key].(string)
			if !ok || !strings.HasSuffix(strings.ToLower(ref), ".pdf") {
				continue
			}
			if sum, ok := e.sumLinkedPDF(ctx, doc.Resolve(ref)); ok {
				return domain.FloatAnswer(sum)
			}
		}
	}

	for _, link := range doc.Links() {
		if !strings.HasSuffix(strings.ToLower(link.Href), ".pdf") {
			continue
		}
		if sum, ok := e.sumLinkedPDF(ctx, link.Href); ok {
			return domain.FloatAnswer(sum)
		}
	}

	return TextualAnswer(doc.Text())
}

func (e *Extractor) sumLinkedPDF(ctx context.Context, fileURL string) (float64, bool) {
	if fileURL == "" {
		return 0, false
	}
	data, err := e.download(ctx, fileURL)
	if err != nil {
		e.logger.Info("pdf download failed", "url", fileURL, "err", err)
		return 0, false
	}
	sum, ok := SumColumnOnSecondPage(data, e.column)
	if !ok {
		e.logger.Info("pdf handler found no usable table", "url", fileURL)
	}
	return sum, ok
}

func (e *Extractor) download(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFileBytes))
}

// StructuredBlock returns the first <pre> block parseable as a JSON object,
// trying the raw text first and a base64-encoded payload second. Returns nil
// when no block parses.
func StructuredBlock(doc *htmldoc.Document) map[string]any {
	for _, block := range doc.PreBlocks() {
		if m := parseJSONObject([]byte(block)); m != nil {
			return m
		}
		if decoded, err := decodeBase64(strings.TrimSpace(block)); err == nil {
			if m := parseJSONObject(decoded); m != nil {
				return m
			}
		}
	}
	return nil
}

func parseJSONObject(b []byte) map[string]any {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	return m
}

func decodeBase64(s string) ([]byte, error) {
	if m := len(s) % 4; m != 0 {
		s += strings.Repeat("=", 4-m)
	}
	return base64.StdEncoding.DecodeString(s)
}

// TextualAnswer scans visible text left to right for the first numeric token.
// Tokens without a decimal point come back as integers, the rest as floats.
func TextualAnswer(text string) domain.Answer {
	tok := numberRe.FindString(text)
	if tok == "" {
		return domain.NoAnswer()
	}
	if integerRe.MatchString(tok) {
		if n, err := strconv.ParseInt(tok, 10, 64); err == nil {
			return domain.IntAnswer(n)
		}
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return domain.FloatAnswer(f)
	}
	return domain.StringAnswer(tok)
}
