package extract

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/lmartins/quizchain/internal/htmldoc"
	"github.com/lmartins/quizchain/pkg/domain"
)

func newTestExtractor() *Extractor {
	return New(5*time.Second, "value", nil)
}

func docWith(text string, pres []string, links []htmldoc.Link) *htmldoc.Document {
	return htmldoc.New("https://quiz.example/q1", text, links, pres)
}

func TestStructuredAnswerWinsOverText(t *testing.T) {
	// Both a structured answer and a numeric body token are present; the
	// structured value must win.
	doc := docWith("The result is 17 items", []string{`{"answer": 42}`}, nil)
	got := newTestExtractor().Extract(context.Background(), doc)
	if got != domain.IntAnswer(42) {
		t.Errorf("Extract() = %+v, want structured 42", got)
	}
}

func TestStructuredAnswerStringScalar(t *testing.T) {
	doc := docWith("", []string{`{"answer": "blue"}`}, nil)
	got := newTestExtractor().Extract(context.Background(), doc)
	if got != domain.StringAnswer("blue") {
		t.Errorf("Extract() = %+v, want string answer", got)
	}
}

func TestStructuredAnswerFloatScalar(t *testing.T) {
	doc := docWith("", []string{`{"answer": 3.5}`}, nil)
	got := newTestExtractor().Extract(context.Background(), doc)
	if got != domain.FloatAnswer(3.5) {
		t.Errorf("Extract() = %+v, want float answer", got)
	}
}

func TestStructuredBlockBase64(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"answer": 9}`))
	doc := docWith("", []string{encoded}, nil)
	m := StructuredBlock(doc)
	if m == nil {
		t.Fatal("StructuredBlock() = nil for base64 JSON")
	}
	if m["answer"] != float64(9) {
		t.Errorf("answer = %v", m["answer"])
	}
}

func TestStructuredBlockGarbage(t *testing.T) {
	doc := docWith("", []string{"not json at all"}, nil)
	if m := StructuredBlock(doc); m != nil {
		t.Errorf("StructuredBlock() = %v, want nil", m)
	}
}

func TestTextualFallbackInteger(t *testing.T) {
	doc := docWith("The result is 17 items", nil, nil)
	got := newTestExtractor().Extract(context.Background(), doc)
	if got != domain.IntAnswer(17) {
		t.Errorf("Extract() = %+v, want integer 17", got)
	}
}

func TestTextualAnswer(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.Answer
	}{
		{"integer token", "count: 17 items", domain.IntAnswer(17)},
		{"float token", "avg 3.25 per row", domain.FloatAnswer(3.25)},
		{"negative integer", "delta -4 today", domain.IntAnswer(-4)},
		{"float before int", "pi is 3.14 and e rounds to 3", domain.FloatAnswer(3.14)},
		{"no numbers", "nothing to see here", domain.NoAnswer()},
		{"empty text", "", domain.NoAnswer()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TextualAnswer(tt.text); got != tt.want {
				t.Errorf("TextualAnswer(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractNeverErrors(t *testing.T) {
	doc := docWith("", nil, nil)
	got := newTestExtractor().Extract(context.Background(), doc)
	if !got.IsNone() {
		t.Errorf("Extract() on empty page = %+v, want no-answer sentinel", got)
	}
}
