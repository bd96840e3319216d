package extract

import (
	"testing"

	"github.com/lmartins/quizchain/internal/htmldoc"
)

func TestResolveSubmitURL(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		links []htmldoc.Link
		want  string
	}{
		{
			name: "submit link wins over text",
			text: "post to https://quiz.example/other",
			links: []htmldoc.Link{
				{Href: "https://quiz.example/about", Text: "about"},
				{Href: "https://quiz.example/submit-answer", Text: "submit"},
			},
			want: "https://quiz.example/submit-answer",
		},
		{
			name: "submit url in text",
			text: "send your answer to https://quiz.example/api/submit now",
			want: "https://quiz.example/api/submit",
		},
		{
			name: "any url fallback",
			text: "the grader lives at https://quiz.example/grade",
			want: "https://quiz.example/grade",
		},
		{
			name: "nothing found",
			text: "no endpoints on this page",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := htmldoc.New("https://quiz.example/q1", tt.text, tt.links, nil)
			if got := ResolveSubmitURL(doc); got != tt.want {
				t.Errorf("ResolveSubmitURL() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFindAnyURL(t *testing.T) {
	text := "padding padding https://quiz.example/next trailing"
	if got := FindAnyURL(text, 0); got != "https://quiz.example/next" {
		t.Errorf("FindAnyURL() = %q", got)
	}
	// A scan limit that cuts before the URL hides it.
	if got := FindAnyURL(text, 10); got != "" {
		t.Errorf("FindAnyURL() with limit = %q, want empty", got)
	}
}
