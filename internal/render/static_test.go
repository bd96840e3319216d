package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestStaticRender(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><pre>{"answer": 7}</pre><a href="/submit">go</a></body></html>`))
	}))
	defer srv.Close()

	r := NewStatic(Options{Timeout: 5 * time.Second})
	defer r.Close()

	doc, err := r.Render(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(doc.PreBlocks()) != 1 || doc.PreBlocks()[0] != `{"answer": 7}` {
		t.Errorf("PreBlocks() = %v", doc.PreBlocks())
	}
	links := doc.Links()
	if len(links) != 1 || links[0].Href != srv.URL+"/submit" {
		t.Errorf("Links() = %v", links)
	}
}

func TestStaticRenderNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	r := NewStatic(Options{Timeout: 5 * time.Second})
	defer r.Close()

	if _, err := r.Render(context.Background(), srv.URL); err == nil {
		t.Fatal("Render() accepted non-2xx status")
	} else if !strings.Contains(err.Error(), "410") {
		t.Errorf("Render() error = %v, want status in message", err)
	}
}

func TestStaticRenderContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer srv.Close()

	r := NewStatic(Options{Timeout: 5 * time.Second})
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := r.Render(ctx, srv.URL); err == nil {
		t.Fatal("Render() ignored context deadline")
	}
}
