// Package htmldoc turns raw page HTML into an immutable snapshot of the
// pieces the solver cares about: visible body text, hyperlinks resolved
// against the page URL, and <pre> block contents.
package htmldoc

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

type Link struct {
	Href string // absolute
	Text string
}

type Document struct {
	pageURL  string
	base     *url.URL
	bodyText string
	links    []Link
	pres     []string
}

// Parse builds a Document from raw HTML. The body text here is the parser's
// view of visible text; a renderer that can ask the browser for a more
// faithful snapshot may override it via WithBodyText.
func Parse(pageURL string, body []byte) (*Document, error) {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, err
	}

	d := &Document{pageURL: pageURL, base: base}
	var text strings.Builder

	var walker func(*html.Node)
	walker = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				return
			case "a":
				for _, attr := range n.Attr {
					if attr.Key == "href" {
						href := strings.TrimSpace(attr.Val)
						if href == "" {
							continue
						}
						abs := d.Resolve(href)
						if abs != "" {
							d.links = append(d.links, Link{Href: abs, Text: nodeText(n)})
						}
					}
				}
			case "pre":
				d.pres = append(d.pres, strings.TrimSpace(nodeText(n)))
			}
		}
		if n.Type == html.TextNode {
			t := strings.TrimSpace(n.Data)
			if t != "" {
				if text.Len() > 0 {
					text.WriteByte('\n')
				}
				text.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walker(c)
		}
	}
	walker(root)

	d.bodyText = text.String()
	return d, nil
}

// New builds a Document directly from its parts. Used by renderer fakes in
// tests; production documents come from Parse.
func New(pageURL, bodyText string, links []Link, pres []string) *Document {
	base, _ := url.Parse(pageURL)
	return &Document{pageURL: pageURL, base: base, bodyText: bodyText, links: links, pres: pres}
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func (d *Document) URL() string { return d.pageURL }

// Text returns the visible body text snapshot. Empty when the text read
// timed out at render time.
func (d *Document) Text() string { return d.bodyText }

func (d *Document) Links() []Link { return d.links }

// PreBlocks returns the trimmed contents of every <pre> element in
// document order.
func (d *Document) PreBlocks() []string { return d.pres }

// Resolve turns a possibly relative href into an absolute http(s) URL
// against the document's base, or "" if it cannot.
func (d *Document) Resolve(href string) string {
	if d.base == nil {
		return href
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	abs := d.base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return ""
	}
	return abs.String()
}

// WithBodyText returns a copy of the document with the body text replaced.
func (d *Document) WithBodyText(text string) *Document {
	cp := *d
	cp.bodyText = text
	return &cp
}
