package page

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is an immutable snapshot of a document at load time. Callers must not
// mutate Doc; extraction works on a Clone.
type Page struct {
	URL   string
	Title string
	Doc   *goquery.Document
	// Raw holds the bytes the snapshot was parsed from.
	Raw []byte
}

// Parse builds a Page from HTML bytes.
func Parse(rawURL string, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	if u, err := url.Parse(rawURL); err == nil {
		doc.Url = u
	}
	return &Page{
		URL:   rawURL,
		Title: findTitle(doc),
		Doc:   doc,
		Raw:   body,
	}, nil
}

func findTitle(doc *goquery.Document) string {
	t := doc.Find("head > title").First()
	if t.Length() == 0 {
		t = doc.Find("title").First()
	}
	return strings.TrimSpace(t.Text())
}

// Clone returns a deep copy of the document tree. Removing nodes from the
// copy leaves the snapshot untouched.
func (p *Page) Clone() *goquery.Document {
	if p == nil || p.Doc == nil {
		return nil
	}
	clone := p.Doc.Selection.Clone()
	doc := goquery.NewDocumentFromNode(clone.Nodes[0])
	doc.Url = p.Doc.Url
	return doc
}

// Getter is the part of fetch.Client used to retrieve remote pages.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, string, error)
}

// Load fetches target when it is an http(s) URL and otherwise reads it as a
// local HTML file.
func Load(ctx context.Context, g Getter, target string) (*Page, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("empty page target")
	}
	if isRemote(target) {
		if g == nil {
			return nil, fmt.Errorf("no fetcher configured for %s", target)
		}
		body, _, err := g.Get(ctx, target)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", target, err)
		}
		return Parse(target, body)
	}
	body, err := os.ReadFile(target)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	abs, err := filepath.Abs(target)
	if err != nil {
		abs = target
	}
	return Parse((&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String(), body)
}

func isRemote(target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return (s == "http" || s == "https") && u.Host != ""
}
