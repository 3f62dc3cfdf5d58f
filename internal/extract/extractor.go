package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"

	"github.com/hyperifyio/pageassist/internal/page"
)

// Extractor turns a page snapshot into the context string sent with chat
// requests. Implementations never panic and never return an empty string for
// a page that has body text.
type Extractor interface {
	Extract(p *page.Page) string
}

// Profile bounds the extractor output.
type Profile struct {
	Name     string
	MaxChars int
}

var (
	// ProfileFull is the canonical profile.
	ProfileFull = Profile{Name: "full", MaxChars: 10_000}
	// ProfileCompact keeps the prompt smaller for short-context models.
	ProfileCompact = Profile{Name: "compact", MaxChars: 8_000}
)

// ProfileByName resolves a profile name; unknown names return false.
func ProfileByName(name string) (Profile, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileFull.Name:
		return ProfileFull, true
	case ProfileCompact.Name:
		return ProfileCompact, true
	}
	return Profile{}, false
}

// HeuristicExtractor tries landmark containers, then the densest division,
// then aggregates individual text elements.
type HeuristicExtractor struct {
	Profile Profile
}

func (e HeuristicExtractor) Extract(p *page.Page) (out string) {
	title := titleOf(p)
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("title", title).Msg("content extraction failed")
			out = Degraded(title, r)
		}
	}()
	res := FromPage(p)
	out = Format(res.Title, res.URL, res.Content, e.maxChars())
	log.Debug().Str("stage", res.Stage.String()).Int("chars", runeLen(out)).Msg("final content length")
	return out
}

func (e HeuristicExtractor) maxChars() int {
	if e.Profile.MaxChars > 0 {
		return e.Profile.MaxChars
	}
	return ProfileFull.MaxChars
}

// ReadabilityExtractor takes the content body from go-readability and uses
// the heuristic pipeline when readability finds nothing usable.
type ReadabilityExtractor struct {
	Profile Profile
}

func (e ReadabilityExtractor) Extract(p *page.Page) (out string) {
	title := titleOf(p)
	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Str("title", title).Msg("readability extraction failed")
			out = Degraded(title, r)
		}
	}()
	fallback := HeuristicExtractor{Profile: e.Profile}
	text, err := readableText(p)
	if err != nil {
		log.Debug().Err(err).Msg("readability unavailable; using heuristic extractor")
		return fallback.Extract(p)
	}
	if runeLen(text) < MinContentChars {
		log.Debug().Int("chars", runeLen(text)).Msg("readability content too short; using heuristic extractor")
		return fallback.Extract(p)
	}
	return Format(p.Title, p.URL, text, fallback.maxChars())
}

func readableText(p *page.Page) (string, error) {
	if p == nil || p.Doc == nil {
		return "", fmt.Errorf("no document")
	}
	doc := p.Clone()
	doc.Find(removedSelector).Remove()
	var src bytes.Buffer
	if err := html.Render(&src, doc.Nodes[0]); err != nil {
		return "", fmt.Errorf("render document: %w", err)
	}
	u, _ := url.Parse(p.URL)
	rp := readability.NewParser()
	article, err := rp.Parse(&src, u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	body, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return "", fmt.Errorf("parse readability content: %w", err)
	}
	return strings.TrimSpace(body.Text()), nil
}

// New returns the extractor for mode ("heuristic" or "readability").
func New(mode string, profile Profile) (Extractor, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "heuristic":
		return HeuristicExtractor{Profile: profile}, nil
	case "readability":
		return ReadabilityExtractor{Profile: profile}, nil
	}
	return nil, fmt.Errorf("unknown extract mode %q", mode)
}

func titleOf(p *page.Page) string {
	if p == nil {
		return ""
	}
	return p.Title
}
