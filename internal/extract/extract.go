package extract

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/pageassist/internal/page"
)

const (
	// MinContentChars is the qualification threshold for a candidate container.
	MinContentChars = 100
	// minDensityChars and minDensityBlocks bound Strategy 2 candidates.
	minDensityChars  = 200
	minDensityBlocks = 3
	// minElementChars filters elements collected by the aggregation fallback.
	minElementChars = 20

	// TruncationMarker terminates clipped output.
	TruncationMarker = "... (content truncated)"
)

// Non-content elements dropped from the working copy before any strategy runs.
const removedSelector = "script, style, noscript, svg, iframe"

// landmarkSelectors are tried in order; the first selector with a match wins.
var landmarkSelectors = []string{
	"main",
	"article",
	`[role="main"]`,
	".main-content",
	".content",
	"#content",
}

const (
	densityBlockSelector = "p, h1, h2, h3, li"
	aggregateSelector    = "h1, h2, h3, p, li, td"
)

// Stage names a state of the extraction pipeline.
type Stage int

const (
	StageLandmark Stage = iota
	StageDensity
	StageAggregate
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageLandmark:
		return "landmark"
	case StageDensity:
		return "density"
	case StageAggregate:
		return "aggregate"
	case StageDone:
		return "done"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// finder proposes a candidate container, or nil when it has none.
type finder struct {
	stage Stage
	find  func(doc *goquery.Document) *goquery.Selection
}

var finders = []finder{
	{stage: StageLandmark, find: findLandmark},
	{stage: StageDensity, find: findDensest},
}

// Result is the outcome of one extraction before formatting.
type Result struct {
	Title   string
	URL     string
	Content string
	Stage   Stage
}

// FromPage runs the strategy pipeline on a clean copy of p. It panics on
// malformed input; Extract wraps it with recovery.
func FromPage(p *page.Page) Result {
	if p == nil || p.Doc == nil {
		panic("no document")
	}
	doc := p.Clone()
	doc.Find(removedSelector).Remove()

	res := Result{Title: p.Title, URL: p.URL}

	// A finder that yields nothing keeps the previous candidate, which is
	// then re-checked and fails again.
	var candidate *goquery.Selection
	for _, f := range finders {
		if c := f.find(doc); c != nil {
			candidate = c
		}
		if qualifies(candidate) {
			res.Content = trimmedText(candidate)
			res.Stage = f.stage
			log.Debug().Str("stage", f.stage.String()).Str("element", describe(candidate)).Msg("extracted content")
			return res
		}
		log.Debug().Str("stage", f.stage.String()).Msg("no qualifying container; falling through")
	}

	res.Content = aggregate(doc)
	res.Stage = StageAggregate
	return res
}

func qualifies(s *goquery.Selection) bool {
	return s != nil && s.Length() > 0 && runeLen(trimmedText(s)) >= MinContentChars
}

func findLandmark(doc *goquery.Document) *goquery.Selection {
	for _, sel := range landmarkSelectors {
		if m := doc.Find(sel).First(); m.Length() > 0 {
			return m
		}
	}
	return nil
}

func findDensest(doc *goquery.Document) *goquery.Selection {
	type scored struct {
		sel *goquery.Selection
		n   int
	}
	var survivors []scored
	doc.Find("div").Each(func(_ int, div *goquery.Selection) {
		n := runeLen(trimmedText(div))
		if n <= minDensityChars {
			return
		}
		if div.Find(densityBlockSelector).Length() <= minDensityBlocks {
			return
		}
		survivors = append(survivors, scored{sel: div, n: n})
	})
	if len(survivors) == 0 {
		return nil
	}
	sort.SliceStable(survivors, func(i, j int) bool { return survivors[i].n > survivors[j].n })
	return survivors[0].sel
}

// aggregate joins every substantial heading, paragraph, list item and cell.
// Pages with none of those fall back to the whole body text.
func aggregate(doc *goquery.Document) string {
	var parts []string
	doc.Find(aggregateSelector).Each(func(_ int, s *goquery.Selection) {
		if t := trimmedText(s); runeLen(t) > minElementChars {
			parts = append(parts, t)
		}
	})
	if len(parts) > 0 {
		log.Debug().Int("elements", len(parts)).Msg("aggregated content elements")
		return strings.Join(parts, "\n\n")
	}
	log.Debug().Msg("falling back to body text")
	return trimmedText(doc.Find("body"))
}

// Format renders the header and content, truncated to maxChars runes. A
// clipped result ends with TruncationMarker and still fits in maxChars.
func Format(title, url, content string, maxChars int) string {
	out := fmt.Sprintf("Page Title: %s\nURL: %s\n\nContent:\n%s", title, url, content)
	return Truncate(out, maxChars)
}

// Truncate clips s to at most maxChars runes. maxChars <= 0 disables the cap.
func Truncate(s string, maxChars int) string {
	if maxChars <= 0 || runeLen(s) <= maxChars {
		return s
	}
	keep := maxChars - runeLen(TruncationMarker)
	if keep <= 0 {
		return string([]rune(TruncationMarker)[:maxChars])
	}
	return string([]rune(s)[:keep]) + TruncationMarker
}

// Degraded is the result used when extraction fails.
func Degraded(title string, err interface{}) string {
	return fmt.Sprintf("Failed to extract content: %v. Page title: %s", err, title)
}

func trimmedText(s *goquery.Selection) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(s.Text())
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func describe(s *goquery.Selection) string {
	if s == nil || s.Length() == 0 {
		return ""
	}
	name := goquery.NodeName(s)
	if id, ok := s.Attr("id"); ok && id != "" {
		name += "#" + id
	}
	if class, ok := s.Attr("class"); ok {
		if f := strings.Fields(class); len(f) > 0 {
			name += "." + f[0]
		}
	}
	return name
}
