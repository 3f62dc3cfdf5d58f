package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperifyio/pageassist/internal/page"
)

const pageURL = "https://example.com/docs"

func mustPage(t *testing.T, html string) *page.Page {
	t.Helper()
	p, err := page.Parse(pageURL, []byte(html))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

func sentence(word string, n int) string {
	return strings.TrimSpace(strings.Repeat(word+" ", n))
}

func contentOf(t *testing.T, out string) string {
	t.Helper()
	const label = "\n\nContent:\n"
	i := strings.Index(out, label)
	if i < 0 {
		t.Fatalf("missing content label in %q", out)
	}
	return out[i+len(label):]
}

func TestExtract_MainLandmarkTrimmedText(t *testing.T) {
	para := sentence("landmark", 20)
	p := mustPage(t, `<html><head><title>Docs</title></head><body>
        <nav>Navigation links</nav>
        <main>
          <p>`+para+`</p>
          <script>var hidden = "script text";</script>
        </main>
      </body></html>`)

	out := HeuristicExtractor{}.Extract(p)
	if !strings.HasPrefix(out, "Page Title: Docs\nURL: "+pageURL+"\n\nContent:\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	if got := contentOf(t, out); got != para {
		t.Fatalf("content = %q, want %q", got, para)
	}
}

func TestExtract_LandmarkPriority(t *testing.T) {
	articleText := sentence("article", 20)
	mainText := sentence("main", 30)
	p := mustPage(t, `<body><article>`+articleText+`</article><main>`+mainText+`</main></body>`)

	res := FromPage(p)
	if res.Stage != StageLandmark {
		t.Fatalf("stage = %v, want landmark", res.Stage)
	}
	if res.Content != mainText {
		t.Fatalf("expected <main> to win over earlier <article>; got %q", res.Content)
	}

	roleText := sentence("role", 30)
	classText := sentence("klass", 30)
	p = mustPage(t, `<body><div class="content">`+classText+`</div><section role="main">`+roleText+`</section></body>`)
	if got := FromPage(p).Content; got != roleText {
		t.Fatalf("expected role=main to win over .content; got %q", got)
	}
}

func TestExtract_DensityPicksLargestDivision(t *testing.T) {
	big := "<p>" + sentence("alpha", 20) + "</p><p>" + sentence("alpha", 20) + "</p><h2>Alpha heading</h2><li>alpha item</li>"
	small := "<p>" + sentence("beta", 20) + "</p><p>" + sentence("beta", 20) + "</p><h3>Beta heading</h3><li>beta item</li>"
	p := mustPage(t, `<body><main>tiny</main><div id="big">`+big+`</div><div id="small">`+small+`</div></body>`)

	res := FromPage(p)
	if res.Stage != StageDensity {
		t.Fatalf("stage = %v, want density", res.Stage)
	}
	if !strings.Contains(res.Content, "alpha item") || strings.Contains(res.Content, "beta") {
		t.Fatalf("expected the larger division; got %q", res.Content)
	}
}

func TestExtract_DensityNeedsMoreThanThreeBlocks(t *testing.T) {
	three := "<p>" + sentence("gamma", 20) + "</p><p>" + sentence("gamma", 20) + "</p><p>" + sentence("gamma", 20) + "</p>"
	p := mustPage(t, `<body><div>`+three+`</div></body>`)

	res := FromPage(p)
	if res.Stage != StageAggregate {
		t.Fatalf("stage = %v, want aggregate", res.Stage)
	}
	want := strings.Join([]string{sentence("gamma", 20), sentence("gamma", 20), sentence("gamma", 20)}, "\n\n")
	if res.Content != want {
		t.Fatalf("content = %q, want %q", res.Content, want)
	}
}

func TestExtract_AggregationFallback(t *testing.T) {
	p := mustPage(t, `<html><head><title>Agg</title></head><body>
        <main>Too short to count</main>
        <h1>A heading that is long enough</h1>
        <p>short para</p>
        <p>  A paragraph with plenty of characters  </p>
        <ul><li>A list item that is also long</li></ul>
        <table><tr><td>A table cell with enough text</td><td>tiny</td></tr></table>
      </body></html>`)

	out := HeuristicExtractor{}.Extract(p)
	want := strings.Join([]string{
		"A heading that is long enough",
		"A paragraph with plenty of characters",
		"A list item that is also long",
		"A table cell with enough text",
	}, "\n\n")
	if got := contentOf(t, out); got != want {
		t.Fatalf("content = %q, want %q", got, want)
	}
}

func TestExtract_BodyTextLastResort(t *testing.T) {
	p := mustPage(t, `<html><head><title>Bare</title><style>body{}</style></head><body>  just loose text  <span>here</span></body></html>`)

	out := HeuristicExtractor{}.Extract(p)
	if got := contentOf(t, out); got != "just loose text  here" {
		t.Fatalf("content = %q", got)
	}
}

func TestExtract_TruncatesToProfile(t *testing.T) {
	long := sentence("überlong", 3000)
	p := mustPage(t, `<body><main>`+long+`</main></body>`)

	for _, prof := range []Profile{ProfileFull, ProfileCompact} {
		out := HeuristicExtractor{Profile: prof}.Extract(p)
		if n := utf8.RuneCountInString(out); n != prof.MaxChars {
			t.Fatalf("%s: length = %d, want %d", prof.Name, n, prof.MaxChars)
		}
		if !strings.HasSuffix(out, TruncationMarker) {
			t.Fatalf("%s: expected truncation marker", prof.Name)
		}
		if !utf8.ValidString(out) {
			t.Fatalf("%s: truncation split a rune", prof.Name)
		}
	}
}

func TestExtract_ShortOutputNotTruncated(t *testing.T) {
	p := mustPage(t, `<body><p>hello there, this is a sentence</p></body>`)
	out := HeuristicExtractor{}.Extract(p)
	if strings.HasSuffix(out, TruncationMarker) {
		t.Fatalf("did not expect truncation: %q", out)
	}
}

func TestExtract_IdempotentAndNonMutating(t *testing.T) {
	p := mustPage(t, `<body><script>x()</script><iframe src="a"></iframe><article>`+sentence("stable", 40)+`</article></body>`)

	first := HeuristicExtractor{}.Extract(p)
	second := HeuristicExtractor{}.Extract(p)
	if first != second {
		t.Fatalf("extraction is not idempotent")
	}
	if p.Doc.Find("script").Length() != 1 || p.Doc.Find("iframe").Length() != 1 {
		t.Fatalf("extraction mutated the original document")
	}
}

func TestExtract_DegradedOnFailure(t *testing.T) {
	out := HeuristicExtractor{}.Extract(&page.Page{Title: "Broken", URL: pageURL})
	if !strings.HasPrefix(out, "Failed to extract content: no document") {
		t.Fatalf("unexpected degraded output: %q", out)
	}
	if !strings.HasSuffix(out, "Page title: Broken") {
		t.Fatalf("expected title in degraded output: %q", out)
	}
	if out := (HeuristicExtractor{}).Extract(nil); !strings.HasPrefix(out, "Failed to extract content") {
		t.Fatalf("nil page: %q", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abc", 0); got != "abc" {
		t.Fatalf("zero cap should disable truncation, got %q", got)
	}
	if got := Truncate("abcdef", 5); got != TruncationMarker[:5] {
		t.Fatalf("tiny cap = %q", got)
	}
	s := strings.Repeat("x", 100)
	got := Truncate(s, 50)
	if len(got) != 50 || !strings.HasSuffix(got, TruncationMarker) {
		t.Fatalf("got %q", got)
	}
}

func TestProfileByName(t *testing.T) {
	if p, ok := ProfileByName(""); !ok || p != ProfileFull {
		t.Fatalf("empty name should map to full profile")
	}
	if p, ok := ProfileByName("Compact"); !ok || p.MaxChars != 8000 {
		t.Fatalf("compact profile = %+v", p)
	}
	if _, ok := ProfileByName("huge"); ok {
		t.Fatalf("unknown profile accepted")
	}
}

func TestNew_Modes(t *testing.T) {
	if _, err := New("heuristic", ProfileFull); err != nil {
		t.Fatalf("heuristic: %v", err)
	}
	if _, err := New("readability", ProfileFull); err != nil {
		t.Fatalf("readability: %v", err)
	}
	if _, err := New("magic", ProfileFull); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestReadabilityExtractor_FallsBackOnSparsePage(t *testing.T) {
	p := mustPage(t, `<html><head><title>Sparse</title></head><body>tiny text</body></html>`)
	out := ReadabilityExtractor{}.Extract(p)
	if !strings.HasPrefix(out, "Page Title: Sparse\n") || !strings.Contains(out, "tiny text") {
		t.Fatalf("unexpected output: %q", out)
	}
}

const richArticle = `<html><head><title>Field Notes</title></head><body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article>
<h1>Migrating the storage layer</h1>
<p>The storage layer moved from flat files to an embedded database last spring, and the migration ran without downtime across every region we operate.</p>
<p>Writes were mirrored to both backends for two weeks while a background job compared the results, which surfaced three encoding bugs before the cutover happened.</p>
<p>Reads switched over one region at a time. Latency dropped by roughly a third, and the nightly compaction job that used to take an hour now finishes in minutes.</p>
<p>The old flat file reader stays in the tree for one more release so that archived snapshots can still be opened by the export tooling.</p>
</article>
<footer>Copyright notice</footer>
</body></html>`

func TestReadableText_ExtractsArticleBody(t *testing.T) {
	text, err := readableText(mustPage(t, richArticle))
	if err != nil {
		t.Fatalf("readableText: %v", err)
	}
	if !strings.Contains(text, "embedded database last spring") || !strings.Contains(text, "nightly compaction job") {
		t.Fatalf("article body missing: %q", text)
	}
	if strings.Contains(text, "Copyright notice") {
		t.Fatalf("footer kept: %q", text)
	}
}

func TestReadabilityExtractor_UsesArticleBody(t *testing.T) {
	out := ReadabilityExtractor{Profile: ProfileFull}.Extract(mustPage(t, richArticle))
	if !strings.HasPrefix(out, "Page Title: Field Notes\nURL: "+pageURL+"\n\nContent:\n") {
		t.Fatalf("unexpected header: %q", out)
	}
	if !strings.Contains(out, "Writes were mirrored to both backends") {
		t.Fatalf("article text missing: %q", out)
	}
	if runeLen(out) > ProfileFull.MaxChars {
		t.Fatalf("output exceeds cap: %d", runeLen(out))
	}
}
