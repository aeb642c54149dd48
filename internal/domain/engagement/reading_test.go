package engagement

import (
	"testing"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
)

// The article starts 1000px down the page and is 2000px tall; the viewport is 800px.
func articleDocument(wordCount int) *fakeDocument {
	return &fakeDocument{
		viewport: Viewport{ScrollY: 0, ScrollHeight: 4000, Height: 800},
		root: &ContentRoot{
			Selector: "article",
			Text:     words(wordCount),
			Rect:     Rect{Top: 1000, Height: 2000},
		},
	}
}

func readAt(progress float64) ScrollObservation {
	return ScrollObservation{ScrollY: 1000 + progress*20, ScrollHeight: 4000, ViewportHeight: 800}
}

type readingHarness struct {
	tracker *ReadingCompletionTracker
	rec     *recorder
	clk     *clock.Fake
	flags   *MemoryFlags
}

func newReadingHarness(doc Document, flags *MemoryFlags) readingHarness {
	if flags == nil {
		flags = NewMemoryFlags()
	}
	clk := newFakeClock()
	rec := &recorder{}
	cfg := DefaultReadingConfig()
	cfg.PageKey = "/blog/post"
	tr := NewReadingCompletionTracker(cfg, doc, flags, clk, rec, nil)
	tr.Init()
	return readingHarness{tracker: tr, rec: rec, clk: clk, flags: flags}
}

// scroll posts one observation and waits out the throttle window.
func (h readingHarness) scroll(progress float64) {
	h.tracker.HandleScroll(readAt(progress))
	h.clk.Advance(6 * time.Second)
}

func TestReadingWordCountAndEstimate(t *testing.T) {
	doc := articleDocument(450)
	doc.root.Text = "  Hello   wörld\n\tfrom the  article  " + words(445)
	h := newReadingHarness(doc, nil)

	m := h.tracker.ReadingMetrics()
	if !m.Enabled {
		t.Fatal("tracker should be enabled")
	}
	if m.TotalWords != 450 {
		t.Fatalf("TotalWords = %d, want 450", m.TotalWords)
	}
	if m.EstimatedMinutes != 3 {
		t.Fatalf("EstimatedMinutes = %d, want 3", m.EstimatedMinutes)
	}
	if m.Started {
		t.Fatal("reading must not start while the article is below the fold")
	}
}

func TestEstimatedReadingMinutes(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 200: 1, 201: 2, 1000: 5}
	for words, want := range cases {
		if got := EstimatedReadingMinutes(words); got != want {
			t.Errorf("EstimatedReadingMinutes(%d) = %d, want %d", words, got, want)
		}
	}
}

func TestReadingStartsWhenContentEntersViewport(t *testing.T) {
	h := newReadingHarness(articleDocument(400), nil)

	h.tracker.HandleScroll(ScrollObservation{ScrollY: 100, ScrollHeight: 4000, ViewportHeight: 800})
	if h.tracker.ReadingMetrics().Started {
		t.Fatal("content still below the viewport")
	}

	h.tracker.HandleScroll(ScrollObservation{ScrollY: 300, ScrollHeight: 4000, ViewportHeight: 800})
	m := h.tracker.ReadingMetrics()
	if !m.Started || m.ProgressPercent != 0 {
		t.Fatalf("metrics = %+v, want started with 0 progress", m)
	}
	if n := h.rec.count(EventReadingStarted); n != 1 {
		t.Fatalf("reading_started reports = %d, want 1", n)
	}

	h.tracker.HandleScroll(ScrollObservation{ScrollY: 500, ScrollHeight: 4000, ViewportHeight: 800})
	if n := h.rec.count(EventReadingStarted); n != 1 {
		t.Fatalf("reading_started must fire once, got %d", n)
	}
}

func TestReadingStartsAtInitWhenContentAboveFold(t *testing.T) {
	doc := articleDocument(100)
	doc.root.Rect = Rect{Top: 200, Height: 1500}
	h := newReadingHarness(doc, nil)

	if !h.tracker.ReadingMetrics().Started {
		t.Fatal("content visible at load should start reading")
	}
}

func TestReadingProgressIsRelativeToContent(t *testing.T) {
	root := Rect{Top: 1000, Height: 2000}
	cases := []struct {
		scrollY float64
		want    int
	}{
		{0, 0},
		{1000, 0},
		{1500, 25},
		{2000, 50},
		{3000, 100},
		{5000, 100},
	}
	for _, tc := range cases {
		if got := ReadingProgress(tc.scrollY, root); got != tc.want {
			t.Errorf("ReadingProgress(%v) = %d, want %d", tc.scrollY, got, tc.want)
		}
	}
	if got := ReadingProgress(500, Rect{Top: 0, Height: 0}); got != 0 {
		t.Errorf("zero-height content = %d, want 0", got)
	}
}

func TestReadingProgressIsThrottled(t *testing.T) {
	h := newReadingHarness(articleDocument(400), nil)

	h.tracker.HandleScroll(readAt(10))
	if got := h.tracker.Progress(); got != 10 {
		t.Fatalf("first check should run eagerly, progress = %d", got)
	}

	h.clk.Advance(2 * time.Second)
	h.tracker.HandleScroll(readAt(40))
	if got := h.tracker.Progress(); got != 10 {
		t.Fatalf("check inside the throttle window ran, progress = %d", got)
	}

	h.clk.Advance(3 * time.Second)
	h.tracker.HandleScroll(readAt(40))
	if got := h.tracker.Progress(); got != 40 {
		t.Fatalf("progress = %d, want 40 once the window passed", got)
	}
}

func TestReadingMilestonesFireOnce(t *testing.T) {
	h := newReadingHarness(articleDocument(600), nil)

	for _, p := range []float64{30, 10, 55, 20, 80, 40, 80} {
		h.scroll(p)
	}

	got := h.rec.events(EventReadingMilestone)
	want := []int{25, 50, 75}
	if len(got) != len(want) {
		t.Fatalf("milestones = %d, want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.props["milestone"] != want[i] {
			t.Errorf("milestone[%d] = %v, want %d", i, r.props["milestone"], want[i])
		}
	}
	if !h.flags.Get("reading_milestone_/blog/post_75") {
		t.Fatal("milestone flag should be persisted")
	}
}

func TestReadingCompletionReportsObservedSpeed(t *testing.T) {
	h := newReadingHarness(articleDocument(600), nil)

	h.tracker.HandleScroll(readAt(0))
	h.clk.Advance(3 * time.Minute)
	h.tracker.HandleScroll(readAt(100))

	completed := h.rec.events(EventReadingCompleted)
	if len(completed) != 1 {
		t.Fatalf("reading_completed reports = %d, want 1", len(completed))
	}
	props := completed[0].props
	if props["words_per_minute"] != float64(200) {
		t.Errorf("words_per_minute = %v, want 200", props["words_per_minute"])
	}
	if props["elapsed_s"] != float64(180) {
		t.Errorf("elapsed_s = %v, want 180", props["elapsed_s"])
	}
	if props["estimated_minutes"] != 3 {
		t.Errorf("estimated_minutes = %v, want 3", props["estimated_minutes"])
	}
	if props["reading_style"] != StyleNormal {
		t.Errorf("reading_style = %v, want normal", props["reading_style"])
	}

	m := h.tracker.ReadingMetrics()
	if !m.Completed || m.ActualWordsRead != 600 || m.CompletionProbability != 1.0 {
		t.Fatalf("metrics = %+v", m)
	}

	h.scroll(20)
	h.scroll(100)
	if n := h.rec.count(EventReadingCompleted); n != 1 {
		t.Fatalf("reading_completed must fire once, got %d", n)
	}
}

func TestReadingMilestonesSurviveReload(t *testing.T) {
	flags := NewMemoryFlags()
	first := newReadingHarness(articleDocument(300), flags)
	first.scroll(0)
	first.scroll(60)

	second := newReadingHarness(articleDocument(300), flags)
	second.scroll(0)
	second.scroll(100)

	got := second.rec.events(EventReadingMilestone)
	if len(got) != 2 {
		t.Fatalf("milestones after reload = %d, want 2 (75 and 100)", len(got))
	}
	if got[0].props["milestone"] != 75 || got[1].props["milestone"] != 100 {
		t.Fatalf("milestones = %v, %v", got[0].props["milestone"], got[1].props["milestone"])
	}
	if n := second.rec.count(EventReadingCompleted); n != 1 {
		t.Fatalf("reading_completed = %d, want 1", n)
	}

	third := newReadingHarness(articleDocument(300), flags)
	third.scroll(0)
	third.scroll(100)
	if n := len(third.rec.events(EventReadingMilestone)) + third.rec.count(EventReadingCompleted); n != 0 {
		t.Fatalf("already reached milestones re-fired %d reports", n)
	}
	if !third.tracker.ReadingMetrics().Completed {
		t.Fatal("completion should still be stamped locally")
	}
}

func TestReadingWithoutContentRootIsDisabled(t *testing.T) {
	h := newReadingHarness(&fakeDocument{viewport: Viewport{Height: 800}}, nil)

	h.scroll(100)
	if h.tracker.ReadingMetrics().Enabled {
		t.Fatal("tracker should be disabled")
	}
	if n := len(h.rec.all()); n != 0 {
		t.Fatalf("reports = %d, want 0", n)
	}
}

func TestCompletionProbabilitySteps(t *testing.T) {
	cases := map[int]float64{0: 0.1, 24: 0.1, 25: 0.4, 49: 0.4, 50: 0.7, 74: 0.7, 75: 0.9, 99: 0.9, 100: 1.0}
	for progress, want := range cases {
		if got := CompletionProbability(progress); got != want {
			t.Errorf("CompletionProbability(%d) = %v, want %v", progress, got, want)
		}
	}
}

func TestClassifyReadingSpeed(t *testing.T) {
	cases := map[float64]string{50: StyleCareful, 100: StyleCareful, 101: StyleNormal, 299: StyleNormal, 300: StyleSkimming, 900: StyleSkimming}
	for wpm, want := range cases {
		if got := ClassifyReadingSpeed(wpm); got != want {
			t.Errorf("ClassifyReadingSpeed(%v) = %q, want %q", wpm, got, want)
		}
	}
}

func TestReadingGeometryUpdate(t *testing.T) {
	h := newReadingHarness(articleDocument(200), nil)

	h.tracker.UpdateGeometry(GeometryObservation{ContentTop: 0, ContentHeight: 1000})
	h.tracker.HandleScroll(ScrollObservation{ScrollY: 500, ScrollHeight: 4000, ViewportHeight: 800})

	if got := h.tracker.Progress(); got != 50 {
		t.Fatalf("progress = %d, want 50 with the reported geometry", got)
	}
}

func TestReadingMilestonesAreOrderedAndDeduplicated(t *testing.T) {
	clk := newFakeClock()
	rec := &recorder{}
	cfg := DefaultReadingConfig()
	cfg.PageKey = "/blog/post"
	cfg.Milestones = []int{100, 25, 50, 75, 50}
	tr := NewReadingCompletionTracker(cfg, articleDocument(400), NewMemoryFlags(), clk, rec, nil)
	tr.Init()

	tr.HandleScroll(readAt(100))

	var got []int
	var order []string
	for _, r := range rec.all() {
		if r.event == EventReadingMilestone {
			got = append(got, r.props["milestone"].(int))
		}
		if r.event == EventReadingMilestone || r.event == EventReadingCompleted {
			order = append(order, r.event)
		}
	}
	want := []int{25, 50, 75, 100}
	if len(got) != len(want) {
		t.Fatalf("milestones = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("milestones = %v, want %v", got, want)
		}
	}
	if order[len(order)-1] != EventReadingCompleted {
		t.Fatalf("reading_completed must follow every milestone, got %v", order)
	}
}

// lockCheckingFlags records whether the tracker stayed usable while a flag
// lookup was in flight.
type lockCheckingFlags struct {
	*MemoryFlags
	tracker *ReadingCompletionTracker
	blocked bool
	calls   int
}

func (f *lockCheckingFlags) Get(key string) bool {
	f.calls++
	done := make(chan struct{})
	go func() {
		f.tracker.Progress()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		f.blocked = true
	}
	return f.MemoryFlags.Get(key)
}

func TestReadingFlagLookupsRunOutsideTrackerLock(t *testing.T) {
	flags := &lockCheckingFlags{MemoryFlags: NewMemoryFlags()}
	clk := newFakeClock()
	rec := &recorder{}
	cfg := DefaultReadingConfig()
	cfg.PageKey = "/blog/post"
	tr := NewReadingCompletionTracker(cfg, articleDocument(400), flags, clk, rec, nil)
	flags.tracker = tr
	tr.Init()

	tr.HandleScroll(readAt(60))

	if flags.calls != 2 {
		t.Fatalf("flag lookups = %d, want 2", flags.calls)
	}
	if flags.blocked {
		t.Fatal("tracker lock was held during a flag store lookup")
	}
	if rec.count(EventReadingMilestone) != 2 {
		t.Fatalf("milestones = %d, want 2", rec.count(EventReadingMilestone))
	}
}
