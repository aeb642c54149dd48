package engagement

import (
	"testing"
	"time"
)

func newVisibilityTracker(caps Capabilities, ids ...string) (*ContentVisibilityTracker, *recorder) {
	rec := &recorder{}
	doc := &fakeDocument{tracked: ids}
	tr := NewContentVisibilityTracker(DefaultVisibilityConfig(), caps, doc, newFakeClock(), rec, nil)
	tr.Init()
	return tr, rec
}

func TestVisibilityInitObservesTaggedElements(t *testing.T) {
	tr, _ := newVisibilityTracker(Capabilities{}, "hero", "pricing", "faq", "hero")

	if got := len(tr.VisibilityData()); got != 3 {
		t.Fatalf("records = %d, want 3", got)
	}
	opts := tr.ObserverOptions()
	if len(opts.Thresholds) != 5 || opts.RootMargin != "0px 0px -50px 0px" {
		t.Fatalf("observer options = %+v", opts)
	}
}

func TestVisibilityFirstVisibleReportedOnce(t *testing.T) {
	tr, rec := newVisibilityTracker(Capabilities{}, "hero")

	tr.HandleIntersection(IntersectionObservation{ID: "hero", IsIntersecting: true, Ratio: 0.1})
	tr.HandleIntersection(IntersectionObservation{ID: "hero", IsIntersecting: false, Ratio: 0})
	tr.HandleIntersection(IntersectionObservation{ID: "hero", IsIntersecting: true, Ratio: 0.1})

	if n := rec.count(EventContentVisible); n != 1 {
		t.Fatalf("content_visible reports = %d, want 1", n)
	}
	if !tr.IsElementVisible("hero") {
		t.Fatal("hero should be visible")
	}
	if got := tr.VisibilityRatio("hero"); got != 0.1 {
		t.Fatalf("ratio = %v, want 0.1", got)
	}
}

func TestVisibilityMilestonesAreWriteOnce(t *testing.T) {
	tr, rec := newVisibilityTracker(Capabilities{}, "pricing")

	for _, ratio := range []float64{0.3, 0.0, 0.6, 0.2, 0.8, 1.0, 0.4, 1.0} {
		tr.HandleIntersection(IntersectionObservation{ID: "pricing", IsIntersecting: ratio > 0, Ratio: ratio})
	}

	got := rec.events(EventVisibilityMilestone)
	want := []int{25, 50, 75, 100}
	if len(got) != len(want) {
		t.Fatalf("milestone reports = %d, want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.props["milestone"] != want[i] {
			t.Errorf("milestone[%d] = %v, want %d", i, r.props["milestone"], want[i])
		}
		if r.props["element_id"] != "pricing" {
			t.Errorf("element_id = %v", r.props["element_id"])
		}
	}
}

func TestVisibilityJumpReportsEveryPassedMilestone(t *testing.T) {
	tr, rec := newVisibilityTracker(Capabilities{}, "gallery")

	tr.HandleIntersection(IntersectionObservation{ID: "gallery", IsIntersecting: true, Ratio: 0.76})

	if n := rec.count(EventVisibilityMilestone); n != 3 {
		t.Fatalf("milestone reports = %d, want 3", n)
	}
	if n := rec.count(EventContentVisible); n != 1 {
		t.Fatalf("content_visible reports = %d, want 1", n)
	}
}

func TestVisibilityUsesV2FlagWhenSupported(t *testing.T) {
	tr, rec := newVisibilityTracker(Capabilities{VisibilityV2: true}, "hero")

	tr.HandleIntersection(IntersectionObservation{ID: "hero", IsIntersecting: true, Ratio: 0.5, IsVisible: boolPtr(false)})
	if tr.IsElementVisible("hero") {
		t.Fatal("occluded element must not count as visible")
	}
	if n := rec.count(EventContentVisible); n != 0 {
		t.Fatalf("content_visible reports = %d, want 0", n)
	}

	tr.HandleIntersection(IntersectionObservation{ID: "hero", IsIntersecting: true, Ratio: 0.5, IsVisible: boolPtr(true)})
	if !tr.IsElementVisible("hero") {
		t.Fatal("element should be visible")
	}
}

func TestVisibilityFallsBackToRatioWithoutV2(t *testing.T) {
	tr, _ := newVisibilityTracker(Capabilities{}, "hero", "footer")

	// A client without v2 support never sets IsVisible; a stray value is ignored.
	tr.HandleIntersection(IntersectionObservation{ID: "hero", IsIntersecting: true, Ratio: 0.5, IsVisible: boolPtr(false)})
	if !tr.IsElementVisible("hero") {
		t.Fatal("ratio fallback should mark the element visible")
	}

	v2, _ := newVisibilityTracker(Capabilities{VisibilityV2: true}, "footer")
	v2.HandleIntersection(IntersectionObservation{ID: "footer", IsIntersecting: true, Ratio: 0.3})
	if !v2.IsElementVisible("footer") {
		t.Fatal("missing v2 field should fall back to the ratio")
	}
}

func TestVisibilityDynamicElements(t *testing.T) {
	tr, rec := newVisibilityTracker(Capabilities{})

	tr.HandleIntersection(IntersectionObservation{ID: "late", IsIntersecting: true, Ratio: 1})
	if n := len(rec.all()); n != 0 {
		t.Fatalf("unknown element produced %d reports", n)
	}

	tr.ObserveElement("late")
	tr.HandleIntersection(IntersectionObservation{ID: "late", IsIntersecting: true, Ratio: 1})
	if tr.VisibleElementCount() != 1 || tr.SeenElementCount() != 1 {
		t.Fatalf("visible=%d seen=%d, want 1/1", tr.VisibleElementCount(), tr.SeenElementCount())
	}

	tr.UnobserveElement("late")
	if tr.VisibleElementCount() != 0 || len(tr.VisibilityData()) != 0 {
		t.Fatal("unobserved element should be dropped")
	}
}

func TestVisibilityCountsCurrentAndSeen(t *testing.T) {
	tr, _ := newVisibilityTracker(Capabilities{}, "a", "b", "c")

	tr.HandleIntersection(IntersectionObservation{ID: "a", IsIntersecting: true, Ratio: 1})
	tr.HandleIntersection(IntersectionObservation{ID: "b", IsIntersecting: true, Ratio: 1})
	tr.HandleIntersection(IntersectionObservation{ID: "a", IsIntersecting: false, Ratio: 0})

	if got := tr.VisibleElementCount(); got != 1 {
		t.Fatalf("VisibleElementCount = %d, want 1", got)
	}
	if got := tr.SeenElementCount(); got != 2 {
		t.Fatalf("SeenElementCount = %d, want 2", got)
	}
}

func TestVisibilityCleanupClearsRecords(t *testing.T) {
	clk := newFakeClock()
	rec := &recorder{}
	tr := NewContentVisibilityTracker(DefaultVisibilityConfig(), Capabilities{}, &fakeDocument{tracked: []string{"hero"}}, clk, rec, nil)
	tr.Init()

	tr.Cleanup()
	tr.ObserveElement("hero")
	tr.HandleIntersection(IntersectionObservation{ID: "hero", IsIntersecting: true, Ratio: 1})
	clk.Advance(time.Minute)

	if len(tr.VisibilityData()) != 0 {
		t.Fatal("records should be cleared")
	}
	if n := len(rec.all()); n != 0 {
		t.Fatalf("reports after cleanup = %d, want 0", n)
	}
}
