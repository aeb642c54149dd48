package engagement

// VisibilityAttribute marks an element for visibility tracking; its value is the element id.
const VisibilityAttribute = "data-track-visibility"

// DefaultContentSelectors is the prioritized content-root lookup used by the reading tracker.
var DefaultContentSelectors = []string{"article", "main", `[role="main"]`}

// Rect is a vertical extent in document coordinates.
type Rect struct {
	Top    float64
	Height float64
}

// Viewport is the window scroll geometry.
type Viewport struct {
	ScrollY      float64
	ScrollHeight float64
	Height       float64
}

// ContentRoot is the element holding the readable body of the page.
type ContentRoot struct {
	Selector string
	Text     string
	Rect     Rect
}

// Intersects reports whether the rect overlaps the visible window.
func (r Rect) Intersects(v Viewport) bool {
	if r.Height <= 0 {
		return false
	}
	return r.Top < v.ScrollY+v.Height && r.Top+r.Height > v.ScrollY
}

// Document is the host page as seen by the trackers.
type Document interface {
	Viewport() Viewport
	// QueryContentRoot returns the first element matching selectors, in order.
	QueryContentRoot(selectors []string) (ContentRoot, bool)
	// TrackedElements returns the ids of elements carrying VisibilityAttribute.
	TrackedElements() []string
	Title() string
}
