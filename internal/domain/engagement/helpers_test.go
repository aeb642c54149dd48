package engagement

import (
	"sync"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
)

var epoch = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type report struct {
	event string
	props Properties
}

type recorder struct {
	mu      sync.Mutex
	reports []report
}

func (r *recorder) Report(event string, props Properties) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report{event: event, props: props})
}

func (r *recorder) all() []report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]report(nil), r.reports...)
}

func (r *recorder) events(name string) []report {
	var out []report
	for _, rep := range r.all() {
		if rep.event == name {
			out = append(out, rep)
		}
	}
	return out
}

func (r *recorder) count(name string) int {
	return len(r.events(name))
}

type fakeDocument struct {
	viewport Viewport
	root     *ContentRoot
	tracked  []string
	title    string
}

func (d *fakeDocument) Viewport() Viewport { return d.viewport }

func (d *fakeDocument) QueryContentRoot(selectors []string) (ContentRoot, bool) {
	if d.root == nil {
		return ContentRoot{}, false
	}
	return *d.root, true
}

func (d *fakeDocument) TrackedElements() []string { return d.tracked }

func (d *fakeDocument) Title() string { return d.title }

func newFakeClock() *clock.Fake {
	return clock.NewFake(epoch)
}

func words(n int) string {
	b := make([]byte, 0, n*5)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ' ')
		}
		b = append(b, "word"...)
	}
	return string(b)
}

func boolPtr(v bool) *bool { return &v }
