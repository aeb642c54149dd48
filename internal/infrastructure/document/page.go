// Package document builds the trackers' view of a host page from its HTML.
package document

import (
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/domain/engagement"
)

// Page is an engagement.Document parsed from server-side HTML. Layout is
// unknown on the server, so the beacon reports viewport and content geometry.
type Page struct {
	doc *goquery.Document

	mu       sync.RWMutex
	viewport engagement.Viewport
	content  engagement.Rect
}

// Parse reads the page HTML. Scripts, styles and templates never count as readable text.
func Parse(html string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page html: %w", err)
	}
	doc.Find("script, style, noscript, template").Remove()
	return &Page{doc: doc}, nil
}

func (p *Page) Viewport() engagement.Viewport {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.viewport
}

// SetViewport records the latest window geometry reported by the beacon.
func (p *Page) SetViewport(v engagement.Viewport) {
	p.mu.Lock()
	p.viewport = v
	p.mu.Unlock()
}

// SetContentRect records where the content root sits in the rendered page.
func (p *Page) SetContentRect(r engagement.Rect) {
	p.mu.Lock()
	p.content = r
	p.mu.Unlock()
}

func (p *Page) QueryContentRoot(selectors []string) (engagement.ContentRoot, bool) {
	for _, sel := range selectors {
		match := p.doc.Find(sel).First()
		if match.Length() == 0 {
			continue
		}
		p.mu.RLock()
		rect := p.content
		p.mu.RUnlock()
		return engagement.ContentRoot{
			Selector: sel,
			Text:     collapseSpace(match.Text()),
			Rect:     rect,
		}, true
	}
	return engagement.ContentRoot{}, false
}

// TrackedElements returns visibility ids in document order, without duplicates.
func (p *Page) TrackedElements() []string {
	var ids []string
	seen := make(map[string]bool)
	p.doc.Find("[" + engagement.VisibilityAttribute + "]").Each(func(_ int, s *goquery.Selection) {
		id := strings.TrimSpace(s.AttrOr(engagement.VisibilityAttribute, ""))
		if id == "" {
			id = strings.TrimSpace(s.AttrOr("id", ""))
		}
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	})
	return ids
}

func (p *Page) Title() string {
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
