package services

import (
	"fmt"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/domain/engagement"
)

// Observation types accepted from the beacon.
const (
	ObservationScroll       = "scroll"
	ObservationActivity     = "activity"
	ObservationIntersection = "intersection"
	ObservationElement      = "element"
	ObservationGeometry     = "geometry"
	ObservationUnload       = "unload"
)

// ObservationPayload is the wire form of one browser observation. Only the
// fields of its type are read.
type ObservationPayload struct {
	Type string `json:"type"`

	// scroll
	ScrollY        float64 `json:"scrollY,omitempty"`
	ScrollHeight   float64 `json:"scrollHeight,omitempty"`
	ViewportHeight float64 `json:"viewportHeight,omitempty"`

	// activity
	Kind string `json:"kind,omitempty"`

	// intersection and element
	ID             string  `json:"id,omitempty"`
	IsIntersecting bool    `json:"isIntersecting,omitempty"`
	Ratio          float64 `json:"ratio,omitempty"`
	IsVisible      *bool   `json:"isVisible,omitempty"`
	Observe        *bool   `json:"observe,omitempty"`

	// geometry
	ContentTop    float64 `json:"contentTop,omitempty"`
	ContentHeight float64 `json:"contentHeight,omitempty"`
}

var activityKinds = map[string]engagement.ActivityKind{
	string(engagement.ActivityPointerDown): engagement.ActivityPointerDown,
	string(engagement.ActivityKeyDown):     engagement.ActivityKeyDown,
	string(engagement.ActivityScroll):      engagement.ActivityScroll,
	string(engagement.ActivityTouchStart):  engagement.ActivityTouchStart,
}

// ToObservation converts the payload into a domain observation.
func (p ObservationPayload) ToObservation() (engagement.Observation, error) {
	switch p.Type {
	case ObservationScroll:
		return engagement.ScrollObservation{
			ScrollY:        p.ScrollY,
			ScrollHeight:   p.ScrollHeight,
			ViewportHeight: p.ViewportHeight,
		}, nil
	case ObservationActivity:
		kind, ok := activityKinds[p.Kind]
		if !ok {
			return nil, fmt.Errorf("%w: activity kind %q", ErrUnknownObservation, p.Kind)
		}
		return engagement.ActivityObservation{Kind: kind}, nil
	case ObservationIntersection:
		if p.ID == "" {
			return nil, fmt.Errorf("%w: intersection without element id", ErrUnknownObservation)
		}
		return engagement.IntersectionObservation{
			ID:             p.ID,
			IsIntersecting: p.IsIntersecting,
			Ratio:          p.Ratio,
			IsVisible:      p.IsVisible,
		}, nil
	case ObservationElement:
		if p.ID == "" {
			return nil, fmt.Errorf("%w: element without id", ErrUnknownObservation)
		}
		return engagement.ElementObservation{ID: p.ID, Observe: p.Observe == nil || *p.Observe}, nil
	case ObservationGeometry:
		return engagement.GeometryObservation{ContentTop: p.ContentTop, ContentHeight: p.ContentHeight}, nil
	case ObservationUnload:
		return engagement.UnloadObservation{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownObservation, p.Type)
	}
}
