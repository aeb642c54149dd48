package services

import (
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/domain/engagement"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/pkg/config"
)

// TrackingSettings are the tracker tunings applied to every new page view.
type TrackingSettings struct {
	TrackingInterval time.Duration
	TokenTTL         time.Duration
	JWTSecret        string
	Scroll           engagement.ScrollConfig
	Time             engagement.TimeConfig
	Visibility       engagement.VisibilityConfig
	Reading          engagement.ReadingConfig
}

// DefaultTrackingSettings returns the tracker defaults without environment overrides.
func DefaultTrackingSettings() TrackingSettings {
	return TrackingSettings{
		TrackingInterval: engagement.DefaultTrackingInterval,
		TokenTTL:         4 * time.Hour,
		Scroll:           engagement.DefaultScrollConfig(),
		Time:             engagement.DefaultTimeConfig(),
		Visibility:       engagement.DefaultVisibilityConfig(),
		Reading:          engagement.DefaultReadingConfig(),
	}
}

// NewTrackingSettings reads the environment configuration and layers the
// optional profile on top.
func NewTrackingSettings(profile *config.TrackingProfile, jwtSecret string) TrackingSettings {
	s := DefaultTrackingSettings()
	s.JWTSecret = jwtSecret
	s.TrackingInterval = config.TrackingInterval
	s.Scroll.Debounce = config.ScrollDebounce
	s.Time.PulseInterval = config.PulseInterval
	s.Time.InactivityTimeout = config.InactivityTimeout
	s.Time.OnlyPulseWhenActive = config.OnlyPulseWhenActive
	s.Reading.CheckInterval = config.ReadingCheckInterval
	if config.PageViewTTL > s.TokenTTL {
		s.TokenTTL = config.PageViewTTL
	}
	s.ApplyProfile(profile)
	return s
}

// ApplyProfile overrides every value the profile sets.
func (s *TrackingSettings) ApplyProfile(p *config.TrackingProfile) {
	if p == nil {
		return
	}
	if p.TrackingInterval > 0 {
		s.TrackingInterval = p.TrackingInterval
	}
	if len(p.Scroll.Thresholds) > 0 {
		s.Scroll.Thresholds = p.Scroll.Thresholds
	}
	if p.Scroll.Debounce > 0 {
		s.Scroll.Debounce = p.Scroll.Debounce
	}
	if p.Time.PulseInterval > 0 {
		s.Time.PulseInterval = p.Time.PulseInterval
	}
	if p.Time.InactivityTimeout > 0 {
		s.Time.InactivityTimeout = p.Time.InactivityTimeout
	}
	if p.Time.OnlyPulseWhenActive != nil {
		s.Time.OnlyPulseWhenActive = *p.Time.OnlyPulseWhenActive
	}
	if len(p.Visibility.ObserverThresholds) > 0 {
		s.Visibility.ObserverThresholds = p.Visibility.ObserverThresholds
	}
	if p.Visibility.RootMargin != "" {
		s.Visibility.RootMargin = p.Visibility.RootMargin
	}
	if len(p.Visibility.Milestones) > 0 {
		s.Visibility.Milestones = p.Visibility.Milestones
	}
	if len(p.Reading.Selectors) > 0 {
		s.Reading.Selectors = p.Reading.Selectors
	}
	if p.Reading.CheckInterval > 0 {
		s.Reading.CheckInterval = p.Reading.CheckInterval
	}
	if len(p.Reading.Milestones) > 0 {
		s.Reading.Milestones = p.Reading.Milestones
	}
}
