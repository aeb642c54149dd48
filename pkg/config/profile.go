package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TrackingProfile overrides tracker tuning from a YAML file. Zero values keep
// the environment defaults.
type TrackingProfile struct {
	TrackingInterval time.Duration `yaml:"tracking_interval"`
	Scroll           struct {
		Thresholds []int         `yaml:"thresholds"`
		Debounce   time.Duration `yaml:"debounce"`
	} `yaml:"scroll"`
	Time struct {
		PulseInterval       time.Duration `yaml:"pulse_interval"`
		InactivityTimeout   time.Duration `yaml:"inactivity_timeout"`
		OnlyPulseWhenActive *bool         `yaml:"only_pulse_when_active"`
	} `yaml:"time"`
	Visibility struct {
		ObserverThresholds []float64 `yaml:"observer_thresholds"`
		RootMargin         string    `yaml:"root_margin"`
		Milestones         []int     `yaml:"milestones"`
	} `yaml:"visibility"`
	Reading struct {
		Selectors     []string      `yaml:"selectors"`
		CheckInterval time.Duration `yaml:"check_interval"`
		Milestones    []int         `yaml:"milestones"`
	} `yaml:"reading"`
}

// ParseProfile decodes a profile document, rejecting unknown keys.
func ParseProfile(data []byte) (*TrackingProfile, error) {
	var p TrackingProfile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse tracking profile: %w", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadProfile reads a profile file. An empty path yields an empty profile.
func LoadProfile(path string) (*TrackingProfile, error) {
	if path == "" {
		return &TrackingProfile{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tracking profile %s: %w", path, err)
	}
	return ParseProfile(data)
}

func (p *TrackingProfile) validate() error {
	for _, th := range p.Scroll.Thresholds {
		if th <= 0 || th > 100 {
			return fmt.Errorf("scroll threshold %d out of range 1..100", th)
		}
	}
	for _, m := range p.Visibility.Milestones {
		if m <= 0 || m > 100 {
			return fmt.Errorf("visibility milestone %d out of range 1..100", m)
		}
	}
	for _, r := range p.Visibility.ObserverThresholds {
		if r < 0 || r > 1 {
			return fmt.Errorf("observer threshold %v out of range 0..1", r)
		}
	}
	for _, m := range p.Reading.Milestones {
		if m <= 0 || m > 100 {
			return fmt.Errorf("reading milestone %d out of range 1..100", m)
		}
	}
	return nil
}
