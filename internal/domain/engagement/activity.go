package engagement

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
)

// TimeConfig configures the active-time tracker.
type TimeConfig struct {
	PulseInterval       time.Duration // default 15s
	InactivityTimeout   time.Duration // default 60s
	OnlyPulseWhenActive bool
}

func DefaultTimeConfig() TimeConfig {
	return TimeConfig{
		PulseInterval:     15 * time.Second,
		InactivityTimeout: 60 * time.Second,
	}
}

// EngagementData is a snapshot of the active-time tracker.
type EngagementData struct {
	SessionStart      time.Time `json:"sessionStart"`
	LastActivity      time.Time `json:"lastActivity"`
	IsActive          bool      `json:"isActive"`
	TimeOnPageMs      int64     `json:"timeOnPageMs"`
	EngagedTimeMs     int64     `json:"engagedTimeMs"`
	PulseCount        int       `json:"pulseCount"`
	EngagementPercent int       `json:"engagementPercent"`
}

// TimeEngagementTracker separates active and idle periods and emits keep-alive
// pulses so a passively read tab is not counted as a bounce.
type TimeEngagementTracker struct {
	mu           sync.Mutex
	config       TimeConfig
	clock        clock.Clock
	reporter     Reporter
	logger       *slog.Logger
	started      bool
	closed       bool
	sessionStart time.Time
	lastActivity time.Time
	activeSince  time.Time
	active       bool
	accumulated  time.Duration
	pulseCount   int
	pulse        clock.Timer
	inactivity   clock.Timer
}

func NewTimeEngagementTracker(config TimeConfig, clk clock.Clock, reporter Reporter, logger *slog.Logger) *TimeEngagementTracker {
	defaults := DefaultTimeConfig()
	if config.PulseInterval <= 0 {
		config.PulseInterval = defaults.PulseInterval
	}
	if config.InactivityTimeout <= 0 {
		config.InactivityTimeout = defaults.InactivityTimeout
	}
	now := clk.Now()
	return &TimeEngagementTracker{
		config:       config,
		clock:        clk,
		reporter:     reporter,
		logger:       loggerOrDiscard(logger),
		sessionStart: now,
		lastActivity: now,
	}
}

// Start opens the session as active and arms the pulse and inactivity timers.
func (t *TimeEngagementTracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started || t.closed {
		return
	}
	now := t.clock.Now()
	t.started = true
	t.sessionStart = now
	t.lastActivity = now
	t.activeSince = now
	t.active = true
	t.pulse = t.clock.Every(t.config.PulseInterval, t.onPulse)
	t.inactivity = t.clock.AfterFunc(t.config.InactivityTimeout, t.onInactive)
}

// HandleActivity records one qualifying input event.
func (t *TimeEngagementTracker) HandleActivity(obs ActivityObservation) {
	t.mu.Lock()
	if t.closed || !t.started {
		t.mu.Unlock()
		return
	}

	now := t.clock.Now()
	t.lastActivity = now
	var reports []pendingReport
	if !t.active {
		t.active = true
		t.activeSince = now
		reports = append(reports, pendingReport{
			event: EventEngagementResume,
			props: Properties{
				"trigger":        string(obs.Kind),
				"time_on_page_s": t.timeOnPageLocked(now).Seconds(),
				"engaged_time_s": t.engagedLocked(now).Seconds(),
			},
		})
		t.logger.Debug("User resumed", "trigger", obs.Kind)
	}
	if t.inactivity != nil {
		t.inactivity.Stop()
	}
	t.inactivity = t.clock.AfterFunc(t.config.InactivityTimeout, t.onInactive)
	t.mu.Unlock()

	emitAll(t.reporter, reports)
}

func (t *TimeEngagementTracker) onInactive() {
	t.mu.Lock()
	if t.closed || !t.active {
		t.mu.Unlock()
		return
	}
	now := t.clock.Now()
	t.accumulated += now.Sub(t.activeSince)
	t.active = false
	t.inactivity = nil
	props := Properties{
		"idle_after_s":   t.config.InactivityTimeout.Seconds(),
		"time_on_page_s": t.timeOnPageLocked(now).Seconds(),
		"engaged_time_s": t.accumulated.Seconds(),
	}
	t.mu.Unlock()

	t.logger.Debug("User paused", "engagedTime", props["engaged_time_s"])
	emit(t.reporter, EventEngagementPause, props)
}

func (t *TimeEngagementTracker) onPulse() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	if t.config.OnlyPulseWhenActive && !t.active {
		t.mu.Unlock()
		return
	}
	now := t.clock.Now()
	t.pulseCount++
	props := Properties{
		"time_on_page_s":  math.Round(t.timeOnPageLocked(now).Seconds()),
		"engaged_time_s":  math.Round(t.engagedLocked(now).Seconds()),
		"session_engaged": true,
		"is_active":       t.active,
		"pulse_count":     t.pulseCount,
	}
	t.mu.Unlock()

	emit(t.reporter, EventEngagementPulse, props)
}

func (t *TimeEngagementTracker) timeOnPageLocked(now time.Time) time.Duration {
	if now.Before(t.sessionStart) {
		return 0
	}
	return now.Sub(t.sessionStart)
}

func (t *TimeEngagementTracker) engagedLocked(now time.Time) time.Duration {
	engaged := t.accumulated
	if t.active && now.After(t.activeSince) {
		engaged += now.Sub(t.activeSince)
	}
	return engaged
}

// EngagementData returns the current snapshot.
func (t *TimeEngagementTracker) EngagementData() EngagementData {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	onPage := t.timeOnPageLocked(now)
	engaged := t.engagedLocked(now)
	return EngagementData{
		SessionStart:      t.sessionStart,
		LastActivity:      t.lastActivity,
		IsActive:          t.active,
		TimeOnPageMs:      onPage.Milliseconds(),
		EngagedTimeMs:     engaged.Milliseconds(),
		PulseCount:        t.pulseCount,
		EngagementPercent: engagementPercent(engaged, onPage),
	}
}

// TimeOnPageSeconds returns whole seconds since the session started.
func (t *TimeEngagementTracker) TimeOnPageSeconds() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.timeOnPageLocked(t.clock.Now()) / time.Second)
}

func (t *TimeEngagementTracker) IsUserActive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// EngagementPercentage is engaged time as a rounded share of time on page.
func (t *TimeEngagementTracker) EngagementPercentage() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.clock.Now()
	return engagementPercent(t.engagedLocked(now), t.timeOnPageLocked(now))
}

func engagementPercent(engaged, onPage time.Duration) int {
	if onPage <= 0 {
		return 0
	}
	return clampPercent(int(math.Round(float64(engaged) / float64(onPage) * 100)))
}

// Cleanup stops both timers; the tracker ignores input afterwards.
func (t *TimeEngagementTracker) Cleanup() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pulse != nil {
		t.pulse.Stop()
		t.pulse = nil
	}
	if t.inactivity != nil {
		t.inactivity.Stop()
		t.inactivity = nil
	}
	if t.active {
		t.accumulated += t.clock.Now().Sub(t.activeSince)
		t.active = false
	}
	t.closed = true
}
