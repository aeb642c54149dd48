package engagement

import "math"

// Signal tags attached to a score.
const (
	SignalDeepScroll       = "deep_scroll"
	SignalExtendedReading  = "extended_reading"
	SignalHighCompletion   = "high_completion"
	SignalHeavyInteraction = "heavy_interaction"
	SignalClickedCTA       = "clicked_cta"
	SignalExploredContent  = "explored_content"
	SignalBrowsedContent   = "browsed_content"
)

// Saturation points of the normalization.
const (
	timeSaturationSeconds  = 300.0
	sectionSaturationCount = 5.0
	pointsPerInteraction   = 20.0
)

// Weights is one weight vector; its fields sum to 1.
type Weights struct {
	ScrollDepth     float64 `json:"scrollDepth"`
	TimeOnPage      float64 `json:"timeOnPage"`
	ReadingProgress float64 `json:"readingProgress"`
	VisibleSections float64 `json:"visibleSections"`
	Interactions    float64 `json:"interactions"`
}

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	return w.ScrollDepth + w.TimeOnPage + w.ReadingProgress + w.VisibleSections + w.Interactions
}

var weightTable = map[ContentType]Weights{
	ContentBlog:      {ScrollDepth: 0.20, TimeOnPage: 0.20, ReadingProgress: 0.35, VisibleSections: 0.15, Interactions: 0.10},
	ContentArticle:   {ScrollDepth: 0.20, TimeOnPage: 0.15, ReadingProgress: 0.40, VisibleSections: 0.15, Interactions: 0.10},
	ContentLanding:   {ScrollDepth: 0.20, TimeOnPage: 0.10, ReadingProgress: 0.05, VisibleSections: 0.30, Interactions: 0.35},
	ContentService:   {ScrollDepth: 0.25, TimeOnPage: 0.15, ReadingProgress: 0.10, VisibleSections: 0.25, Interactions: 0.25},
	ContentPortfolio: {ScrollDepth: 0.20, TimeOnPage: 0.10, ReadingProgress: 0.05, VisibleSections: 0.35, Interactions: 0.30},
	ContentContact:   {ScrollDepth: 0.10, TimeOnPage: 0.15, ReadingProgress: 0.05, VisibleSections: 0.20, Interactions: 0.50},
}

// WeightsFor returns the weight vector of a content type; unknown types use blog.
func WeightsFor(ct ContentType) Weights {
	if w, ok := weightTable[ct]; ok {
		return w
	}
	return weightTable[ContentBlog]
}

var tierBaseProbability = map[Tier]float64{
	TierVeryHigh: 0.45,
	TierHigh:     0.25,
	TierMedium:   0.08,
	TierLow:      0.02,
}

// Factors are the raw inputs of the engagement score.
type Factors struct {
	ScrollDepthPercent     int         `json:"scrollDepthPercent"`
	TimeOnPageSeconds      float64     `json:"timeOnPageSeconds"`
	ReadingProgressPercent int         `json:"readingProgressPercent"`
	VisibleSectionCount    int         `json:"visibleSectionCount"`
	InteractionCount       int         `json:"interactionCount"`
	ContentType            ContentType `json:"contentType"`
}

// Normalized holds each factor on a 0..100 scale.
type Normalized struct {
	ScrollDepth     float64 `json:"scrollDepth"`
	TimeOnPage      float64 `json:"timeOnPage"`
	ReadingProgress float64 `json:"readingProgress"`
	VisibleSections float64 `json:"visibleSections"`
	Interactions    float64 `json:"interactions"`
}

// ScoreResult is the derived engagement view.
type ScoreResult struct {
	OverallScore          int        `json:"overallScore"`
	Tier                  Tier       `json:"tier"`
	Signals               []string   `json:"signals"`
	ConversionProbability float64    `json:"conversionProbability"`
	Normalized            Normalized `json:"normalized"`
	Weights               Weights    `json:"weights"`
}

// Normalize maps raw factors onto 0..100.
func Normalize(f Factors) Normalized {
	return Normalized{
		ScrollDepth:     clampFloat(float64(f.ScrollDepthPercent), 0, 100),
		TimeOnPage:      clampFloat(f.TimeOnPageSeconds/timeSaturationSeconds*100, 0, 100),
		ReadingProgress: clampFloat(float64(f.ReadingProgressPercent), 0, 100),
		VisibleSections: clampFloat(float64(f.VisibleSectionCount)/sectionSaturationCount*100, 0, 100),
		Interactions:    clampFloat(float64(f.InteractionCount)*pointsPerInteraction, 0, 100),
	}
}

// TierFor buckets an overall score. Each boundary belongs to the upper tier.
func TierFor(score int) Tier {
	switch {
	case score >= 75:
		return TierVeryHigh
	case score >= 50:
		return TierHigh
	case score >= 25:
		return TierMedium
	default:
		return TierLow
	}
}

// Signals derives the descriptive tags from the raw factor values.
func Signals(f Factors) []string {
	signals := []string{}
	if f.ScrollDepthPercent >= 75 {
		signals = append(signals, SignalDeepScroll)
	}
	if f.TimeOnPageSeconds >= 300 {
		signals = append(signals, SignalExtendedReading)
	}
	if f.ReadingProgressPercent >= 75 {
		signals = append(signals, SignalHighCompletion)
	}
	switch {
	case f.InteractionCount >= 3:
		signals = append(signals, SignalHeavyInteraction)
	case f.InteractionCount >= 1:
		signals = append(signals, SignalClickedCTA)
	}
	switch {
	case f.VisibleSectionCount >= 4:
		signals = append(signals, SignalExploredContent)
	case f.VisibleSectionCount >= 2:
		signals = append(signals, SignalBrowsedContent)
	}
	return signals
}

// ConversionProbability applies the multiplicative boosts to the tier base value.
func ConversionProbability(tier Tier, f Factors) float64 {
	p := tierBaseProbability[tier]
	if f.InteractionCount > 0 {
		p *= 1.5
	}
	ct := ParseContentType(string(f.ContentType))
	if ct == ContentArticle && f.ReadingProgressPercent >= 75 {
		p *= 1.3
	}
	if (ct == ContentService || ct == ContentPortfolio) && f.ScrollDepthPercent >= 75 {
		p *= 1.25
	}
	if ct == ContentLanding && f.ScrollDepthPercent >= 50 {
		p *= 1.2
	}
	return clampFloat(p, 0, 1)
}

// CalculateEngagementScore is a pure function of its factors.
func CalculateEngagementScore(f Factors) ScoreResult {
	n := Normalize(f)
	w := WeightsFor(ParseContentType(string(f.ContentType)))

	sum := n.ScrollDepth*w.ScrollDepth +
		n.TimeOnPage*w.TimeOnPage +
		n.ReadingProgress*w.ReadingProgress +
		n.VisibleSections*w.VisibleSections +
		n.Interactions*w.Interactions
	score := clampPercent(int(math.Round(sum)))
	tier := TierFor(score)

	return ScoreResult{
		OverallScore:          score,
		Tier:                  tier,
		Signals:               Signals(f),
		ConversionProbability: ConversionProbability(tier, f),
		Normalized:            n,
		Weights:               w,
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
