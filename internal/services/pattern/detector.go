package pattern

import (
	"DerivBot/internal/domain/models"
	"DerivBot/internal/domain/service"
)

const (
	// TrendWindow is the number of trailing bars compared by Trend.
	TrendWindow = 5
	// MinBars is the shortest sequence Detect will classify.
	MinBars = 3
)

// Detector is the stateless service.PatternDetector backed by Detect.
type Detector struct{}

var _ service.PatternDetector = Detector{}

// Detect implements service.PatternDetector.
func (Detector) Detect(bars []models.Bar) models.Signal { return Detect(bars) }

type rule struct {
	pattern    models.Pattern
	decision   models.Decision
	confidence int
	rationale  string
	matches    func(prev, cur models.Bar, trend models.Trend) bool
}

// rules are scanned in order; the first hit wins.
var rules = []rule{
	{
		pattern: models.PatternBullishEngulfing, decision: models.DecisionBuy, confidence: 90,
		rationale: "Bullish engulfing in bearish trend",
		matches: func(prev, cur models.Bar, trend models.Trend) bool {
			return trend == models.TrendBearish && IsBullishEngulfing(prev, cur)
		},
	},
	{
		pattern: models.PatternBearishEngulfing, decision: models.DecisionSell, confidence: 90,
		rationale: "Bearish engulfing in bullish trend",
		matches: func(prev, cur models.Bar, trend models.Trend) bool {
			return trend == models.TrendBullish && IsBearishEngulfing(prev, cur)
		},
	},
	{
		pattern: models.PatternHammer, decision: models.DecisionBuy, confidence: 80,
		rationale: "Hammer candlestick in bearish trend",
		matches: func(_, cur models.Bar, trend models.Trend) bool {
			return trend == models.TrendBearish && IsHammer(cur)
		},
	},
	{
		pattern: models.PatternShootingStar, decision: models.DecisionSell, confidence: 80,
		rationale: "Shooting star in bullish trend",
		matches: func(_, cur models.Bar, trend models.Trend) bool {
			return trend == models.TrendBullish && IsShootingStar(cur)
		},
	},
	{
		pattern: models.PatternDoji, decision: models.DecisionHold, confidence: 50,
		rationale: "Market indecision",
		matches: func(_, cur models.Bar, _ models.Trend) bool {
			return IsDoji(cur)
		},
	},
}

// Detect classifies the transition into the most recent bar.
func Detect(bars []models.Bar) models.Signal {
	if len(bars) < MinBars {
		return models.Signal{Matched: false, Rationale: "not enough bars"}
	}
	prev, cur := bars[len(bars)-2], bars[len(bars)-1]
	trend := Trend(bars)

	for _, r := range rules {
		if r.matches(prev, cur, trend) {
			return models.Signal{
				Matched:    true,
				Pattern:    r.pattern,
				Decision:   r.decision,
				Confidence: r.confidence,
				Trend:      trend,
				Rationale:  r.rationale,
			}
		}
	}
	return models.Signal{Matched: false, Trend: trend, Rationale: "no pattern"}
}

// Trend compares the first and last close of the trailing window.
// An unchanged close counts as bearish.
func Trend(bars []models.Bar) models.Trend {
	if len(bars) < TrendWindow {
		return models.TrendNeutral
	}
	window := bars[len(bars)-TrendWindow:]
	if window[len(window)-1].Close > window[0].Close {
		return models.TrendBullish
	}
	return models.TrendBearish
}

// IsBullishEngulfing: red prev, green cur, and cur's body covers prev's body.
// The open check is inclusive so a bar opening exactly at the prior close
// (prior close 9, open 9) still engulfs.
func IsBullishEngulfing(prev, cur models.Bar) bool {
	return prev.Bearish() && cur.Bullish() &&
		cur.Open <= prev.Close && cur.Close > prev.Open
}

// IsBearishEngulfing mirrors IsBullishEngulfing.
func IsBearishEngulfing(prev, cur models.Bar) bool {
	return prev.Bullish() && cur.Bearish() &&
		cur.Open >= prev.Close && cur.Close < prev.Open
}

func IsHammer(b models.Bar) bool {
	body := b.Body()
	return b.UpperShadow() <= body*0.5 && b.LowerShadow() >= body*2
}

func IsShootingStar(b models.Bar) bool {
	body := b.Body()
	return b.UpperShadow() >= body*2 && b.LowerShadow() <= body*0.5
}

func IsDoji(b models.Bar) bool {
	return b.Body() <= b.Range()*0.1
}
