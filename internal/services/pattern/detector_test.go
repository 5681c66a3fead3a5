package pattern

import (
	"testing"

	"DerivBot/internal/domain/models"
)

func bar(o, h, l, c float64) models.Bar {
	return models.Bar{Open: o, High: h, Low: l, Close: c}
}

func TestTrend(t *testing.T) {
	tests := []struct {
		name string
		bars []models.Bar
		want models.Trend
	}{
		{"too short", []models.Bar{bar(1, 2, 1, 2), bar(2, 3, 2, 3)}, models.TrendNeutral},
		{"rising", []models.Bar{bar(1, 1, 1, 1), bar(1, 2, 1, 2), bar(2, 3, 2, 3), bar(3, 4, 3, 4), bar(4, 5, 4, 5)}, models.TrendBullish},
		{"falling", []models.Bar{bar(5, 5, 5, 5), bar(5, 5, 4, 4), bar(4, 4, 3, 3), bar(3, 3, 2, 2), bar(2, 2, 1, 1)}, models.TrendBearish},
		{"flat is bearish", []models.Bar{bar(3, 3, 3, 3), bar(3, 4, 3, 4), bar(4, 4, 2, 2), bar(2, 3, 2, 3), bar(3, 3, 3, 3)}, models.TrendBearish},
		{
			"only trailing window counts",
			[]models.Bar{bar(100, 100, 100, 100), bar(1, 1, 1, 1), bar(1, 2, 1, 2), bar(2, 3, 2, 3), bar(3, 4, 3, 4), bar(4, 5, 4, 5)},
			models.TrendBullish,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Trend(tc.bars); got != tc.want {
				t.Errorf("Trend() = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	bearishLead := []models.Bar{bar(15, 15.5, 13.5, 14), bar(14, 14.2, 12.8, 13), bar(13, 13.1, 11.8, 12)}
	bullishLead := []models.Bar{bar(9.5, 10.2, 9.4, 10), bar(10, 11.1, 9.9, 11), bar(11, 12.1, 10.9, 12)}

	tests := []struct {
		name       string
		bars       []models.Bar
		matched    bool
		pattern    models.Pattern
		decision   models.Decision
		confidence int
	}{
		{
			name:    "needs three bars",
			bars:    []models.Bar{bar(10, 10.5, 9.5, 10), bar(10, 10.5, 9.5, 10)},
			matched: false,
		},
		{
			name:       "bullish engulfing after bearish trend",
			bars:       append(append([]models.Bar{}, bearishLead...), bar(10, 10, 9, 9), bar(9, 11, 9, 10.5)),
			matched:    true,
			pattern:    models.PatternBullishEngulfing,
			decision:   models.DecisionBuy,
			confidence: 90,
		},
		{
			name:       "bearish engulfing after bullish trend",
			bars:       append(append([]models.Bar{}, bullishLead...), bar(12, 13.1, 11.9, 13), bar(13.2, 13.3, 11.5, 11.8)),
			matched:    true,
			pattern:    models.PatternBearishEngulfing,
			decision:   models.DecisionSell,
			confidence: 90,
		},
		{
			name:       "hammer in bearish trend",
			bars:       append(append([]models.Bar{}, bearishLead...), bar(12, 12.3, 11.4, 11.5), bar(10, 10.25, 9.5, 10.2)),
			matched:    true,
			pattern:    models.PatternHammer,
			decision:   models.DecisionBuy,
			confidence: 80,
		},
		{
			name:       "shooting star in bullish trend",
			bars:       append(append([]models.Bar{}, bullishLead...), bar(12, 13.2, 11.9, 13), bar(13.3, 13.8, 13.05, 13.1)),
			matched:    true,
			pattern:    models.PatternShootingStar,
			decision:   models.DecisionSell,
			confidence: 80,
		},
		{
			name:       "flat hammer outranks doji",
			bars:       append(append([]models.Bar{}, bearishLead...), bar(11, 11.2, 10.4, 10.5), bar(10, 10, 9, 10)),
			matched:    true,
			pattern:    models.PatternHammer,
			decision:   models.DecisionBuy,
			confidence: 80,
		},
		{
			name:       "flat shooting star outranks doji",
			bars:       append(append([]models.Bar{}, bullishLead...), bar(12, 12.6, 11.9, 12.5), bar(13, 14, 13, 13)),
			matched:    true,
			pattern:    models.PatternShootingStar,
			decision:   models.DecisionSell,
			confidence: 80,
		},
		{
			name:       "bullish engulfing outranks hammer",
			bars:       append(append([]models.Bar{}, bearishLead...), bar(10, 10.1, 9.7, 9.8), bar(9.8, 10.25, 8.8, 10.2)),
			matched:    true,
			pattern:    models.PatternBullishEngulfing,
			decision:   models.DecisionBuy,
			confidence: 90,
		},
		{
			name:       "bearish engulfing outranks shooting star",
			bars:       append(append([]models.Bar{}, bullishLead...), bar(12, 12.3, 11.9, 12.2), bar(12.2, 13.2, 11.75, 11.8)),
			matched:    true,
			pattern:    models.PatternBearishEngulfing,
			decision:   models.DecisionSell,
			confidence: 90,
		},
		{
			name:    "bullish engulfing against the trend is ignored",
			bars:    []models.Bar{bar(5, 5, 5, 5), bar(5, 6, 5, 6), bar(6, 7, 6, 7), bar(10, 10, 9, 9), bar(9, 11, 9, 10.5)},
			matched: false,
		},
		{
			name:       "doji with neutral trend",
			bars:       []models.Bar{bar(10, 11, 9, 10.5), bar(10.5, 11, 10, 10.8), bar(10, 10.5, 9.5, 10)},
			matched:    true,
			pattern:    models.PatternDoji,
			decision:   models.DecisionHold,
			confidence: 50,
		},
		{
			name:       "doji with bearish trend",
			bars:       append(append([]models.Bar{}, bearishLead...), bar(11, 11.2, 10.4, 10.5), bar(10, 10.5, 9.5, 10)),
			matched:    true,
			pattern:    models.PatternDoji,
			decision:   models.DecisionHold,
			confidence: 50,
		},
		{
			name:       "doji with bullish trend",
			bars:       append(append([]models.Bar{}, bullishLead...), bar(12, 12.6, 11.9, 12.5), bar(13, 13.5, 12.5, 13)),
			matched:    true,
			pattern:    models.PatternDoji,
			decision:   models.DecisionHold,
			confidence: 50,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Detect(tc.bars)
			if got.Matched != tc.matched {
				t.Fatalf("Matched = %v, want %v (signal %+v)", got.Matched, tc.matched, got)
			}
			if !tc.matched {
				return
			}
			if got.Pattern != tc.pattern || got.Decision != tc.decision || got.Confidence != tc.confidence {
				t.Errorf("got %s/%s/%d, want %s/%s/%d",
					got.Pattern, got.Decision, got.Confidence, tc.pattern, tc.decision, tc.confidence)
			}
			if got.Rationale == "" {
				t.Errorf("expected a rationale")
			}
		})
	}
}

func TestDetectorImplementsService(t *testing.T) {
	bars := []models.Bar{bar(10, 11, 9, 10.5), bar(10.5, 11, 10, 10.8), bar(10, 10.5, 9.5, 10)}
	if got := (Detector{}).Detect(bars); got != Detect(bars) {
		t.Fatalf("Detector.Detect diverged from Detect: %+v", got)
	}
}
