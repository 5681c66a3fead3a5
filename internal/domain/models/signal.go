package models

// Pattern labels double as keys in the persisted learning document.
type Pattern string

const (
	PatternBullishEngulfing Pattern = "Bullish Engulfing"
	PatternBearishEngulfing Pattern = "Bearish Engulfing"
	PatternHammer           Pattern = "Hammer"
	PatternShootingStar     Pattern = "Shooting Star"
	PatternDoji             Pattern = "Doji"
)

// Decision is the directional verdict attached to a signal.
type Decision string

const (
	DecisionBuy  Decision = "BUY"
	DecisionSell Decision = "SELL"
	DecisionHold Decision = "HOLD"
)

// ContractType maps a decision to the venue contract type. HOLD has none.
func (d Decision) ContractType() (string, bool) {
	switch d {
	case DecisionBuy:
		return "CALL", true
	case DecisionSell:
		return "PUT", true
	default:
		return "", false
	}
}

// Trend is the short-term direction over the trailing window.
type Trend string

const (
	TrendBullish Trend = "bullish"
	TrendBearish Trend = "bearish"
	TrendNeutral Trend = "neutral"
)

// Signal is the detector verdict for the latest bar.
type Signal struct {
	Matched    bool     `json:"matched"`
	Pattern    Pattern  `json:"pattern,omitempty"`
	Decision   Decision `json:"decision,omitempty"`
	Confidence int      `json:"confidence"`
	Trend      Trend    `json:"trend,omitempty"`
	Rationale  string   `json:"rationale,omitempty"`
}

// Actionable reports whether the signal asks for a position.
func (s Signal) Actionable() bool {
	if !s.Matched {
		return false
	}
	_, ok := s.Decision.ContractType()
	return ok
}
