package models

import (
	"math"
	"time"
)

// Bar is one OHLC candle as delivered by the venue.
type Bar struct {
	Epoch int64   `json:"epoch"`
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

// Time returns the bar start time.
func (b Bar) Time() time.Time { return time.Unix(b.Epoch, 0).UTC() }

// Body is the absolute open/close distance.
func (b Bar) Body() float64 { return math.Abs(b.Close - b.Open) }

// Range is the high/low distance.
func (b Bar) Range() float64 { return b.High - b.Low }

// UpperShadow is the distance from the top of the body to the high.
func (b Bar) UpperShadow() float64 { return b.High - math.Max(b.Open, b.Close) }

// LowerShadow is the distance from the bottom of the body to the low.
func (b Bar) LowerShadow() float64 { return math.Min(b.Open, b.Close) - b.Low }

// Bullish reports a green candle.
func (b Bar) Bullish() bool { return b.Close > b.Open }

// Bearish reports a red candle.
func (b Bar) Bearish() bool { return b.Close < b.Open }

// Valid checks prices are positive finite numbers and high/low enclose the body.
func (b Bar) Valid() bool {
	for _, p := range []float64{b.Open, b.High, b.Low, b.Close} {
		if p <= 0 || math.IsNaN(p) || math.IsInf(p, 0) {
			return false
		}
	}
	return b.High >= math.Max(b.Open, b.Close) && b.Low <= math.Min(b.Open, b.Close)
}
