package models

import "encoding/json"

// LearningRecord holds outcome statistics for one pattern label.
type LearningRecord struct {
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	Accuracy float64 `json:"accuracy"`
}

// Samples is the number of recorded outcomes.
func (r LearningRecord) Samples() int { return r.Wins + r.Losses }

// LearningDocument is the persisted shape of the learning store.
// Rules is carried through untouched for compatibility with existing files.
type LearningDocument struct {
	Patterns map[Pattern]LearningRecord `json:"patterns"`
	Rules    []json.RawMessage          `json:"rules"`
}

// NewLearningDocument returns an empty document.
func NewLearningDocument() *LearningDocument {
	return &LearningDocument{
		Patterns: make(map[Pattern]LearningRecord),
		Rules:    []json.RawMessage{},
	}
}

// PatternStats is the API view of one learning record.
type PatternStats struct {
	Pattern           Pattern `json:"pattern"`
	Wins              int     `json:"wins"`
	Losses            int     `json:"losses"`
	Accuracy          float64 `json:"accuracy"`
	EffectiveAccuracy float64 `json:"effective_accuracy"`
	Tradable          bool    `json:"tradable"`
}
