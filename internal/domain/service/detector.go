package service

import "DerivBot/internal/domain/models"

// PatternDetector turns an ordered bar sequence (most recent last) into a signal.
// Implementations are pure and safe for concurrent use.
type PatternDetector interface {
	Detect(bars []models.Bar) models.Signal
}
