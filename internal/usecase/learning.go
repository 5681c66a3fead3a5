package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"DerivBot/internal/domain/models"
	drepo "DerivBot/internal/domain/repository"
	"DerivBot/pkg/logger"
)

// Logical document names shared by every DocumentStore backend.
const (
	DocLearning = "learning"
	DocTrades   = "trades"
	DocBars     = "bars"
)

// LearningStore tracks per-pattern win/loss statistics.
type LearningStore struct {
	mu         sync.Mutex
	store      drepo.DocumentStore
	locker     drepo.Locker
	metrics    drepo.Metrics
	logger     *logger.Logger
	minSamples int
	lockTTL    time.Duration
	now        func() time.Time
}

// NewLearningStore enables cross-process locking when store also implements repository.Locker.
func NewLearningStore(store drepo.DocumentStore, metrics drepo.Metrics, log *logger.Logger, minSamples int, lockTTL time.Duration) *LearningStore {
	if minSamples < 1 {
		minSamples = 1
	}
	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}
	s := &LearningStore{
		store:      store,
		metrics:    metrics,
		logger:     log.With(logger.String("component", "learning")),
		minSamples: minSamples,
		lockTTL:    lockTTL,
		now:        time.Now,
	}
	if l, ok := store.(drepo.Locker); ok {
		s.locker = l
	}
	return s
}

// AccuracyOf returns the stored accuracy, or 0 for unknown labels and
// labels with fewer than the minimum number of samples.
func (s *LearningStore) AccuracyOf(ctx context.Context, label models.Pattern) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load(ctx)
	if err != nil {
		return 0, err
	}
	return s.gated(doc.Patterns[label]), nil
}

func (s *LearningStore) gated(rec models.LearningRecord) float64 {
	if rec.Samples() < s.minSamples {
		return 0
	}
	return rec.Accuracy
}

// Record adds one outcome for label and persists the whole document.
func (s *LearningStore) Record(ctx context.Context, label models.Pattern, won bool) (models.LearningRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locker != nil {
		unlock, err := s.locker.Lock(ctx, DocLearning, s.lockTTL)
		if err != nil {
			return models.LearningRecord{}, fmt.Errorf("learning record: %w", err)
		}
		defer unlock()
	}

	doc, err := s.load(ctx)
	if err != nil {
		return models.LearningRecord{}, err
	}

	rec := doc.Patterns[label]
	if won {
		rec.Wins++
	} else {
		rec.Losses++
	}
	rec.Accuracy = accuracyPercent(rec.Wins, rec.Samples())
	doc.Patterns[label] = rec

	if err := s.store.Save(ctx, DocLearning, doc); err != nil {
		return models.LearningRecord{}, fmt.Errorf("learning save: %w", err)
	}

	s.metrics.RecordAccuracy(string(label), rec.Accuracy)
	s.logger.Info("learning updated",
		logger.String("pattern", string(label)),
		logger.Bool("won", won),
		logger.Int("wins", rec.Wins),
		logger.Int("losses", rec.Losses),
		logger.Float64("accuracy", rec.Accuracy),
	)
	return rec, nil
}

// Snapshot returns a copy of the whole document.
func (s *LearningStore) Snapshot(ctx context.Context) (*models.LearningDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Stats lists every known pattern with its gated accuracy, sorted by label.
func (s *LearningStore) Stats(ctx context.Context, minAccuracy float64) ([]models.PatternStats, error) {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.PatternStats, 0, len(doc.Patterns))
	for label, rec := range doc.Patterns {
		eff := s.gated(rec)
		out = append(out, models.PatternStats{
			Pattern:           label,
			Wins:              rec.Wins,
			Losses:            rec.Losses,
			Accuracy:          rec.Accuracy,
			EffectiveAccuracy: eff,
			Tradable:          eff >= minAccuracy,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Pattern < out[j].Pattern })
	return out, nil
}

// load must be called with s.mu held. Missing or corrupt documents are replaced
// by an empty one, which is written back.
func (s *LearningStore) load(ctx context.Context) (*models.LearningDocument, error) {
	var doc models.LearningDocument
	err := s.store.Load(ctx, DocLearning, &doc)
	switch {
	case err == nil:
		if doc.Patterns == nil {
			doc.Patterns = make(map[models.Pattern]models.LearningRecord)
		}
		if doc.Rules == nil {
			doc.Rules = models.NewLearningDocument().Rules
		}
		return &doc, nil
	case errors.Is(err, drepo.ErrDocumentNotFound), errors.Is(err, drepo.ErrCorruptDocument):
		s.logger.Warn("learning document reset", logger.Error(err))
		if errors.Is(err, drepo.ErrCorruptDocument) {
			quarantineCorrupt(ctx, s.store, DocLearning, s.now(), s.logger)
		}
		fresh := models.NewLearningDocument()
		if err := s.store.Save(ctx, DocLearning, fresh); err != nil {
			s.logger.Error("learning document write-back failed", logger.Error(err))
		}
		return fresh, nil
	default:
		return nil, fmt.Errorf("learning load: %w", err)
	}
}

// accuracyPercent is wins/total as a percentage rounded half to even at 2 places.
func accuracyPercent(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(wins)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		RoundBank(2).
		InexactFloat64()
}
