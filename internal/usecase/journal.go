package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"DerivBot/internal/domain/models"
	drepo "DerivBot/internal/domain/repository"
	"DerivBot/pkg/logger"
)

// TradeJournal is the append-only history of settled trades. The document
// store is authoritative; sinks receive a copy and may fail independently.
type TradeJournal struct {
	mu      sync.Mutex
	store   drepo.DocumentStore
	sinks   []drepo.TradeSink
	metrics drepo.Metrics
	logger  *logger.Logger
	now     func() time.Time
}

func NewTradeJournal(store drepo.DocumentStore, sinks []drepo.TradeSink, metrics drepo.Metrics, log *logger.Logger) *TradeJournal {
	return &TradeJournal{
		store:   store,
		sinks:   sinks,
		metrics: metrics,
		logger:  log.With(logger.String("component", "journal")),
		now:     time.Now,
	}
}

// Append fills in ID and Time when missing, persists rec and then fans it out to the sinks.
func (j *TradeJournal) Append(ctx context.Context, rec models.TradeRecord) (models.TradeRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Time.IsZero() {
		rec.Time = j.now().UTC()
	}

	j.mu.Lock()
	history, err := j.load(ctx)
	if err == nil {
		history = append(history, rec)
		err = j.store.Save(ctx, DocTrades, history)
	}
	j.mu.Unlock()
	if err != nil {
		return rec, fmt.Errorf("journal append: %w", err)
	}

	for _, sink := range j.sinks {
		if err := sink.Publish(ctx, rec); err != nil {
			j.metrics.RecordError("sink_" + sink.Name())
			j.logger.Warn("trade sink publish failed",
				logger.String("sink", sink.Name()),
				logger.String("trade_id", rec.ID),
				logger.Error(err),
			)
		}
	}
	return rec, nil
}

// List returns records newest first. A zero filter returns everything.
func (j *TradeJournal) List(ctx context.Context, f models.TradeFilter) ([]models.TradeRecord, error) {
	j.mu.Lock()
	history, err := j.load(ctx)
	j.mu.Unlock()
	if err != nil {
		return nil, err
	}

	out := make([]models.TradeRecord, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		rec := history[i]
		if !f.From.IsZero() && rec.Time.Before(f.From) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (j *TradeJournal) Summary(ctx context.Context) (models.TradeSummary, error) {
	j.mu.Lock()
	history, err := j.load(ctx)
	j.mu.Unlock()
	if err != nil {
		return models.TradeSummary{}, err
	}

	var s models.TradeSummary
	total := decimal.Zero
	for _, rec := range history {
		s.Trades++
		if rec.Won() {
			s.Wins++
		} else {
			s.Losses++
		}
		total = total.Add(decimal.NewFromFloat(rec.Profit))
	}
	s.TotalProfit = total.Round(2).InexactFloat64()
	s.WinRate = accuracyPercent(s.Wins, s.Trades)
	return s, nil
}

// load must be called with j.mu held. A missing history is empty. A corrupt
// one is moved aside and replaced by an empty history, which is written back.
func (j *TradeJournal) load(ctx context.Context) ([]models.TradeRecord, error) {
	var history []models.TradeRecord
	err := j.store.Load(ctx, DocTrades, &history)
	switch {
	case err == nil:
		return history, nil
	case errors.Is(err, drepo.ErrDocumentNotFound):
		return nil, nil
	case errors.Is(err, drepo.ErrCorruptDocument):
		j.metrics.RecordError("journal_corrupt")
		j.logger.Warn("trade history corrupt, starting empty", logger.Error(err))
		quarantineCorrupt(ctx, j.store, DocTrades, j.now(), j.logger)
		if err := j.store.Save(ctx, DocTrades, []models.TradeRecord{}); err != nil {
			j.logger.Error("trade history write-back failed", logger.Error(err))
		}
		return nil, nil
	default:
		return nil, fmt.Errorf("journal load: %w", err)
	}
}
