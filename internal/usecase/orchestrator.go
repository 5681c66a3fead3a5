package usecase

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"DerivBot/internal/domain/models"
	drepo "DerivBot/internal/domain/repository"
	"DerivBot/internal/domain/service"
	"DerivBot/pkg/logger"
)

type OrchestratorConfig struct {
	Symbol       string
	MinAccuracy  float64
	TickInterval time.Duration
}

// tradeExecutor is satisfied by *TradeLifecycle.
type tradeExecutor interface {
	Execute(ctx context.Context, decision models.Decision) (*models.Contract, error)
}

// Orchestrator runs the fetch, detect, gate, trade, learn cycle.
type Orchestrator struct {
	cfg       OrchestratorConfig
	venue     drepo.Venue
	market    drepo.MarketData
	detector  service.PatternDetector
	learning  *LearningStore
	lifecycle tradeExecutor
	journal   *TradeJournal
	snapshots drepo.DocumentStore
	notifier  drepo.Notifier
	metrics   drepo.Metrics
	logger    *logger.Logger

	last atomic.Pointer[models.CycleReport]
	now  func() time.Time
}

func NewOrchestrator(
	cfg OrchestratorConfig,
	venue drepo.Venue,
	market drepo.MarketData,
	detector service.PatternDetector,
	learning *LearningStore,
	lifecycle tradeExecutor,
	journal *TradeJournal,
	snapshots drepo.DocumentStore,
	notifier drepo.Notifier,
	metrics drepo.Metrics,
	log *logger.Logger,
) *Orchestrator {
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 5 * time.Second
	}
	return &Orchestrator{
		cfg:       cfg,
		venue:     venue,
		market:    market,
		detector:  detector,
		learning:  learning,
		lifecycle: lifecycle,
		journal:   journal,
		snapshots: snapshots,
		notifier:  notifier,
		metrics:   metrics,
		logger:    log.With(logger.String("component", "orchestrator"), logger.String("symbol", cfg.Symbol)),
		now:       time.Now,
	}
}

// Run ticks until ctx is cancelled. A failed tick never stops the loop.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("orchestrator started", logger.Duration("tick_interval", o.cfg.TickInterval))
	for {
		o.Tick(ctx)
		if err := sleepCtx(ctx, o.cfg.TickInterval); err != nil {
			o.logger.Info("orchestrator stopped")
			return err
		}
	}
}

// LastReport returns the most recent tick report, or nil before the first tick.
func (o *Orchestrator) LastReport() *models.CycleReport {
	return o.last.Load()
}

func (o *Orchestrator) Connected() bool {
	return o.venue.IsConnected()
}

// Tick runs one decision cycle. Every failure ends up in the returned report.
func (o *Orchestrator) Tick(ctx context.Context) (report models.CycleReport) {
	report.Time = o.now().UTC()
	defer func() {
		if r := recover(); r != nil {
			report.Outcome = models.OutcomeError
			report.Error = fmt.Sprint(r)
		}
		o.finish(report)
	}()

	if !o.venue.IsConnected() {
		if err := o.venue.Reconnect(ctx); err != nil {
			return o.fail(report, models.OutcomeReconnectFailed, err)
		}
		o.logger.Info("venue reconnected")
	}

	bars, err := o.market.FetchBars(ctx)
	if err != nil {
		return o.fail(report, models.OutcomeFetchFailed, err)
	}
	report.Bars = len(bars)
	if len(bars) == 0 {
		report.Outcome = models.OutcomeNoBars
		return report
	}

	if err := o.snapshots.Save(ctx, DocBars, bars); err != nil {
		o.metrics.RecordError("bars_snapshot")
		o.logger.Warn("bars snapshot failed", logger.Error(err))
	}

	sig := o.detector.Detect(bars)
	report.Signal = sig
	if !sig.Matched {
		report.Outcome = models.OutcomeNoSignal
		return report
	}
	o.metrics.RecordSignal(string(sig.Pattern), string(sig.Decision))
	if !sig.Actionable() {
		report.Outcome = models.OutcomeHold
		return report
	}

	accuracy, err := o.learning.AccuracyOf(ctx, sig.Pattern)
	if err != nil {
		return o.fail(report, models.OutcomeError, err)
	}
	report.Accuracy = accuracy
	if accuracy < o.cfg.MinAccuracy {
		report.Outcome = models.OutcomeBelowThreshold
		return report
	}

	contract, err := o.lifecycle.Execute(ctx, sig.Decision)
	if contract != nil {
		report.ContractID = contract.ID
		report.State = contract.State
	}
	if err != nil {
		if contract != nil && contract.ID != "" {
			o.notifyUnsettled(ctx, sig, contract, err)
		}
		return o.fail(report, models.OutcomeTradeFailed, err)
	}

	report.Profit = contract.Profit
	won := contract.Profit > 0
	result := "loss"
	if won {
		result = "win"
	}
	o.metrics.RecordTrade(string(sig.Pattern), result, contract.Profit)

	if _, err := o.learning.Record(ctx, sig.Pattern, won); err != nil {
		o.metrics.RecordError("learning_record")
		o.logger.Error("learning record failed", logger.Error(err))
	}

	if _, err := o.journal.Append(ctx, models.TradeRecord{
		Time:            o.now().UTC(),
		Symbol:          o.cfg.Symbol,
		Pattern:         sig.Pattern,
		Decision:        sig.Decision,
		Profit:          contract.Profit,
		AccuracyAtTrade: accuracy,
		ContractID:      contract.ID,
	}); err != nil {
		o.metrics.RecordError("journal_append")
		o.logger.Error("journal append failed", logger.Error(err))
	}

	o.notify(ctx, tradeSubject(won), tradeBody(sig, contract.Profit, accuracy))
	report.Outcome = models.OutcomeTraded
	return report
}

func (o *Orchestrator) fail(report models.CycleReport, outcome models.CycleOutcome, err error) models.CycleReport {
	report.Outcome = outcome
	report.Error = err.Error()
	return report
}

func (o *Orchestrator) finish(report models.CycleReport) {
	o.last.Store(&report)
	o.metrics.RecordCycle(string(report.Outcome))

	switch report.Outcome {
	case models.OutcomeReconnectFailed:
		o.logger.Error("reconnect failed", logger.String("error", report.Error))
	case models.OutcomeFetchFailed:
		o.logger.Warn("bar fetch failed", logger.String("error", report.Error))
	case models.OutcomeNoBars:
		o.logger.Warn("no bars received yet")
	case models.OutcomeNoSignal:
		o.logger.Debug("no pattern", logger.Int("bars", report.Bars), logger.String("trend", string(report.Signal.Trend)))
	case models.OutcomeHold:
		o.logger.Info("signal is hold, skipping", logger.String("pattern", string(report.Signal.Pattern)))
	case models.OutcomeBelowThreshold:
		o.logger.Info("accuracy below threshold, skipping trade",
			logger.String("pattern", string(report.Signal.Pattern)),
			logger.Float64("accuracy", report.Accuracy),
			logger.Float64("min_accuracy", o.cfg.MinAccuracy),
		)
	case models.OutcomeTradeFailed:
		o.logger.Error("trade failed",
			logger.String("pattern", string(report.Signal.Pattern)),
			logger.String("contract_id", report.ContractID),
			logger.String("state", string(report.State)),
			logger.String("error", report.Error),
		)
	case models.OutcomeTraded:
		o.logger.Info("trade settled",
			logger.String("pattern", string(report.Signal.Pattern)),
			logger.String("decision", string(report.Signal.Decision)),
			logger.String("contract_id", report.ContractID),
			logger.String("state", string(report.State)),
			logger.Float64("profit", report.Profit),
			logger.Float64("accuracy", report.Accuracy),
		)
	default:
		o.logger.Error("cycle error", logger.String("error", report.Error))
	}
}

func (o *Orchestrator) notify(ctx context.Context, subject, body string) {
	if err := o.notifier.Notify(ctx, subject, body); err != nil {
		o.metrics.RecordError("notify")
		o.logger.Warn("notification failed", logger.String("subject", subject), logger.Error(err))
	}
}

func (o *Orchestrator) notifyUnsettled(ctx context.Context, sig models.Signal, c *models.Contract, cause error) {
	body := fmt.Sprintf("Contract: %s\nPattern: %s\nDecision: %s\nState: %s\nError: %v\n",
		c.ID, sig.Pattern, sig.Decision, c.State, cause)
	o.notify(ctx, "Trade Unsettled: "+c.ID, body)
}

func tradeSubject(won bool) string {
	if won {
		return "Trade Result: WIN"
	}
	return "Trade Result: LOSS"
}

func tradeBody(sig models.Signal, profit, accuracy float64) string {
	return fmt.Sprintf("Pattern: %s\nDecision: %s\nProfit: %v\nAccuracy at trade: %v%%\n",
		sig.Pattern, sig.Decision, profit, accuracy)
}
