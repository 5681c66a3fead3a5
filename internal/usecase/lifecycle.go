package usecase

import (
	"context"
	"fmt"
	"time"

	"DerivBot/internal/domain/models"
	drepo "DerivBot/internal/domain/repository"
	"DerivBot/pkg/logger"
)

type LifecycleConfig struct {
	PollInterval      time.Duration
	SettlementTimeout time.Duration
}

// TradeLifecycle drives one contract from proposal to settlement. It holds
// no state between trades and never retries a step.
type TradeLifecycle struct {
	broker  drepo.Broker
	cfg     LifecycleConfig
	metrics drepo.Metrics
	logger  *logger.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewTradeLifecycle(broker drepo.Broker, cfg LifecycleConfig, metrics drepo.Metrics, log *logger.Logger) *TradeLifecycle {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.SettlementTimeout <= 0 {
		cfg.SettlementTimeout = 300 * time.Second
	}
	return &TradeLifecycle{
		broker:  broker,
		cfg:     cfg,
		metrics: metrics,
		logger:  log.With(logger.String("component", "lifecycle")),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Propose asks for a quote. Only BUY and SELL are tradable.
func (l *TradeLifecycle) Propose(ctx context.Context, decision models.Decision) (models.Proposal, error) {
	if _, ok := decision.ContractType(); !ok {
		return models.Proposal{}, fmt.Errorf("lifecycle propose: decision %q is not tradable", decision)
	}
	p, err := l.broker.Propose(ctx, decision)
	if err != nil {
		return models.Proposal{}, fmt.Errorf("lifecycle propose: %w", err)
	}
	return p, nil
}

func (l *TradeLifecycle) Buy(ctx context.Context, p models.Proposal) (models.Contract, error) {
	c, err := l.broker.Buy(ctx, p)
	if err != nil {
		return models.Contract{}, fmt.Errorf("lifecycle buy: %w", err)
	}
	return c, nil
}

// PollUntilSettled returns the realised profit. When timeout elapses first it
// returns 0 and no error; the contract stays open at the venue.
func (l *TradeLifecycle) PollUntilSettled(ctx context.Context, contractID string, timeout time.Duration) (float64, error) {
	profit, _, err := l.poll(ctx, contractID, timeout)
	return profit, err
}

func (l *TradeLifecycle) poll(ctx context.Context, contractID string, timeout time.Duration) (profit float64, settled bool, err error) {
	start := l.now()
	polls := 0

	// The deadline also bounds a status request that never gets a reply.
	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	expired := func() bool { return pollCtx.Err() != nil && ctx.Err() == nil }

	for l.now().Sub(start) < timeout {
		status, err := l.broker.ContractStatus(pollCtx, contractID)
		if err != nil {
			if expired() {
				break
			}
			return 0, false, fmt.Errorf("lifecycle poll %s: %w", contractID, err)
		}
		polls++
		if status.Settled() {
			l.logger.Debug("contract settled",
				logger.String("contract_id", contractID),
				logger.String("status", status.Status),
				logger.Int("polls", polls),
			)
			return status.Profit, true, nil
		}
		if err := l.sleep(pollCtx, l.cfg.PollInterval); err != nil {
			if expired() {
				break
			}
			return 0, false, fmt.Errorf("lifecycle poll %s: %w", contractID, err)
		}
	}

	l.logger.Warn("settlement timed out, assuming flat",
		logger.String("contract_id", contractID),
		logger.Duration("timeout", timeout),
		logger.Int("polls", polls),
	)
	return 0, false, nil
}

// Execute runs propose, buy and poll. The returned contract is never nil, so
// callers can report an opened position even when polling failed.
func (l *TradeLifecycle) Execute(ctx context.Context, decision models.Decision) (*models.Contract, error) {
	c := &models.Contract{Decision: decision, State: models.StateProposing}
	start := l.now()

	p, err := l.Propose(ctx, decision)
	if err != nil {
		c.State = models.StateFailed
		return c, err
	}
	c.State = models.StateProposed
	l.logger.Debug("proposal received",
		logger.String("proposal_id", p.ID),
		logger.Float64("ask_price", p.AskPrice),
	)

	c.State = models.StateBuying
	bought, err := l.Buy(ctx, p)
	if err != nil {
		c.State = models.StateFailed
		return c, err
	}
	c.ID = bought.ID
	c.TransactionID = bought.TransactionID
	c.BuyPrice = bought.BuyPrice
	c.State = models.StateOpen
	l.logger.Info("contract opened",
		logger.String("contract_id", c.ID),
		logger.String("decision", string(decision)),
		logger.Float64("buy_price", c.BuyPrice),
	)

	c.State = models.StatePolling
	profit, settled, err := l.poll(ctx, c.ID, l.cfg.SettlementTimeout)
	if err != nil {
		return c, err
	}
	if !settled {
		c.State = models.StateFailed
		return c, nil
	}

	c.State = models.StateSettled
	c.Profit = profit
	l.metrics.RecordLatency("trade_lifecycle", l.now().Sub(start).Seconds())
	return c, nil
}
