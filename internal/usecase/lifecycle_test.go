package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"DerivBot/internal/domain/models"
	"DerivBot/pkg/logger"
	"DerivBot/pkg/metrics"
)

func newTestLifecycle(b *fakeBroker, clock *fakeClock) *TradeLifecycle {
	l := NewTradeLifecycle(b, LifecycleConfig{PollInterval: 2 * time.Second, SettlementTimeout: 300 * time.Second}, metrics.Nop{}, logger.NewNop())
	l.now = clock.Now
	l.sleep = clock.Sleep
	return l
}

func openBroker() *fakeBroker {
	return &fakeBroker{
		proposal: models.Proposal{ID: "p-1", AskPrice: 100},
		contract: models.Contract{ID: "c-1", TransactionID: "t-1", BuyPrice: 100},
	}
}

func TestPollTimeoutReturnsFlat(t *testing.T) {
	clock := newFakeClock()
	b := openBroker()
	l := newTestLifecycle(b, clock)
	start := clock.Now()

	profit, err := l.PollUntilSettled(context.Background(), "c-1", 300*time.Second)
	if err != nil {
		t.Fatalf("PollUntilSettled err = %v, want nil", err)
	}
	if profit != 0 {
		t.Errorf("profit = %v, want 0", profit)
	}
	if elapsed := clock.Now().Sub(start); elapsed != 300*time.Second {
		t.Errorf("elapsed = %v, want exactly 300s", elapsed)
	}
	if b.statusCalls != 150 {
		t.Errorf("polls = %d, want 150", b.statusCalls)
	}
}

func TestExecuteSettles(t *testing.T) {
	b := openBroker()
	b.statuses = []models.ContractStatus{
		{Status: "open"},
		{Status: "open"},
		{IsSold: true, Profit: 95.4, Status: "won"},
	}
	l := newTestLifecycle(b, newFakeClock())

	c, err := l.Execute(context.Background(), models.DecisionBuy)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.State != models.StateSettled || c.Profit != 95.4 || c.ID != "c-1" {
		t.Errorf("contract = %+v", c)
	}
	if b.statusCalls != 3 {
		t.Errorf("polls = %d, want 3", b.statusCalls)
	}
}

func TestExecuteExpiredLoss(t *testing.T) {
	b := openBroker()
	b.statuses = []models.ContractStatus{{IsExpired: true, Profit: -100, Status: "lost"}}
	c, err := newTestLifecycle(b, newFakeClock()).Execute(context.Background(), models.DecisionSell)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.Profit != -100 || c.State != models.StateSettled {
		t.Errorf("contract = %+v", c)
	}
}

func TestExecuteTimeoutMarksFailed(t *testing.T) {
	c, err := newTestLifecycle(openBroker(), newFakeClock()).Execute(context.Background(), models.DecisionBuy)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if c.State != models.StateFailed || c.Profit != 0 || c.ID != "c-1" {
		t.Errorf("contract = %+v", c)
	}
}

func TestExecuteFailures(t *testing.T) {
	venueDown := errors.New("venue down")

	tests := []struct {
		name      string
		decision  models.Decision
		setup     func(*fakeBroker)
		wantErr   error
		wantState models.ContractState
		wantID    string
		wantBuys  int
	}{
		{
			name:      "hold is not tradable",
			decision:  models.DecisionHold,
			setup:     func(*fakeBroker) {},
			wantState: models.StateFailed,
		},
		{
			name:      "proposal rejected",
			decision:  models.DecisionBuy,
			setup:     func(b *fakeBroker) { b.proposeErr = models.ErrProposalRejected },
			wantErr:   models.ErrProposalRejected,
			wantState: models.StateFailed,
		},
		{
			name:      "buy rejected",
			decision:  models.DecisionSell,
			setup:     func(b *fakeBroker) { b.buyErr = models.ErrBuyRejected },
			wantErr:   models.ErrBuyRejected,
			wantState: models.StateFailed,
			wantBuys:  1,
		},
		{
			name:      "poll error keeps contract open",
			decision:  models.DecisionBuy,
			setup:     func(b *fakeBroker) { b.statusErr = venueDown },
			wantErr:   venueDown,
			wantState: models.StatePolling,
			wantID:    "c-1",
			wantBuys:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := openBroker()
			tt.setup(b)
			c, err := newTestLifecycle(b, newFakeClock()).Execute(context.Background(), tt.decision)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if c == nil {
				t.Fatal("contract must never be nil")
			}
			if c.State != tt.wantState || c.ID != tt.wantID {
				t.Errorf("contract = %+v", c)
			}
			if b.buyN != tt.wantBuys {
				t.Errorf("buys = %d, want %d", b.buyN, tt.wantBuys)
			}
		})
	}
}

func TestPollHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestLifecycle(openBroker(), newFakeClock()).PollUntilSettled(ctx, "c-1", time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

// silentBroker never answers a status request until its context ends.
type silentBroker struct{ fakeBroker }

func (b *silentBroker) ContractStatus(ctx context.Context, _ string) (models.ContractStatus, error) {
	b.statusCalls++
	<-ctx.Done()
	return models.ContractStatus{}, ctx.Err()
}

func TestPollTimeoutBoundsUnansweredStatus(t *testing.T) {
	b := &silentBroker{}
	l := NewTradeLifecycle(b, LifecycleConfig{PollInterval: 10 * time.Millisecond, SettlementTimeout: time.Second}, metrics.Nop{}, logger.NewNop())

	type result struct {
		profit float64
		err    error
	}
	done := make(chan result, 1)
	go func() {
		p, err := l.PollUntilSettled(context.Background(), "c-1", 200*time.Millisecond)
		done <- result{p, err}
	}()

	select {
	case r := <-done:
		if r.err != nil || r.profit != 0 {
			t.Fatalf("PollUntilSettled = %v, %v; want 0, nil", r.profit, r.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poll still blocked after the settlement timeout")
	}
	if b.statusCalls != 1 {
		t.Errorf("status calls = %d, want 1", b.statusCalls)
	}
}

func TestPollCancelledParentIsAnError(t *testing.T) {
	b := &silentBroker{}
	l := NewTradeLifecycle(b, LifecycleConfig{}, metrics.Nop{}, logger.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := l.PollUntilSettled(ctx, "c-1", time.Minute); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want context deadline", err)
	}
}
