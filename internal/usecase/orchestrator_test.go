package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"DerivBot/internal/domain/models"
	"DerivBot/internal/repository"
	"DerivBot/pkg/logger"
	"DerivBot/pkg/metrics"
)

type orchestratorFixture struct {
	venue    *fakeVenue
	market   *fakeMarket
	exec     *spyExecutor
	store    *repository.MemoryStore
	learning *LearningStore
	journal  *TradeJournal
	notifier *recordingNotifier
	orch     *Orchestrator
}

var engulfing = models.Signal{
	Matched:    true,
	Pattern:    models.PatternBullishEngulfing,
	Decision:   models.DecisionBuy,
	Confidence: 90,
	Trend:      models.TrendBearish,
}

func newFixture(t *testing.T, sig models.Signal) *orchestratorFixture {
	t.Helper()
	f := &orchestratorFixture{
		venue:    &fakeVenue{connected: true},
		market:   &fakeMarket{bars: []models.Bar{{Epoch: 1, Open: 1, High: 2, Low: 0.5, Close: 1.5}}},
		exec:     &spyExecutor{contract: &models.Contract{ID: "c-9", State: models.StateSettled, Profit: 95}},
		store:    repository.NewMemoryStore(),
		notifier: &recordingNotifier{},
	}
	f.learning = NewLearningStore(f.store, metrics.Nop{}, logger.NewNop(), 5, 0)
	f.journal = NewTradeJournal(f.store, nil, metrics.Nop{}, logger.NewNop())
	f.orch = NewOrchestrator(
		OrchestratorConfig{Symbol: "R_100", MinAccuracy: 70, TickInterval: time.Millisecond},
		f.venue, f.market, stubDetector{sig: sig}, f.learning, f.exec, f.journal, f.store,
		f.notifier, metrics.Nop{}, logger.NewNop(),
	)
	return f
}

func (f *orchestratorFixture) seed(t *testing.T, label models.Pattern, wins, losses int) {
	t.Helper()
	for i := 0; i < wins; i++ {
		if _, err := f.learning.Record(context.Background(), label, true); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < losses; i++ {
		if _, err := f.learning.Record(context.Background(), label, false); err != nil {
			t.Fatal(err)
		}
	}
}

func (f *orchestratorFixture) trades(t *testing.T) []models.TradeRecord {
	t.Helper()
	recs, err := f.journal.List(context.Background(), models.TradeFilter{})
	if err != nil {
		t.Fatal(err)
	}
	return recs
}

func TestTickBelowThresholdDoesNotTrade(t *testing.T) {
	f := newFixture(t, engulfing)
	f.seed(t, models.PatternBullishEngulfing, 3, 2) // 60%

	r := f.orch.Tick(context.Background())
	if r.Outcome != models.OutcomeBelowThreshold {
		t.Fatalf("outcome = %s", r.Outcome)
	}
	if r.Accuracy != 60 {
		t.Errorf("accuracy = %v", r.Accuracy)
	}
	if len(f.exec.calls) != 0 {
		t.Errorf("lifecycle called %d times", len(f.exec.calls))
	}
	if n := len(f.trades(t)); n != 0 {
		t.Errorf("journal has %d records", n)
	}
}

func TestTickColdStartIsBelowThreshold(t *testing.T) {
	f := newFixture(t, engulfing)
	if r := f.orch.Tick(context.Background()); r.Outcome != models.OutcomeBelowThreshold {
		t.Fatalf("outcome = %s", r.Outcome)
	}
}

func TestTickTradesAndLearns(t *testing.T) {
	f := newFixture(t, engulfing)
	f.seed(t, models.PatternBullishEngulfing, 4, 1) // 80%

	r := f.orch.Tick(context.Background())
	if r.Outcome != models.OutcomeTraded {
		t.Fatalf("outcome = %s (%s)", r.Outcome, r.Error)
	}
	if r.ContractID != "c-9" || r.Profit != 95 || r.State != models.StateSettled {
		t.Errorf("report = %+v", r)
	}
	if len(f.exec.calls) != 1 || f.exec.calls[0] != models.DecisionBuy {
		t.Errorf("executor calls = %v", f.exec.calls)
	}

	doc, _ := f.learning.Snapshot(context.Background())
	if rec := doc.Patterns[models.PatternBullishEngulfing]; rec.Wins != 5 || rec.Losses != 1 {
		t.Errorf("learning = %+v", rec)
	}

	recs := f.trades(t)
	if len(recs) != 1 {
		t.Fatalf("journal has %d records", len(recs))
	}
	if recs[0].AccuracyAtTrade != 80 || recs[0].Symbol != "R_100" || recs[0].ContractID != "c-9" {
		t.Errorf("trade record = %+v", recs[0])
	}

	if len(f.notifier.subjects) != 1 || f.notifier.subjects[0] != "Trade Result: WIN" {
		t.Errorf("notifications = %v", f.notifier.subjects)
	}
	if !strings.Contains(f.notifier.bodies[0], "Pattern: Bullish Engulfing") {
		t.Errorf("body = %q", f.notifier.bodies[0])
	}

	if last := f.orch.LastReport(); last == nil || last.Outcome != models.OutcomeTraded {
		t.Errorf("last report = %+v", last)
	}
}

func TestTickLossAndFlatAreLosses(t *testing.T) {
	for _, profit := range []float64{-100, 0} {
		f := newFixture(t, engulfing)
		f.seed(t, models.PatternBullishEngulfing, 5, 0)
		f.exec.contract = &models.Contract{ID: "c-1", State: models.StateFailed, Profit: profit}

		if r := f.orch.Tick(context.Background()); r.Outcome != models.OutcomeTraded {
			t.Fatalf("profit %v: outcome = %s", profit, r.Outcome)
		}
		doc, _ := f.learning.Snapshot(context.Background())
		if rec := doc.Patterns[models.PatternBullishEngulfing]; rec.Losses != 1 {
			t.Errorf("profit %v: learning = %+v", profit, rec)
		}
		if f.notifier.subjects[0] != "Trade Result: LOSS" {
			t.Errorf("profit %v: subject = %q", profit, f.notifier.subjects[0])
		}
	}
}

func TestTickTradeFailedAfterOpenNotifiesUnsettled(t *testing.T) {
	f := newFixture(t, engulfing)
	f.seed(t, models.PatternBullishEngulfing, 5, 0)
	f.exec.contract = &models.Contract{ID: "c-7", State: models.StatePolling}
	f.exec.err = errors.New("connection reset")

	r := f.orch.Tick(context.Background())
	if r.Outcome != models.OutcomeTradeFailed || r.ContractID != "c-7" {
		t.Fatalf("report = %+v", r)
	}
	if len(f.notifier.subjects) != 1 || !strings.HasPrefix(f.notifier.subjects[0], "Trade Unsettled") {
		t.Errorf("notifications = %v", f.notifier.subjects)
	}
	doc, _ := f.learning.Snapshot(context.Background())
	if rec := doc.Patterns[models.PatternBullishEngulfing]; rec.Samples() != 5 {
		t.Errorf("learning changed: %+v", rec)
	}
	if n := len(f.trades(t)); n != 0 {
		t.Errorf("journal has %d records", n)
	}
}

func TestTickEarlyOutcomes(t *testing.T) {
	hold := models.Signal{Matched: true, Pattern: models.PatternDoji, Decision: models.DecisionHold, Confidence: 50}

	tests := []struct {
		name  string
		sig   models.Signal
		setup func(*orchestratorFixture)
		want  models.CycleOutcome
	}{
		{
			name: "reconnect failed",
			sig:  engulfing,
			setup: func(f *orchestratorFixture) {
				f.venue.connected = false
				f.venue.reconnectErr = errors.New("dial refused")
			},
			want: models.OutcomeReconnectFailed,
		},
		{
			name:  "fetch failed",
			sig:   engulfing,
			setup: func(f *orchestratorFixture) { f.market.err = errors.New("timeout") },
			want:  models.OutcomeFetchFailed,
		},
		{
			name:  "no bars",
			sig:   engulfing,
			setup: func(f *orchestratorFixture) { f.market.bars = nil },
			want:  models.OutcomeNoBars,
		},
		{
			name:  "no signal",
			sig:   models.Signal{Trend: models.TrendNeutral},
			setup: func(*orchestratorFixture) {},
			want:  models.OutcomeNoSignal,
		},
		{
			name:  "hold",
			sig:   hold,
			setup: func(*orchestratorFixture) {},
			want:  models.OutcomeHold,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, tt.sig)
			tt.setup(f)
			r := f.orch.Tick(context.Background())
			if r.Outcome != tt.want {
				t.Fatalf("outcome = %s, want %s", r.Outcome, tt.want)
			}
			if len(f.exec.calls) != 0 {
				t.Errorf("lifecycle called")
			}
		})
	}
}

func TestTickReconnectsWhenDown(t *testing.T) {
	f := newFixture(t, models.Signal{})
	f.venue.connected = false

	if r := f.orch.Tick(context.Background()); r.Outcome != models.OutcomeNoSignal {
		t.Fatalf("outcome = %s", r.Outcome)
	}
	if f.venue.reconnects != 1 {
		t.Errorf("reconnects = %d", f.venue.reconnects)
	}
}

func TestTickSnapshotsBars(t *testing.T) {
	f := newFixture(t, models.Signal{})
	f.orch.Tick(context.Background())

	var bars []models.Bar
	if err := f.store.Load(context.Background(), DocBars, &bars); err != nil {
		t.Fatalf("bars snapshot: %v", err)
	}
	if len(bars) != 1 || bars[0].Close != 1.5 {
		t.Errorf("bars = %+v", bars)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t, models.Signal{})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.orch.Run(ctx) }()

	deadline := time.Now().Add(time.Second)
	for f.orch.LastReport() == nil && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
