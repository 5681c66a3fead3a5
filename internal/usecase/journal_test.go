package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"DerivBot/internal/domain/models"
	drepo "DerivBot/internal/domain/repository"
	"DerivBot/internal/repository"
	"DerivBot/pkg/logger"
	"DerivBot/pkg/metrics"
)

func newJournal(store drepo.DocumentStore, sinks ...drepo.TradeSink) *TradeJournal {
	return NewTradeJournal(store, sinks, metrics.Nop{}, logger.NewNop())
}

func TestJournalAppendFillsIdentity(t *testing.T) {
	j := newJournal(repository.NewMemoryStore())
	clock := newFakeClock()
	j.now = clock.Now

	rec, err := j.Append(context.Background(), models.TradeRecord{Pattern: models.PatternHammer, Profit: 1})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(rec.ID) != 36 {
		t.Errorf("id = %q, want uuid", rec.ID)
	}
	if !rec.Time.Equal(clock.Now()) {
		t.Errorf("time = %v", rec.Time)
	}
}

func TestJournalListNewestFirst(t *testing.T) {
	ctx := context.Background()
	j := newJournal(repository.NewMemoryStore())
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := j.Append(ctx, models.TradeRecord{
			Time:       base.Add(time.Duration(i) * time.Hour),
			ContractID: string(rune('a' + i)),
		})
		if err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter models.TradeFilter
		want   string
	}{
		{"all", models.TradeFilter{}, "edcba"},
		{"limit", models.TradeFilter{Limit: 2}, "ed"},
		{"from", models.TradeFilter{From: base.Add(2 * time.Hour)}, "edc"},
		{"from and limit", models.TradeFilter{From: base.Add(time.Hour), Limit: 3}, "edc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := j.List(ctx, tt.filter)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			got := ""
			for _, r := range recs {
				got += r.ContractID
			}
			if got != tt.want {
				t.Errorf("order = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestJournalSummary(t *testing.T) {
	ctx := context.Background()
	j := newJournal(repository.NewMemoryStore())
	for _, p := range []float64{0.1, 0.2, -1, 0} {
		if _, err := j.Append(ctx, models.TradeRecord{Profit: p}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	s, err := j.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := models.TradeSummary{Trades: 4, Wins: 2, Losses: 2, TotalProfit: -0.7, WinRate: 50}
	if s != want {
		t.Errorf("summary = %+v, want %+v", s, want)
	}
}

func TestJournalEmptySummary(t *testing.T) {
	s, err := newJournal(repository.NewMemoryStore()).Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if s != (models.TradeSummary{}) {
		t.Errorf("summary = %+v", s)
	}
}

func TestJournalSinkFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	good := &collectingSink{}
	j := newJournal(repository.NewMemoryStore(), failingSink{err: errors.New("broker down")}, good)

	if _, err := j.Append(ctx, models.TradeRecord{Profit: 3}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if len(good.recs) != 1 {
		t.Errorf("good sink got %d records", len(good.recs))
	}
	recs, _ := j.List(ctx, models.TradeFilter{})
	if len(recs) != 1 {
		t.Errorf("journal has %d records", len(recs))
	}
}

func TestJournalHealsCorruptHistory(t *testing.T) {
	store := repository.NewMemoryStore()
	store.Put(DocTrades, []byte("{not json"))
	j := newJournal(store)
	clock := newFakeClock()
	j.now = clock.Now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := j.Append(ctx, models.TradeRecord{Profit: float64(i + 1)}); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	recs, err := j.List(ctx, models.TradeFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}

	backup := fmt.Sprintf("%s.corrupt-%d", DocTrades, clock.Now().Unix())
	if raw, ok := store.Raw(backup); !ok || string(raw) != "{not json" {
		t.Errorf("backup %s = %q, %v", backup, raw, ok)
	}
}
