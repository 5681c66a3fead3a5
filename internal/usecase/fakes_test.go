package usecase

import (
	"context"
	"sync"
	"time"

	"DerivBot/internal/domain/models"
	drepo "DerivBot/internal/domain/repository"
)

// fakeClock advances only when sleep is called.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

type fakeBroker struct {
	proposal    models.Proposal
	proposeErr  error
	contract    models.Contract
	buyErr      error
	statuses    []models.ContractStatus // returned in order, the last one repeats
	statusErr   error
	proposeN    int
	buyN        int
	statusCalls int
}

func (b *fakeBroker) Propose(_ context.Context, _ models.Decision) (models.Proposal, error) {
	b.proposeN++
	return b.proposal, b.proposeErr
}

func (b *fakeBroker) Buy(_ context.Context, _ models.Proposal) (models.Contract, error) {
	b.buyN++
	return b.contract, b.buyErr
}

func (b *fakeBroker) ContractStatus(_ context.Context, id string) (models.ContractStatus, error) {
	b.statusCalls++
	if b.statusErr != nil {
		return models.ContractStatus{}, b.statusErr
	}
	if len(b.statuses) == 0 {
		return models.ContractStatus{ContractID: id, Status: "open"}, nil
	}
	i := b.statusCalls - 1
	if i >= len(b.statuses) {
		i = len(b.statuses) - 1
	}
	return b.statuses[i], nil
}

type fakeVenue struct {
	connected    bool
	reconnectErr error
	reconnects   int
}

func (v *fakeVenue) Connect(context.Context) error { v.connected = true; return nil }

func (v *fakeVenue) Reconnect(context.Context) error {
	v.reconnects++
	if v.reconnectErr != nil {
		return v.reconnectErr
	}
	v.connected = true
	return nil
}

func (v *fakeVenue) IsConnected() bool { return v.connected }
func (v *fakeVenue) Close() error      { v.connected = false; return nil }

type fakeMarket struct {
	bars []models.Bar
	err  error
}

func (m *fakeMarket) FetchBars(context.Context) ([]models.Bar, error) { return m.bars, m.err }

type stubDetector struct{ sig models.Signal }

func (d stubDetector) Detect([]models.Bar) models.Signal { return d.sig }

type spyExecutor struct {
	contract *models.Contract
	err      error
	calls    []models.Decision
}

func (s *spyExecutor) Execute(_ context.Context, d models.Decision) (*models.Contract, error) {
	s.calls = append(s.calls, d)
	return s.contract, s.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	subjects []string
	bodies   []string
}

func (n *recordingNotifier) Notify(_ context.Context, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subjects = append(n.subjects, subject)
	n.bodies = append(n.bodies, body)
	return nil
}

type failingSink struct{ err error }

func (s failingSink) Name() string                                     { return "failing" }
func (s failingSink) Publish(context.Context, models.TradeRecord) error { return s.err }
func (s failingSink) Close() error                                     { return nil }

type collectingSink struct{ recs []models.TradeRecord }

func (s *collectingSink) Name() string { return "collect" }
func (s *collectingSink) Publish(_ context.Context, r models.TradeRecord) error {
	s.recs = append(s.recs, r)
	return nil
}
func (s *collectingSink) Close() error { return nil }

// lockingStore counts Lock calls on top of any DocumentStore.
type lockingStore struct {
	drepo.DocumentStore
	locks, unlocks int
}

func (s *lockingStore) Lock(context.Context, string, time.Duration) (func(), error) {
	s.locks++
	return func() { s.unlocks++ }, nil
}
