package repository

import (
	"context"
	"errors"
	"time"

	"DerivBot/internal/domain/models"
)

var (
	// ErrDocumentNotFound is returned by DocumentStore.Load when nothing was saved under the name.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrCorruptDocument is returned by DocumentStore.Load when the stored bytes do not decode.
	ErrCorruptDocument = errors.New("document corrupt")
)

// Venue owns the connection lifecycle of the execution venue.
type Venue interface {
	Connect(ctx context.Context) error
	Reconnect(ctx context.Context) error
	IsConnected() bool
	Close() error
}

// MarketData fetches the most recent bars of the configured instrument.
type MarketData interface {
	FetchBars(ctx context.Context) ([]models.Bar, error)
}

// Broker places and tracks contracts. Every call is one correlated request/response.
type Broker interface {
	Propose(ctx context.Context, decision models.Decision) (models.Proposal, error)
	Buy(ctx context.Context, proposal models.Proposal) (models.Contract, error)
	ContractStatus(ctx context.Context, contractID string) (models.ContractStatus, error)
}

// DocumentStore loads and saves whole JSON documents by logical name.
type DocumentStore interface {
	Load(ctx context.Context, name string, dest any) error
	Save(ctx context.Context, name string, doc any) error
}

// Quarantiner moves the stored bytes of a document aside, unparsed, so a
// corrupt document can be replaced without losing it. It returns where they went.
type Quarantiner interface {
	Quarantine(ctx context.Context, name, suffix string) (string, error)
}

// Locker is implemented by stores shared between processes.
type Locker interface {
	Lock(ctx context.Context, name string, ttl time.Duration) (unlock func(), err error)
}

// TradeSink receives every settled trade after it is journaled.
type TradeSink interface {
	Name() string
	Publish(ctx context.Context, rec models.TradeRecord) error
	Close() error
}

// Notifier delivers a human-readable message. Unconfigured notifiers return nil.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

type Metrics interface {
	RecordCycle(outcome string)
	RecordSignal(pattern, decision string)
	RecordTrade(pattern, result string, profit float64)
	RecordAccuracy(pattern string, accuracy float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
