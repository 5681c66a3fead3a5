package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"DerivBot/internal/domain/models"
)

type tradePublisher interface {
	Publish(ctx context.Context, key []byte, value interface{}) error
	Close() error
}

// KafkaTradeSink publishes settled trades as JSON events keyed by record id.
type KafkaTradeSink struct {
	producer tradePublisher
}

func NewKafkaTradeSink(producer tradePublisher) *KafkaTradeSink {
	return &KafkaTradeSink{producer: producer}
}

type tradeEvent struct {
	ID         string    `json:"id"`
	Time       time.Time `json:"time"`
	Symbol     string    `json:"symbol"`
	Pattern    string    `json:"pattern"`
	Decision   string    `json:"decision"`
	Profit     float64   `json:"profit"`
	Won        bool      `json:"won"`
	Accuracy   float64   `json:"accuracy_at_trade"`
	ContractID string    `json:"contract_id"`
}

func (k *KafkaTradeSink) Name() string { return "kafka" }

func (k *KafkaTradeSink) Publish(ctx context.Context, rec models.TradeRecord) error {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	return k.producer.Publish(ctx, []byte(id), tradeEvent{
		ID:         id,
		Time:       rec.Time.UTC(),
		Symbol:     rec.Symbol,
		Pattern:    string(rec.Pattern),
		Decision:   string(rec.Decision),
		Profit:     rec.Profit,
		Won:        rec.Won(),
		Accuracy:   rec.AccuracyAtTrade,
		ContractID: rec.ContractID,
	})
}

func (k *KafkaTradeSink) Close() error {
	if k.producer != nil {
		return k.producer.Close()
	}
	return nil
}
