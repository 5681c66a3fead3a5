package repository

import (
	"context"
	"database/sql"
	"fmt"

	"DerivBot/internal/domain/models"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ClickHouseTradeSink mirrors settled trades into a MergeTree table.
type ClickHouseTradeSink struct {
	db    execer
	table string
}

func NewClickHouseTradeSink(db execer, database, table string) *ClickHouseTradeSink {
	return &ClickHouseTradeSink{db: db, table: qualify(database, table)}
}

func qualify(database, table string) string {
	if database == "" {
		return table
	}
	return database + "." + table
}

// TradesSchema returns the idempotent DDL for the trades table.
func TradesSchema(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id String,
	ts DateTime64(3, 'UTC'),
	symbol LowCardinality(String),
	pattern LowCardinality(String),
	decision LowCardinality(String),
	profit Float64,
	won UInt8,
	accuracy_at_trade Float64,
	contract_id String
) ENGINE = MergeTree
ORDER BY (symbol, ts)`, qualify(database, table)),
	}
}

func (s *ClickHouseTradeSink) Name() string { return "clickhouse" }

func (s *ClickHouseTradeSink) Publish(ctx context.Context, rec models.TradeRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (id, ts, symbol, pattern, decision, profit, won, accuracy_at_trade, contract_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.table)
	var won uint8
	if rec.Won() {
		won = 1
	}
	_, err := s.db.ExecContext(ctx, q,
		rec.ID,
		rec.Time.UTC(),
		rec.Symbol,
		string(rec.Pattern),
		string(rec.Decision),
		rec.Profit,
		won,
		rec.AccuracyAtTrade,
		rec.ContractID,
	)
	if err != nil {
		return fmt.Errorf("clickhouse insert trade: %w", err)
	}
	return nil
}

// Close is a no-op; the pool belongs to pkg/clickhouse.Client.
func (s *ClickHouseTradeSink) Close() error { return nil }
