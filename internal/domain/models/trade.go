package models

import "time"

// TradeRecord is one settled trade in the append-only history.
type TradeRecord struct {
	ID              string    `json:"id"`
	Time            time.Time `json:"time"`
	Symbol          string    `json:"symbol"`
	Pattern         Pattern   `json:"pattern"`
	Decision        Decision  `json:"decision"`
	Profit          float64   `json:"profit"`
	AccuracyAtTrade float64   `json:"accuracy_at_trade"`
	ContractID      string    `json:"contract_id"`
}

// Won reports a strictly positive profit.
func (r TradeRecord) Won() bool { return r.Profit > 0 }

// TradeSummary aggregates the trade history.
type TradeSummary struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	TotalProfit float64 `json:"total_profit"`
	WinRate     float64 `json:"win_rate"`
}

// TradeFilter narrows a history listing.
type TradeFilter struct {
	From  time.Time
	Limit int
}
