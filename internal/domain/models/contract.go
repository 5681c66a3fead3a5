package models

import "errors"

var (
	// ErrProposalRejected is returned when the venue answers a proposal without a quote.
	ErrProposalRejected = errors.New("proposal rejected")
	// ErrBuyRejected is returned when the venue answers a buy without a confirmation.
	ErrBuyRejected = errors.New("buy rejected")
)

// ContractState tracks one trade through the lifecycle machine.
type ContractState string

const (
	StateProposing ContractState = "proposing"
	StateProposed  ContractState = "proposed"
	StateBuying    ContractState = "buying"
	StateOpen      ContractState = "open"
	StatePolling   ContractState = "polling"
	StateSettled   ContractState = "settled"
	StateFailed    ContractState = "failed"
)

// Proposal is a venue price quote valid for a short time.
type Proposal struct {
	ID       string  `json:"id"`
	AskPrice float64 `json:"ask_price"`
	Payout   float64 `json:"payout"`
}

// Contract is one open position at the venue.
type Contract struct {
	ID            string        `json:"contract_id"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Decision      Decision      `json:"decision"`
	BuyPrice      float64       `json:"buy_price"`
	State         ContractState `json:"state"`
	Profit        float64       `json:"profit"`
}

// ContractStatus is one open-contract snapshot.
type ContractStatus struct {
	ContractID string  `json:"contract_id"`
	IsSold     bool    `json:"is_sold"`
	IsExpired  bool    `json:"is_expired"`
	Profit     float64 `json:"profit"`
	Status     string  `json:"status"`
}

// Settled reports whether the venue considers the contract finished.
func (s ContractStatus) Settled() bool { return s.IsSold || s.IsExpired }
