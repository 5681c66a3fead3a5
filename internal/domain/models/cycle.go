package models

import "time"

// CycleOutcome classifies one orchestrator tick.
type CycleOutcome string

const (
	OutcomeReconnectFailed CycleOutcome = "reconnect_failed"
	OutcomeFetchFailed     CycleOutcome = "fetch_failed"
	OutcomeNoBars          CycleOutcome = "no_bars"
	OutcomeNoSignal        CycleOutcome = "no_signal"
	OutcomeHold            CycleOutcome = "hold"
	OutcomeBelowThreshold  CycleOutcome = "below_threshold"
	OutcomeTradeFailed     CycleOutcome = "trade_failed"
	OutcomeTraded          CycleOutcome = "traded"
	OutcomeError           CycleOutcome = "error"
)

// CycleReport is what one tick decided and how it ended.
type CycleReport struct {
	Time       time.Time     `json:"time"`
	Outcome    CycleOutcome  `json:"outcome"`
	Bars       int           `json:"bars"`
	Signal     Signal        `json:"signal"`
	Accuracy   float64       `json:"accuracy"`
	ContractID string        `json:"contract_id,omitempty"`
	State      ContractState `json:"state,omitempty"`
	Profit     float64       `json:"profit"`
	Error      string        `json:"error,omitempty"`
}
