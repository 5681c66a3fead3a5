package models

// Requests for the operator HTTP endpoints.

type TradesRequest struct {
	Limit int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
	From  string `query:"from" json:"from"`
}

type StatusResponse struct {
	Connected   bool         `json:"connected"`
	Symbol      string       `json:"symbol"`
	MinAccuracy float64      `json:"min_accuracy"`
	LastCycle   *CycleReport `json:"last_cycle,omitempty"`
}
