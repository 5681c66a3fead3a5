package deriv

import "encoding/json"

// Outbound requests, shaped after the venue API v3.

type authorizeRequest struct {
	Authorize string `json:"authorize"`
	ReqID     int64  `json:"req_id"`
}

type ticksHistoryRequest struct {
	TicksHistory    string `json:"ticks_history"`
	AdjustStartTime int    `json:"adjust_start_time"`
	Count           int    `json:"count"`
	Granularity     int    `json:"granularity"`
	Style           string `json:"style"`
	Start           int64  `json:"start"`
	End             string `json:"end"`
	ReqID           int64  `json:"req_id"`
}

type proposalRequest struct {
	Proposal     int     `json:"proposal"`
	Amount       float64 `json:"amount"`
	Basis        string  `json:"basis"`
	ContractType string  `json:"contract_type"`
	Currency     string  `json:"currency"`
	Duration     int     `json:"duration"`
	DurationUnit string  `json:"duration_unit"`
	Symbol       string  `json:"symbol"`
	ReqID        int64   `json:"req_id"`
}

type buyRequest struct {
	Buy   string  `json:"buy"`
	Price float64 `json:"price"`
	ReqID int64   `json:"req_id"`
}

type openContractRequest struct {
	ProposalOpenContract int         `json:"proposal_open_contract"`
	ContractID           json.Number `json:"contract_id"`
	ReqID                int64       `json:"req_id"`
}

// Inbound payloads. Pointer fields distinguish a missing payload from an empty one.

type authorizeResponse struct {
	Authorize *struct {
		LoginID  string  `json:"loginid"`
		Currency string  `json:"currency"`
		Balance  float64 `json:"balance"`
	} `json:"authorize"`
}

type candlesResponse struct {
	Candles []struct {
		Epoch int64       `json:"epoch"`
		Open  json.Number `json:"open"`
		High  json.Number `json:"high"`
		Low   json.Number `json:"low"`
		Close json.Number `json:"close"`
	} `json:"candles"`
}

type proposalResponse struct {
	Proposal *struct {
		ID       string  `json:"id"`
		AskPrice float64 `json:"ask_price"`
		Payout   float64 `json:"payout"`
	} `json:"proposal"`
}

type buyResponse struct {
	Buy *struct {
		ContractID    json.Number `json:"contract_id"`
		TransactionID json.Number `json:"transaction_id"`
		BuyPrice      float64     `json:"buy_price"`
	} `json:"buy"`
}

type openContractResponse struct {
	ProposalOpenContract *struct {
		ContractID json.Number `json:"contract_id"`
		IsSold     int         `json:"is_sold"`
		IsExpired  int         `json:"is_expired"`
		Profit     float64     `json:"profit"`
		Status     string      `json:"status"`
	} `json:"proposal_open_contract"`
}
