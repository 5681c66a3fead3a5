package deriv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"DerivBot/internal/domain/models"
	drepo "DerivBot/internal/domain/repository"
	applogger "DerivBot/pkg/logger"
)

// ClientConfig holds venue credentials and the single instrument traded.
type ClientConfig struct {
	Endpoint       string
	AppID          string
	APIToken       string
	ReconnectDelay time.Duration
	// RequestTimeout bounds each request/response exchange. Zero means no bound.
	RequestTimeout time.Duration

	Symbol       string
	Stake        float64
	Currency     string
	Duration     int
	DurationUnit string
	Granularity  int
	BarCount     int
}

// DialFunc opens a transport to the given URL.
type DialFunc func(ctx context.Context, endpoint string) (Transport, error)

// Client speaks the venue API over one correlated session.
type Client struct {
	cfg     ClientConfig
	logger  *applogger.Logger
	metrics drepo.Metrics
	dial    DialFunc
	ids     *RequestIDs
	now     func() time.Time

	mu   sync.Mutex
	corr *Correlator
}

var (
	_ drepo.Venue      = (*Client)(nil)
	_ drepo.MarketData = (*Client)(nil)
	_ drepo.Broker     = (*Client)(nil)
)

// ClientOption configures Client.
type ClientOption func(*Client)

// WithDialer replaces the websocket dialer.
func WithDialer(d DialFunc) ClientOption {
	return func(c *Client) {
		c.dial = d
	}
}

// WithMetrics records request latency and venue errors.
func WithMetrics(m drepo.Metrics) ClientOption {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithSessionOptions configures the default websocket dialer.
func WithSessionOptions(opts ...SessionOption) ClientOption {
	return func(c *Client) {
		c.dial = func(ctx context.Context, endpoint string) (Transport, error) {
			return Dial(ctx, endpoint, opts...)
		}
	}
}

// NewClient creates a venue client. Connect must be called before any request.
func NewClient(cfg ClientConfig, logger *applogger.Logger, opts ...ClientOption) *Client {
	if logger == nil {
		logger = applogger.NewNop()
	}
	c := &Client{
		cfg:    cfg,
		logger: logger,
		ids:    NewRequestIDs(),
		now:    time.Now,
	}
	c.dial = func(ctx context.Context, endpoint string) (Transport, error) {
		return Dial(ctx, endpoint, WithSessionLogger(logger))
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL is the websocket endpoint including the app id.
func (c *Client) URL() string {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return c.cfg.Endpoint
	}
	q := u.Query()
	q.Set("app_id", c.cfg.AppID)
	u.RawQuery = q.Encode()
	return u.String()
}

// Connect dials the venue and authorizes. Authorization failure closes the session.
func (c *Client) Connect(ctx context.Context) error {
	t, err := c.dial(ctx, c.URL())
	if err != nil {
		return err
	}
	corr := NewCorrelator(t, c.ids)
	corr.onSkip = func(f *Frame) {
		c.logger.Debug("deriv frame skipped", applogger.String("msg_type", f.MsgType), applogger.Int64("req_id", f.ReqID))
	}

	if err := c.authorize(ctx, corr); err != nil {
		_ = t.Close()
		return err
	}

	c.mu.Lock()
	old := c.corr
	c.corr = corr
	c.mu.Unlock()
	if old != nil {
		_ = old.transport.Close()
	}
	return nil
}

// Reconnect drops the current session, waits the reconnect delay and connects again.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	if c.cfg.ReconnectDelay > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
	return c.Connect(ctx)
}

// IsConnected reports whether the session is open.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.corr != nil && c.corr.transport.IsOpen()
}

// Close closes the current session if any.
func (c *Client) Close() error {
	c.mu.Lock()
	corr := c.corr
	c.corr = nil
	c.mu.Unlock()
	if corr == nil {
		return nil
	}
	return corr.transport.Close()
}

func (c *Client) correlator() (*Correlator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.corr == nil {
		return nil, &TransportError{Op: "request", Err: ErrNotConnected}
	}
	return c.corr, nil
}

// withRequestTimeout bounds one exchange. An expired read closes the session,
// so the next tick reconnects instead of waiting on a reply that never comes.
func (c *Client) withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}

func (c *Client) request(ctx context.Context, op string, build func(int64) any, msgTypes ...string) (*Frame, error) {
	corr, err := c.correlator()
	if err != nil {
		return nil, err
	}
	ctx, cancel := c.withRequestTimeout(ctx)
	defer cancel()
	start := time.Now()
	f, err := corr.Request(ctx, build, msgTypes...)
	if c.metrics != nil {
		c.metrics.RecordLatency("deriv_"+op, time.Since(start).Seconds())
		if err != nil {
			kind := "deriv_transport"
			if IsVenueError(err) {
				kind = "deriv_venue"
			}
			c.metrics.RecordError(kind)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("deriv %s: %w", op, err)
	}
	return f, nil
}

func (c *Client) authorize(ctx context.Context, corr *Correlator) error {
	ctx, cancel := c.withRequestTimeout(ctx)
	defer cancel()
	f, err := corr.Request(ctx, func(id int64) any {
		return authorizeRequest{Authorize: c.cfg.APIToken, ReqID: id}
	}, "authorize")
	if err != nil {
		return fmt.Errorf("deriv authorize: %w", err)
	}
	var resp authorizeResponse
	if err := f.Decode(&resp); err != nil {
		return err
	}
	if resp.Authorize == nil {
		return fmt.Errorf("deriv authorize: empty response")
	}
	c.logger.Info("deriv authorized",
		applogger.String("loginid", resp.Authorize.LoginID),
		applogger.String("currency", resp.Authorize.Currency),
		applogger.Float64("balance", resp.Authorize.Balance),
	)
	return nil
}

// FetchBars requests the most recent candles of the configured symbol.
func (c *Client) FetchBars(ctx context.Context) ([]models.Bar, error) {
	count := c.cfg.BarCount
	start := c.now().Unix() - int64(c.cfg.Granularity*count)
	f, err := c.request(ctx, "candles", func(id int64) any {
		return ticksHistoryRequest{
			TicksHistory:    c.cfg.Symbol,
			AdjustStartTime: 1,
			Count:           count,
			Granularity:     c.cfg.Granularity,
			Style:           "candles",
			Start:           start,
			End:             "latest",
			ReqID:           id,
		}
	}, "candles", "history")
	if err != nil {
		return nil, err
	}

	var resp candlesResponse
	if err := f.Decode(&resp); err != nil {
		return nil, err
	}
	bars := make([]models.Bar, 0, len(resp.Candles))
	dropped := 0
	for _, raw := range resp.Candles {
		b, ok := toBar(raw.Epoch, raw.Open, raw.High, raw.Low, raw.Close)
		if !ok {
			dropped++
			continue
		}
		bars = append(bars, b)
	}
	if dropped > 0 {
		c.logger.Warn("deriv candles dropped", applogger.Int("dropped", dropped), applogger.Int("kept", len(bars)))
	}
	if len(bars) > count && count > 0 {
		bars = bars[len(bars)-count:]
	}
	return bars, nil
}

func toBar(epoch int64, o, h, l, cl json.Number) (models.Bar, bool) {
	var vals [4]float64
	for i, n := range []json.Number{o, h, l, cl} {
		v, err := n.Float64()
		if err != nil {
			return models.Bar{}, false
		}
		vals[i] = v
	}
	b := models.Bar{Epoch: epoch, Open: vals[0], High: vals[1], Low: vals[2], Close: vals[3]}
	return b, b.Valid()
}

// Propose asks for a price on a CALL (buy) or PUT (sell) contract.
func (c *Client) Propose(ctx context.Context, decision models.Decision) (models.Proposal, error) {
	contractType, ok := decision.ContractType()
	if !ok {
		return models.Proposal{}, fmt.Errorf("deriv proposal: decision %q has no contract type", decision)
	}
	f, err := c.request(ctx, "proposal", func(id int64) any {
		return proposalRequest{
			Proposal:     1,
			Amount:       c.cfg.Stake,
			Basis:        "stake",
			ContractType: contractType,
			Currency:     c.cfg.Currency,
			Duration:     c.cfg.Duration,
			DurationUnit: c.cfg.DurationUnit,
			Symbol:       c.cfg.Symbol,
			ReqID:        id,
		}
	}, "proposal")
	if err != nil {
		return models.Proposal{}, err
	}

	var resp proposalResponse
	if err := f.Decode(&resp); err != nil {
		return models.Proposal{}, err
	}
	if resp.Proposal == nil || resp.Proposal.ID == "" {
		return models.Proposal{}, fmt.Errorf("deriv proposal %s: %w", contractType, models.ErrProposalRejected)
	}
	return models.Proposal{
		ID:       resp.Proposal.ID,
		AskPrice: resp.Proposal.AskPrice,
		Payout:   resp.Proposal.Payout,
	}, nil
}

// Buy accepts a proposal at its quoted price, or at the stake when none was quoted.
func (c *Client) Buy(ctx context.Context, proposal models.Proposal) (models.Contract, error) {
	price := proposal.AskPrice
	if price <= 0 {
		price = c.cfg.Stake
	}
	f, err := c.request(ctx, "buy", func(id int64) any {
		return buyRequest{Buy: proposal.ID, Price: price, ReqID: id}
	}, "buy")
	if err != nil {
		return models.Contract{}, err
	}

	var resp buyResponse
	if err := f.Decode(&resp); err != nil {
		return models.Contract{}, err
	}
	if resp.Buy == nil || resp.Buy.ContractID == "" {
		return models.Contract{}, fmt.Errorf("deriv buy %s: %w", proposal.ID, models.ErrBuyRejected)
	}
	return models.Contract{
		ID:            resp.Buy.ContractID.String(),
		TransactionID: resp.Buy.TransactionID.String(),
		BuyPrice:      resp.Buy.BuyPrice,
		State:         models.StateOpen,
	}, nil
}

// ContractStatus fetches one open-contract snapshot.
func (c *Client) ContractStatus(ctx context.Context, contractID string) (models.ContractStatus, error) {
	f, err := c.request(ctx, "open_contract", func(id int64) any {
		return openContractRequest{ProposalOpenContract: 1, ContractID: json.Number(contractID), ReqID: id}
	}, "proposal_open_contract")
	if err != nil {
		return models.ContractStatus{}, err
	}

	var resp openContractResponse
	if err := f.Decode(&resp); err != nil {
		return models.ContractStatus{}, err
	}
	st := models.ContractStatus{ContractID: contractID}
	if p := resp.ProposalOpenContract; p != nil {
		st.IsSold = p.IsSold != 0
		st.IsExpired = p.IsExpired != 0
		st.Profit = p.Profit
		st.Status = p.Status
	}
	return st, nil
}
