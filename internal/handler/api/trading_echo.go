package api

import (
	"context"
	"net/http"
	"time"

	"DerivBot/internal/domain/models"
	"DerivBot/internal/service/cache"
	xhttp "DerivBot/pkg/http"
	xlogger "DerivBot/pkg/logger"
	"DerivBot/pkg/util"

	"github.com/labstack/echo/v4"
)

type statusSource interface {
	LastReport() *models.CycleReport
	Connected() bool
}

type patternSource interface {
	Stats(ctx context.Context, minAccuracy float64) ([]models.PatternStats, error)
}

type tradeSource interface {
	List(ctx context.Context, f models.TradeFilter) ([]models.TradeRecord, error)
	Summary(ctx context.Context) (models.TradeSummary, error)
}

// TradingEchoHandler exposes the bot's state to operators. It is read-only.
type TradingEchoHandler struct {
	logger      *xlogger.Logger
	status      statusSource
	patterns    patternSource
	trades      tradeSource
	symbol      string
	minAccuracy float64

	views   *cache.TTLCache
	viewTTL time.Duration
}

func NewTradingEchoHandler(
	logger *xlogger.Logger,
	status statusSource,
	patterns patternSource,
	trades tradeSource,
	symbol string,
	minAccuracy float64,
) *TradingEchoHandler {
	return &TradingEchoHandler{
		logger:      logger,
		status:      status,
		patterns:    patterns,
		trades:      trades,
		symbol:      symbol,
		minAccuracy: minAccuracy,
	}
}

// WithViewCache caches the pattern and summary views for ttl. Both read whole documents.
func (h *TradingEchoHandler) WithViewCache(c *cache.TTLCache, ttl time.Duration) *TradingEchoHandler {
	if ttl > 0 {
		h.views = c
		h.viewTTL = ttl
	}
	return h
}

func (h *TradingEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/patterns", h.Patterns)
	g.GET("/trades", h.Trades)
	g.GET("/trades/summary", h.Summary)
}

// Health is 200 while the venue session is open and 503 otherwise.
func (h *TradingEchoHandler) Health(c echo.Context) error {
	if !h.status.Connected() {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableError("venue session is down"))
	}
	return xhttp.SuccessResponse(c, map[string]string{"venue": "connected"})
}

func (h *TradingEchoHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.StatusResponse{
		Connected:   h.status.Connected(),
		Symbol:      h.symbol,
		MinAccuracy: h.minAccuracy,
		LastCycle:   h.status.LastReport(),
	})
}

func (h *TradingEchoHandler) Patterns(c echo.Context) error {
	ctx := c.Request().Context()
	stats, err := cache.Remember(h.views, "patterns", h.viewTTL, func() ([]models.PatternStats, error) {
		return h.patterns.Stats(ctx, h.minAccuracy)
	})
	if err != nil {
		h.logger.Error("patterns usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("learning store unavailable").WithError(err))
	}
	return xhttp.ListResponse(c, stats, int64(len(stats)))
}

func (h *TradingEchoHandler) Trades(c echo.Context) error {
	req := &models.TradesRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	filter := models.TradeFilter{Limit: req.Limit}
	if req.From != "" {
		from, ok := util.ParseTime(req.From)
		if !ok {
			return xhttp.AppErrorResponse(c,
				xhttp.BadRequestError("from", "from must be RFC3339 or a unix timestamp").WithParam("value", req.From))
		}
		filter.From = from
	}

	recs, err := h.trades.List(c.Request().Context(), filter)
	if err != nil {
		h.logger.Error("trades usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("trade history unavailable").WithError(err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return xhttp.ListResponse(c, recs, int64(len(recs)))
}

func (h *TradingEchoHandler) Summary(c echo.Context) error {
	ctx := c.Request().Context()
	s, err := cache.Remember(h.views, "summary", h.viewTTL, func() (models.TradeSummary, error) {
		return h.trades.Summary(ctx)
	})
	if err != nil {
		h.logger.Error("summary usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("trade history unavailable").WithError(err))
	}
	return xhttp.DataResponse(c, http.StatusOK, s)
}
