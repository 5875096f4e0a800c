package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rkvolt/perpswap-engine/internal/risk"
	"go.uber.org/zap"
)

// TradeMode mirrors the exchange's td_mode enum (spec §6).
type TradeMode string

const (
	TradeModeIsolated TradeMode = "isolated"
	TradeModeCross    TradeMode = "cross"
	TradeModeCash     TradeMode = "cash"
)

// OrderType mirrors the exchange's ord_type enum (spec §6).
type OrderType string

const (
	OrderTypeMarket         OrderType = "market"
	OrderTypeLimit          OrderType = "limit"
	OrderTypePostOnly       OrderType = "post_only"
	OrderTypeFOK            OrderType = "fok"
	OrderTypeIOC            OrderType = "ioc"
	OrderTypeOptimalLimitIOC OrderType = "optimal_limit_ioc"
)

// TPOrderKind mirrors attach_algo_ords.tp_ord_kind.
type TPOrderKind string

const (
	TPOrderKindCondition TPOrderKind = "condition"
	TPOrderKindLimit     TPOrderKind = "limit"
)

// AttachAlgoOrder is one entry of attach_algo_ords: an attached stop-loss
// and/or take-profit leg riding on the entry order.
type AttachAlgoOrder struct {
	SLTriggerPx float64
	SLOrdPx     float64
	TPTriggerPx float64
	TPOrdPx     float64
	TPOrdKind   TPOrderKind
	Sz          float64
}

// OrderRequest is the order the core emits to the exchange adapter (spec §6).
type OrderRequest struct {
	InstID  string
	TdMode  TradeMode
	Side    risk.Side
	PosSide string // "long", "short", or "net"
	OrdType OrderType
	Sz      float64
	// Px is the order price. Loop.placeEntry sets it to the position's
	// entry price on market orders too; PaperPlacer fills against it and
	// the exchange adapter sends it whenever it is positive.
	Px float64

	// ClOrdID is a caller-assigned client order ID for the exchange's
	// clOrdId field. Loop.placeEntry generates a fresh one for every entry
	// it places; the ID is not persisted, and nothing resubmits a request
	// with a previously used ID.
	ClOrdID        string
	ReduceOnly     bool
	AttachAlgoOrds []AttachAlgoOrder
}

// CloseRequest is a close-position request (spec §6).
type CloseRequest struct {
	InstID    string
	PosSide   string
	MgnMode   TradeMode
	AutoCancel bool
}

// OrderPlacer is the order-placement boundary the execution loop hands
// signals off to. It is the external collaborator spec.md names but does
// not specify — implementations live outside the core (a real exchange
// adapter) or, for backtesting/dry runs, the paper placer below.
type OrderPlacer interface {
	PlaceEntry(ctx context.Context, req OrderRequest) error
	ClosePosition(ctx context.Context, req CloseRequest) error
}

// PaperPlacer simulates fills without calling a real exchange, following the
// teacher's PaperExecutor shape (fills list, slippage-bps simulation)
// adapted from int64-paise fields to float64 price/size and from
// strategy.Signal to OrderRequest/CloseRequest.
type PaperPlacer struct {
	mu          sync.Mutex
	fills       []PaperFill
	orderSeq    int64
	slippageBps float64
	log         *zap.Logger
}

// PaperFill is a simulated order fill.
type PaperFill struct {
	OrderID  string
	Req      OrderRequest
	FillPx   float64
	FilledAt time.Time
	Slippage float64
}

// NewPaperPlacer builds a PaperPlacer with slippageBps basis points of
// simulated slippage applied against the limit/market reference price.
func NewPaperPlacer(slippageBps float64, log *zap.Logger) *PaperPlacer {
	return &PaperPlacer{slippageBps: slippageBps, log: log}
}

// Fills returns a snapshot of every fill recorded so far.
func (p *PaperPlacer) Fills() []PaperFill {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]PaperFill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

func (p *PaperPlacer) PlaceEntry(ctx context.Context, req OrderRequest) error {
	p.mu.Lock()
	p.orderSeq++
	orderID := fmt.Sprintf("PAPER-%d", p.orderSeq)

	fillPx := req.Px
	slippage := 0.0
	if p.slippageBps > 0 {
		slippage = fillPx * p.slippageBps / 10_000
		if req.Side == risk.SideLong {
			fillPx += slippage
		} else {
			fillPx -= slippage
		}
	}
	fill := PaperFill{OrderID: orderID, Req: req, FillPx: fillPx, FilledAt: time.Now(), Slippage: slippage}
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	if p.log != nil {
		p.log.Info("paper fill",
			zap.String("order_id", orderID), zap.String("inst_id", req.InstID),
			zap.Int("side", int(req.Side)), zap.Float64("sz", req.Sz),
			zap.Float64("px", fillPx), zap.Float64("slippage", slippage))
	}
	return nil
}

func (p *PaperPlacer) ClosePosition(ctx context.Context, req CloseRequest) error {
	if p.log != nil {
		p.log.Info("paper close", zap.String("inst_id", req.InstID), zap.String("pos_side", req.PosSide))
	}
	return nil
}
