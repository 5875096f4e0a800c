package exchange

import (
	"context"
	"fmt"

	"github.com/rkvolt/perpswap-engine/internal/execution"
	"github.com/rkvolt/perpswap-engine/internal/risk"
)

// wireAttachAlgoOrd is the exchange's attach_algo_ords entry shape (spec §6).
type wireAttachAlgoOrd struct {
	SLTriggerPx string `json:"slTriggerPx,omitempty"`
	SLOrdPx     string `json:"slOrdPx,omitempty"`
	TPTriggerPx string `json:"tpTriggerPx,omitempty"`
	TPOrdPx     string `json:"tpOrdPx,omitempty"`
	TPOrdKind   string `json:"tpOrdKind,omitempty"`
	Sz          string `json:"sz,omitempty"`
}

type wireOrderRequest struct {
	InstID         string              `json:"instId"`
	TdMode         string              `json:"tdMode"`
	Side           string              `json:"side"`
	PosSide        string              `json:"posSide"`
	OrdType        string              `json:"ordType"`
	Sz             string              `json:"sz"`
	Px             string              `json:"px,omitempty"`
	ClOrdID        string              `json:"clOrdId,omitempty"`
	ReduceOnly     bool                `json:"reduceOnly,omitempty"`
	AttachAlgoOrds []wireAttachAlgoOrd `json:"attachAlgoOrds,omitempty"`
}

type wireCloseRequest struct {
	InstID     string `json:"instId"`
	PosSide    string `json:"posSide"`
	MgnMode    string `json:"mgnMode"`
	AutoCancel bool   `json:"autoCxl,omitempty"`
}

var _ execution.OrderPlacer = (*Client)(nil)

func f2s(v float64) string {
	return fmt.Sprintf("%g", v)
}

func sideWire(s risk.Side) string {
	if s == risk.SideLong {
		return "buy"
	}
	return "sell"
}

// PlaceEntry submits an order via POST /api/v5/trade/order, satisfying
// internal/execution.OrderPlacer.
func (c *Client) PlaceEntry(ctx context.Context, req execution.OrderRequest) error {
	wire := wireOrderRequest{
		InstID:     req.InstID,
		TdMode:     string(req.TdMode),
		Side:       sideWire(req.Side),
		PosSide:    req.PosSide,
		OrdType:    string(req.OrdType),
		Sz:         f2s(req.Sz),
		ClOrdID:    req.ClOrdID,
		ReduceOnly: req.ReduceOnly,
	}
	if req.Px > 0 {
		wire.Px = f2s(req.Px)
	}
	for _, a := range req.AttachAlgoOrds {
		w := wireAttachAlgoOrd{TPOrdKind: string(a.TPOrdKind)}
		if a.SLTriggerPx > 0 {
			w.SLTriggerPx = f2s(a.SLTriggerPx)
			w.SLOrdPx = f2s(a.SLOrdPx)
		}
		if a.TPTriggerPx > 0 {
			w.TPTriggerPx = f2s(a.TPTriggerPx)
			w.TPOrdPx = f2s(a.TPOrdPx)
		}
		if a.Sz > 0 {
			w.Sz = f2s(a.Sz)
		}
		wire.AttachAlgoOrds = append(wire.AttachAlgoOrds, w)
	}

	return c.doJSON(ctx, "POST", "/api/v5/trade/order", []wireOrderRequest{wire}, nil)
}

// ClosePosition submits POST /api/v5/trade/close-position.
func (c *Client) ClosePosition(ctx context.Context, req execution.CloseRequest) error {
	wire := wireCloseRequest{
		InstID:     req.InstID,
		PosSide:    req.PosSide,
		MgnMode:    string(req.MgnMode),
		AutoCancel: req.AutoCancel,
	}
	return c.doJSON(ctx, "POST", "/api/v5/trade/close-position", wire, nil)
}

// maxSizeResponse is GET /api/v5/account/max-size's data row.
type maxSizeResponse struct {
	InstID  string `json:"instId"`
	MaxBuy  string `json:"maxBuy"`
	MaxSell string `json:"maxSell"`
}

// MaxTradableSize queries the account's max order size for instID under
// tdMode, returning (maxBuy, maxSell) as parsed floats.
func (c *Client) MaxTradableSize(ctx context.Context, instID string, tdMode execution.TradeMode) (maxBuy, maxSell float64, err error) {
	var out []maxSizeResponse
	path := fmt.Sprintf("/api/v5/account/max-size?instId=%s&tdMode=%s", instID, string(tdMode))
	if err := c.doJSON(ctx, "GET", path, nil, &out); err != nil {
		return 0, 0, err
	}
	if len(out) == 0 {
		return 0, 0, fmt.Errorf("exchange: empty max-size response for %s", instID)
	}
	if _, err := fmt.Sscanf(out[0].MaxBuy, "%g", &maxBuy); err != nil {
		return 0, 0, fmt.Errorf("exchange: parse maxBuy: %w", err)
	}
	if _, err := fmt.Sscanf(out[0].MaxSell, "%g", &maxSell); err != nil {
		return 0, 0, fmt.Errorf("exchange: parse maxSell: %w", err)
	}
	return maxBuy, maxSell, nil
}
