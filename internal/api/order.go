// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/seckill/internal/dispatch"
)

// OrderAPI covers the caller's own orders.
type OrderAPI struct {
	d Doer
}

// List returns the caller's orders, optionally filtered by status.
func (a *OrderAPI) List(ctx context.Context, status *int) ([]Order, error) {
	var orders []Order
	req := dispatch.Request{Method: http.MethodGet, Path: "/order/list", Query: statusQuery(status)}
	if err := call(ctx, a.d, req, &orders); err != nil {
		return nil, wrap("order list", err)
	}
	return orders, nil
}

func (a *OrderAPI) Detail(ctx context.Context, orderID int64) (*Order, error) {
	var o Order
	req := dispatch.Request{Method: http.MethodGet, Path: idPath("/order/detail/", orderID)}
	if err := call(ctx, a.d, req, &o); err != nil {
		return nil, wrap("order detail", err)
	}
	return &o, nil
}

func (a *OrderAPI) Pay(ctx context.Context, orderID int64) error {
	req := dispatch.Request{Method: http.MethodPost, Path: idPath("/order/pay/", orderID)}
	return wrap("order pay", call(ctx, a.d, req, nil))
}

func (a *OrderAPI) Cancel(ctx context.Context, orderID int64) error {
	req := dispatch.Request{Method: http.MethodPost, Path: idPath("/order/cancel/", orderID)}
	return wrap("order cancel", call(ctx, a.d, req, nil))
}

func (a *OrderAPI) Stats(ctx context.Context) (*OrderStats, error) {
	var s OrderStats
	if err := call(ctx, a.d, dispatch.Request{Method: http.MethodGet, Path: "/order/stats"}, &s); err != nil {
		return nil, wrap("order stats", err)
	}
	return &s, nil
}
