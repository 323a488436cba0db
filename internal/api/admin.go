// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ManuGH/seckill/internal/audit"
	"github.com/ManuGH/seckill/internal/dispatch"
)

// AdminAPI covers the admin console endpoints. The server rejects non-admin
// callers; the client does not pre-check.
type AdminAPI struct {
	d     Doer
	store SessionWriter
	audit *audit.Logger
}

// mutate sends a write request and records it on the audit log.
func (a *AdminAPI) mutate(ctx context.Context, op string, req dispatch.Request) error {
	err := call(ctx, a.d, req, nil)
	a.audit.AdminMutation(ctx, a.store.Snapshot().Username, op, req.Path, err)
	return wrap("admin "+op, err)
}

func (a *AdminAPI) Dashboard(ctx context.Context) (*Dashboard, error) {
	var dash Dashboard
	if err := call(ctx, a.d, dispatch.Request{Method: http.MethodGet, Path: "/admin/dashboard"}, &dash); err != nil {
		return nil, wrap("admin dashboard", err)
	}
	return &dash, nil
}

// Orders returns orders of every user, optionally filtered by status.
func (a *AdminAPI) Orders(ctx context.Context, status *int) ([]Order, error) {
	var orders []Order
	req := dispatch.Request{Method: http.MethodGet, Path: "/admin/orders", Query: statusQuery(status)}
	if err := call(ctx, a.d, req, &orders); err != nil {
		return nil, wrap("admin orders", err)
	}
	return orders, nil
}

func (a *AdminAPI) AddGoods(ctx context.Context, in GoodsInput) error {
	return a.mutate(ctx, "add goods", dispatch.Request{Method: http.MethodPost, Path: "/admin/goods", Body: in})
}

func (a *AdminAPI) UpdateGoods(ctx context.Context, seckillGoodsID int64, in GoodsInput) error {
	req := dispatch.Request{Method: http.MethodPut, Path: idPath("/admin/goods/", seckillGoodsID), Body: in}
	return a.mutate(ctx, "update goods", req)
}

func (a *AdminAPI) DeleteGoods(ctx context.Context, seckillGoodsID int64) error {
	req := dispatch.Request{Method: http.MethodDelete, Path: idPath("/admin/goods/", seckillGoodsID)}
	return a.mutate(ctx, "delete goods", req)
}

// ResetStock sets the seckill stock of an offer in both database and cache.
func (a *AdminAPI) ResetStock(ctx context.Context, seckillGoodsID int64, stock int) error {
	req := dispatch.Request{
		Method: http.MethodPost,
		Path:   idPath("/admin/reset-stock/", seckillGoodsID),
		Query:  url.Values{"stock": {strconv.Itoa(stock)}},
	}
	return a.mutate(ctx, "reset stock", req)
}
