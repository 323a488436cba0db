// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"net/http"

	"github.com/ManuGH/seckill/internal/dispatch"
)

// GoodsAPI lists seckill offers.
type GoodsAPI struct {
	d Doer
}

func (a *GoodsAPI) List(ctx context.Context) ([]Goods, error) {
	var goods []Goods
	if err := call(ctx, a.d, dispatch.Request{Method: http.MethodGet, Path: "/goods/list"}, &goods); err != nil {
		return nil, wrap("goods list", err)
	}
	return goods, nil
}

func (a *GoodsAPI) Detail(ctx context.Context, seckillGoodsID int64) (*Goods, error) {
	var g Goods
	req := dispatch.Request{Method: http.MethodGet, Path: idPath("/goods/detail/", seckillGoodsID)}
	if err := call(ctx, a.d, req, &g); err != nil {
		return nil, wrap("goods detail", err)
	}
	return &g, nil
}

// CaptchaAPI issues seckill captcha challenges.
type CaptchaAPI struct {
	d Doer
}

// Seckill requests a fresh captcha for one offer. Each call invalidates the
// previous challenge server side.
func (a *CaptchaAPI) Seckill(ctx context.Context, seckillGoodsID int64) (*Captcha, error) {
	var c Captcha
	req := dispatch.Request{Method: http.MethodGet, Path: idPath("/captcha/seckill/", seckillGoodsID)}
	if err := call(ctx, a.d, req, &c); err != nil {
		return nil, wrap("captcha", err)
	}
	return &c, nil
}
