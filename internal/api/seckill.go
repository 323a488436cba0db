// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ManuGH/seckill/internal/dispatch"
)

// ErrEmptyPath is returned when the server answers the path request without a path.
var ErrEmptyPath = errors.New("api: empty seckill path")

// SeckillAPI covers the three purchase calls. Errors are *dispatch.Error values
// so callers can branch on the outcome kind and business code.
type SeckillAPI struct {
	d Doer
}

// Path exchanges a captcha answer for the opaque single-use execution path.
func (a *SeckillAPI) Path(ctx context.Context, seckillGoodsID int64, answer int) (string, error) {
	var res struct {
		Path string `json:"path"`
	}
	req := dispatch.Request{
		Method: http.MethodGet,
		Path:   idPath("/seckill/path/", seckillGoodsID),
		Query:  url.Values{"captcha": {strconv.Itoa(answer)}},
	}
	if err := call(ctx, a.d, req, &res); err != nil {
		return "", wrap("seckill path", err)
	}
	if res.Path == "" {
		return "", ErrEmptyPath
	}
	return res.Path, nil
}

// Execute submits the purchase. The server queues it; the outcome is polled
// with Result.
func (a *SeckillAPI) Execute(ctx context.Context, path string, seckillGoodsID int64) error {
	req := dispatch.Request{
		Method: http.MethodPost,
		Path:   "/seckill/" + url.PathEscape(path) + "/do/" + strconv.FormatInt(seckillGoodsID, 10),
	}
	return wrap("seckill execute", call(ctx, a.d, req, nil))
}

// Result returns the order id of a successful purchase. While the purchase is
// still queued the error carries dispatch.CodeQueuing; a sold-out offer yields
// dispatch.CodeSoldOut.
func (a *SeckillAPI) Result(ctx context.Context, seckillGoodsID int64) (int64, error) {
	var orderID int64
	req := dispatch.Request{Method: http.MethodGet, Path: idPath("/seckill/result/", seckillGoodsID)}
	if err := call(ctx, a.d, req, &orderID); err != nil {
		return 0, wrap("seckill result", err)
	}
	return orderID, nil
}
