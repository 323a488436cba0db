// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package apitest provides an in-process fake of the remote seckill API for
// tests. It answers with the same envelopes, business codes and rate limits as
// the real backend.
package apitest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
)

// Business codes used by the fake.
const (
	CodeSuccess        = 200
	CodeUnauthorized   = 401
	CodeForbidden      = 403
	CodeUserNotFound   = 1001
	CodePasswordWrong  = 1002
	CodeUserExists     = 1003
	CodeLoginExpired   = 1005
	CodeGoodsNotFound  = 2001
	CodeSeckillRepeat  = 3003
	CodeSoldOut        = 3004
	CodeRateLimited    = 3005
	CodePathInvalid    = 3006
	CodeCaptchaWrong   = 3007
	CodeQueuing        = 3008
	CodeOrderNotFound  = 4001
	CodeOrderPaid      = 4002
	CodeOrderCancelled = 4003
)

// Envelope mirrors the backend response body.
type Envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// User is an account known to the fake.
type User struct {
	ID       int64
	Username string
	Nickname string
	Phone    string
	Password string
	Role     int
}

// Goods is a seckill offer held by the fake.
type Goods struct {
	GoodsID        int64   `json:"goodsId"`
	SeckillGoodsID int64   `json:"seckillGoodsId"`
	GoodsName      string  `json:"goodsName"`
	GoodsTitle     string  `json:"goodsTitle"`
	GoodsImg       string  `json:"goodsImg"`
	GoodsDetail    string  `json:"goodsDetail"`
	GoodsPrice     float64 `json:"goodsPrice"`
	SeckillPrice   float64 `json:"seckillPrice"`
	StockCount     int     `json:"stockCount"`
	StartDate      string  `json:"startDate"`
	EndDate        string  `json:"endDate"`
	SeckillStatus  int     `json:"seckillStatus"`
	RemainSeconds  int64   `json:"remainSeconds"`
}

// Order is an order held by the fake.
type Order struct {
	ID             int64   `json:"id"`
	UserID         int64   `json:"userId"`
	GoodsID        int64   `json:"goodsId"`
	SeckillGoodsID int64   `json:"seckillGoodsId"`
	GoodsName      string  `json:"goodsName"`
	GoodsCount     int     `json:"goodsCount"`
	GoodsPrice     float64 `json:"goodsPrice"`
	Status         int     `json:"status"`
	PayTime        *string `json:"payTime"`
	CreateTime     string  `json:"createTime"`
	UpdateTime     string  `json:"updateTime"`
}

// Request is a request observed by the fake.
type Request struct {
	Method string
	Path   string
	Query  string
	Auth   string
}

type attemptKey struct {
	userID  int64
	goodsID int64
}

type attempt struct {
	// pendingPolls answers CodeQueuing this many more times before resolving.
	pendingPolls int
	// result is the order id, or -1 when sold out.
	result int64
}

// Server is the fake backend.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	nextID   int64
	users    map[string]*User // by phone
	tokens   map[string]int64 // token -> user id
	expired  map[string]bool
	goods    map[int64]*Goods
	orders   map[int64]*Order
	captchas map[attemptKey]int
	paths    map[attemptKey]string
	attempts map[attemptKey]*attempt
	requests []Request

	queueDelay     int
	authStatus     int
	forcedFailures map[string]*failure
}

type failure struct {
	remaining int
	status    int
}

// Options tunes the fake. Zero values keep backend defaults.
type Options struct {
	// PathLimit and ExecuteLimit are requests per RateWindow per user and path.
	PathLimit    int
	ExecuteLimit int
	RateWindow   time.Duration
}

// NewServer starts a fake seeded with one user, one admin and two offers.
func NewServer() *Server {
	return NewServerWithOptions(Options{})
}

// NewServerWithOptions starts a fake with explicit rate limits.
func NewServerWithOptions(opts Options) *Server {
	if opts.PathLimit <= 0 {
		opts.PathLimit = 5
	}
	if opts.ExecuteLimit <= 0 {
		opts.ExecuteLimit = 3
	}
	if opts.RateWindow <= 0 {
		opts.RateWindow = 5 * time.Second
	}

	s := &Server{
		nextID:         100,
		users:          map[string]*User{},
		tokens:         map[string]int64{},
		expired:        map[string]bool{},
		goods:          map[int64]*Goods{},
		orders:         map[int64]*Order{},
		captchas:       map[attemptKey]int{},
		paths:          map[attemptKey]string{},
		attempts:       map[attemptKey]*attempt{},
		authStatus:     http.StatusOK,
		forcedFailures: map[string]*failure{},
	}
	s.seed()

	r := chi.NewRouter()
	r.Use(s.record)
	r.Route("/api", func(r chi.Router) {
		r.Post("/user/login", s.handleLogin)
		r.Post("/user/register", s.handleRegister)
		r.Get("/goods/list", s.handleGoodsList)
		r.Get("/goods/detail/{id}", s.handleGoodsDetail)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Post("/user/logout", s.handleLogout)
			r.Get("/user/info", s.handleInfo)
			r.Get("/captcha/seckill/{id}", s.handleCaptcha)
			r.With(s.rateLimit(opts.PathLimit, opts.RateWindow)).Get("/seckill/path/{id}", s.handlePath)
			r.With(s.rateLimit(opts.ExecuteLimit, opts.RateWindow)).Post("/seckill/{path}/do/{id}", s.handleExecute)
			r.Get("/seckill/result/{id}", s.handleResult)
			r.Get("/order/list", s.handleOrderList)
			r.Get("/order/detail/{id}", s.handleOrderDetail)
			r.Post("/order/pay/{id}", s.handleOrderPay)
			r.Post("/order/cancel/{id}", s.handleOrderCancel)
			r.Get("/order/stats", s.handleOrderStats)

			r.Route("/admin", func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/dashboard", s.handleDashboard)
				r.Get("/orders", s.handleAdminOrders)
				r.Post("/goods", s.handleAddGoods)
				r.Put("/goods/{id}", s.handleUpdateGoods)
				r.Delete("/goods/{id}", s.handleDeleteGoods)
				r.Post("/reset-stock/{id}", s.handleResetStock)
			})
		})
	})

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL is the API root to hand to the dispatcher.
func (s *Server) BaseURL() string {
	return s.URL + "/api"
}

func (s *Server) seed() {
	s.users["13800000001"] = &User{ID: 1, Username: "alice", Nickname: "Alice", Phone: "13800000001", Password: "secret", Role: 0}
	s.users["13800000002"] = &User{ID: 2, Username: "root", Nickname: "Admin", Phone: "13800000002", Password: "secret", Role: 1}

	now := time.Now()
	s.goods[1] = &Goods{
		GoodsID: 11, SeckillGoodsID: 1, GoodsName: "Phone", GoodsTitle: "Flagship phone",
		GoodsPrice: 4999, SeckillPrice: 1, StockCount: 10,
		StartDate: stamp(now.Add(-time.Hour)), EndDate: stamp(now.Add(time.Hour)),
		SeckillStatus: 1,
	}
	s.goods[2] = &Goods{
		GoodsID: 12, SeckillGoodsID: 2, GoodsName: "Laptop", GoodsTitle: "Thin laptop",
		GoodsPrice: 8999, SeckillPrice: 99, StockCount: 0,
		StartDate: stamp(now.Add(-time.Hour)), EndDate: stamp(now.Add(time.Hour)),
		SeckillStatus: 1,
	}
}

// SetQueueDelay makes every new purchase answer CodeQueuing for n polls.
func (s *Server) SetQueueDelay(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queueDelay = n
}

// SetAuthFailureStatus sets the HTTP status used for authentication failures.
// The default is 200 with the code in the envelope; the production backend
// answers 401.
func (s *Server) SetAuthFailureStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authStatus = status
}

// ExpireToken makes every later request with token fail with CodeLoginExpired.
func (s *Server) ExpireToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired[token] = true
}

// FailNext makes the next n requests to path (e.g. "/api/goods/list") answer
// with the given HTTP status.
func (s *Server) FailNext(path string, n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedFailures[path] = &failure{remaining: n, status: status}
}

// SetStock overrides the stock of a seckill offer.
func (s *Server) SetStock(seckillGoodsID int64, stock int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.goods[seckillGoodsID]; ok {
		g.StockCount = stock
	}
}

// Stock returns the remaining stock of a seckill offer.
func (s *Server) Stock(seckillGoodsID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.goods[seckillGoodsID]; ok {
		return g.StockCount
	}
	return 0
}

// CaptchaAnswer returns the pending captcha answer of a user for an offer.
func (s *Server) CaptchaAnswer(userID, seckillGoodsID int64) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.captchas[attemptKey{userID, seckillGoodsID}]
	return v, ok
}

// Requests returns every request observed so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and path prefix.
func (s *Server) Count(method, pathPrefix string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && strings.HasPrefix(r.Path, pathPrefix) {
			n++
		}
	}
	return n
}

// Orders returns a snapshot of every order.
func (s *Server) Orders() []Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Auth:   r.Header.Get("Authorization"),
		})
		status := 0
		if f, ok := s.forcedFailures[r.URL.Path]; ok && f.remaining > 0 {
			f.remaining--
			status = f.status
		}
		s.mu.Unlock()

		if status != 0 {
			w.WriteHeader(status)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByEndpoint, func(r *http.Request) (string, error) {
			return r.Header.Get("Authorization"), nil
		}),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusOK, CodeRateLimited, "too many requests, please try again later")
		}),
	)
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func writeOK(w http.ResponseWriter, message string, data any) {
	if message == "" {
		message = "success"
	}
	writeJSON(w, http.StatusOK, Envelope{Code: CodeSuccess, Message: message, Data: data})
}

func writeError(w http.ResponseWriter, status, code int, message string) {
	writeJSON(w, status, Envelope{Code: code, Message: message})
}

func stamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05")
}

func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// captchaImage renders a small PNG data URL. The arithmetic is kept server
// side; tests read it with CaptchaAnswer.
func captchaImage(seed int) string {
	img := image.NewGray(image.Rect(0, 0, 16, 8))
	for x := 0; x < 16; x++ {
		img.SetGray(x, seed%8, color.Gray{Y: 255})
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}
