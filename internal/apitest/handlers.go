// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package apitest

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type ctxKey struct{}

func currentUser(r *http.Request) *User {
	u, _ := r.Context().Value(ctxKey{}).(*User)
	return u
}

func (s *Server) userByID(id int64) *User {
	for _, u := range s.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")

		s.mu.Lock()
		status := s.authStatus
		expired := s.expired[token]
		uid, known := s.tokens[token]
		user := s.userByID(uid)
		s.mu.Unlock()

		switch {
		case !ok || token == "":
			writeError(w, status, CodeUnauthorized, "not logged in or token expired")
		case expired:
			writeError(w, status, CodeLoginExpired, "login expired, please log in again")
		case !known || user == nil:
			writeError(w, status, CodeUnauthorized, "not logged in or token expired")
		default:
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
		}
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := currentUser(r); u == nil || u.Role != 1 {
			writeError(w, http.StatusForbidden, CodeForbidden, "forbidden: admin only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusOK, 400, "bad request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[body.Phone]
	if !ok {
		writeError(w, http.StatusOK, CodeUserNotFound, "user not found")
		return
	}
	if u.Password != body.Password {
		writeError(w, http.StatusOK, CodePasswordWrong, "wrong password")
		return
	}
	token := newToken()
	s.tokens[token] = u.ID
	writeOK(w, "", map[string]any{
		"token":    token,
		"userId":   u.ID,
		"username": u.Username,
		"nickname": u.Nickname,
		"phone":    u.Phone,
		"role":     u.Role,
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Phone == "" || body.Password == "" {
		writeError(w, http.StatusOK, 400, "bad request")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[body.Phone]; exists {
		writeError(w, http.StatusOK, CodeUserExists, "user already exists")
		return
	}
	s.nextID++
	s.users[body.Phone] = &User{ID: s.nextID, Username: body.Username, Nickname: body.Username, Phone: body.Phone, Password: body.Password}
	writeOK(w, "", nil)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	s.mu.Lock()
	delete(s.tokens, token)
	s.mu.Unlock()
	writeOK(w, "", nil)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	u := currentUser(r)
	writeOK(w, "", map[string]any{"userId": u.ID, "username": u.Username, "role": u.Role})
}

func (s *Server) handleGoodsList(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]Goods, 0, len(s.goods))
	for _, g := range s.goods {
		list = append(list, *g)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].SeckillGoodsID < list[j].SeckillGoodsID })
	writeOK(w, "", list)
}

func (s *Server) handleGoodsDetail(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goods[id]
	if !ok {
		writeError(w, http.StatusOK, CodeGoodsNotFound, "goods not found")
		return
	}
	writeOK(w, "", *g)
}

func (s *Server) handleCaptcha(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	u := currentUser(r)
	a, b := rand.IntN(10), rand.IntN(10)

	s.mu.Lock()
	s.captchas[attemptKey{u.ID, id}] = a + b
	s.mu.Unlock()

	writeOK(w, "", map[string]string{"captchaImage": captchaImage(a*10 + b)})
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	u := currentUser(r)
	answer, err := strconv.Atoi(r.URL.Query().Get("captcha"))

	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{u.ID, id}
	want, ok := s.captchas[key]
	// A captcha is single use, right or wrong.
	delete(s.captchas, key)
	if err != nil || !ok || want != answer {
		writeError(w, http.StatusOK, CodeCaptchaWrong, "captcha wrong")
		return
	}
	path := newToken()[:16]
	s.paths[key] = path
	writeOK(w, "", map[string]string{"path": path})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	u := currentUser(r)
	path := chi.URLParam(r, "path")

	s.mu.Lock()
	defer s.mu.Unlock()
	key := attemptKey{u.ID, id}
	if want, ok := s.paths[key]; !ok || want != path {
		writeError(w, http.StatusOK, CodePathInvalid, "seckill path invalid")
		return
	}
	delete(s.paths, key)
	if _, dup := s.attempts[key]; dup {
		writeError(w, http.StatusOK, CodeSeckillRepeat, "repeated seckill")
		return
	}
	g, ok := s.goods[id]
	if !ok {
		writeError(w, http.StatusOK, CodeGoodsNotFound, "goods not found")
		return
	}

	at := &attempt{pendingPolls: s.queueDelay, result: -1}
	if g.StockCount > 0 {
		g.StockCount--
		s.nextID++
		now := stamp(time.Now())
		s.orders[s.nextID] = &Order{
			ID: s.nextID, UserID: u.ID, GoodsID: g.GoodsID, SeckillGoodsID: id,
			GoodsName: g.GoodsName, GoodsCount: 1, GoodsPrice: g.SeckillPrice,
			CreateTime: now, UpdateTime: now,
		}
		at.result = s.nextID
	}
	s.attempts[key] = at
	writeOK(w, "seckill request submitted, please wait for the result", nil)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	u := currentUser(r)

	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.attempts[attemptKey{u.ID, id}]
	switch {
	case !ok || at.pendingPolls > 0:
		if ok {
			at.pendingPolls--
		}
		writeError(w, http.StatusOK, CodeQueuing, "queuing, please wait")
	case at.result < 0:
		writeError(w, http.StatusOK, CodeSoldOut, "sold out")
	default:
		writeOK(w, "seckill succeeded", at.result)
	}
}

func (s *Server) ordersFor(userID int64, status string) []Order {
	list := []Order{}
	for _, o := range s.orders {
		if userID != 0 && o.UserID != userID {
			continue
		}
		if status != "" {
			if st, err := strconv.Atoi(status); err == nil && st >= 0 && o.Status != st {
				continue
			}
		}
		list = append(list, *o)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list
}

func (s *Server) handleOrderList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeOK(w, "", s.ordersFor(currentUser(r).ID, r.URL.Query().Get("status")))
}

func (s *Server) ownOrder(w http.ResponseWriter, r *http.Request) *Order {
	id, _ := pathID(r)
	o, ok := s.orders[id]
	if !ok || o.UserID != currentUser(r).ID {
		writeError(w, http.StatusOK, CodeOrderNotFound, "order not found")
		return nil
	}
	return o
}

func (s *Server) handleOrderDetail(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.ownOrder(w, r); o != nil {
		writeOK(w, "", *o)
	}
}

func (s *Server) handleOrderPay(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.ownOrder(w, r)
	if o == nil {
		return
	}
	switch o.Status {
	case 1:
		writeError(w, http.StatusOK, CodeOrderPaid, "order already paid")
	case 4:
		writeError(w, http.StatusOK, CodeOrderCancelled, "order cancelled")
	default:
		now := stamp(time.Now())
		o.Status, o.PayTime, o.UpdateTime = 1, &now, now
		writeOK(w, "payment succeeded", nil)
	}
}

func (s *Server) handleOrderCancel(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.ownOrder(w, r)
	if o == nil {
		return
	}
	if o.Status != 0 {
		writeError(w, http.StatusOK, CodeOrderPaid, "only unpaid orders can be cancelled")
		return
	}
	o.Status, o.UpdateTime = 4, stamp(time.Now())
	if g, ok := s.goods[o.SeckillGoodsID]; ok {
		g.StockCount++
	}
	writeOK(w, "order cancelled", nil)
}

func (s *Server) orderStats(userID int64) map[string]int64 {
	stats := map[string]int64{"total": 0, "unpaid": 0, "paid": 0, "cancelled": 0}
	for _, o := range s.orders {
		if userID != 0 && o.UserID != userID {
			continue
		}
		stats["total"]++
		switch o.Status {
		case 0:
			stats["unpaid"]++
		case 1:
			stats["paid"]++
		case 4:
			stats["cancelled"]++
		}
	}
	return stats
}

func (s *Server) handleOrderStats(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeOK(w, "", s.orderStats(currentUser(r).ID))
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active, totalStock int64
	details := []map[string]any{}
	for _, g := range s.goods {
		if g.SeckillStatus == 1 {
			active++
		}
		totalStock += int64(g.StockCount)
		details = append(details, map[string]any{
			"seckillGoodsId": g.SeckillGoodsID,
			"goodsName":      g.GoodsName,
			"dbStock":        g.StockCount,
			"redisStock":     g.StockCount,
			"seckillPrice":   g.SeckillPrice,
			"startDate":      g.StartDate,
			"endDate":        g.EndDate,
			"status":         g.SeckillStatus,
			"dbStatus":       g.SeckillStatus,
			"goodsStatus":    1,
		})
	}
	writeOK(w, "", map[string]any{
		"goods":        map[string]int64{"total": int64(len(s.goods)), "active": active, "totalStock": totalStock},
		"orders":       s.orderStats(0),
		"stockDetails": details,
		"serverTime":   stamp(time.Now()),
	})
}

func (s *Server) handleAdminOrders(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeOK(w, "", s.ordersFor(0, r.URL.Query().Get("status")))
}

type goodsInput struct {
	GoodsName    string  `json:"goodsName"`
	GoodsTitle   string  `json:"goodsTitle"`
	GoodsImg     string  `json:"goodsImg"`
	GoodsDetail  string  `json:"goodsDetail"`
	GoodsPrice   float64 `json:"goodsPrice"`
	GoodsStock   int     `json:"goodsStock"`
	SeckillPrice float64 `json:"seckillPrice"`
	StockCount   int     `json:"stockCount"`
	StartDate    string  `json:"startDate"`
	EndDate      string  `json:"endDate"`
	Status       *int    `json:"status"`
}

func (in goodsInput) apply(g *Goods) {
	g.GoodsName, g.GoodsTitle, g.GoodsImg, g.GoodsDetail = in.GoodsName, in.GoodsTitle, in.GoodsImg, in.GoodsDetail
	g.GoodsPrice, g.SeckillPrice, g.StockCount = in.GoodsPrice, in.SeckillPrice, in.StockCount
	g.StartDate, g.EndDate = in.StartDate, in.EndDate
	if in.Status != nil {
		g.SeckillStatus = *in.Status
	}
}

func decodeGoods(w http.ResponseWriter, r *http.Request) (goodsInput, bool) {
	var in goodsInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.GoodsName == "" {
		writeError(w, http.StatusOK, 400, "bad request")
		return in, false
	}
	return in, true
}

func (s *Server) handleAddGoods(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeGoods(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	g := &Goods{GoodsID: s.nextID + 1000, SeckillGoodsID: s.nextID}
	in.apply(g)
	s.goods[g.SeckillGoodsID] = g
	writeOK(w, "added", nil)
}

func (s *Server) handleUpdateGoods(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	in, ok := decodeGoods(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.goods[id]
	if !exists {
		writeError(w, http.StatusOK, CodeGoodsNotFound, "goods not found")
		return
	}
	in.apply(g)
	writeOK(w, "updated", nil)
}

func (s *Server) handleDeleteGoods(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.goods[id]; !exists {
		writeError(w, http.StatusOK, CodeGoodsNotFound, "goods not found")
		return
	}
	delete(s.goods, id)
	writeOK(w, "deleted", nil)
}

func (s *Server) handleResetStock(w http.ResponseWriter, r *http.Request) {
	id, _ := pathID(r)
	stock, err := strconv.Atoi(r.URL.Query().Get("stock"))
	if err != nil || stock < 0 {
		writeError(w, http.StatusOK, 400, "bad request")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.goods[id]
	if !exists {
		writeError(w, http.StatusOK, CodeGoodsNotFound, "goods not found")
		return
	}
	g.StockCount = stock
	writeOK(w, "stock reset", nil)
}
