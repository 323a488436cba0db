// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Seckill activity states reported for goods.
const (
	SeckillNotStarted = 0
	SeckillRunning    = 1
	SeckillEnded      = 2
)

// Order states.
const (
	OrderUnpaid    = 0
	OrderPaid      = 1
	OrderShipped   = 2
	OrderReceived  = 3
	OrderCancelled = 4
	OrderRefunded  = 5
)

// Goods is one seckill offer.
type Goods struct {
	GoodsID        int64       `json:"goodsId"`
	SeckillGoodsID int64       `json:"seckillGoodsId"`
	GoodsName      string      `json:"goodsName"`
	GoodsTitle     string      `json:"goodsTitle"`
	GoodsImg       string      `json:"goodsImg"`
	GoodsDetail    string      `json:"goodsDetail"`
	GoodsPrice     json.Number `json:"goodsPrice"`
	SeckillPrice   json.Number `json:"seckillPrice"`
	StockCount     int         `json:"stockCount"`
	StartDate      Timestamp   `json:"startDate"`
	EndDate        Timestamp   `json:"endDate"`
	SeckillStatus  int         `json:"seckillStatus"`
	RemainSeconds  int64       `json:"remainSeconds"`
}

// Order is an order record.
type Order struct {
	ID             int64       `json:"id"`
	UserID         int64       `json:"userId"`
	GoodsID        int64       `json:"goodsId"`
	SeckillGoodsID int64       `json:"seckillGoodsId"`
	DeliveryAddrID int64       `json:"deliveryAddrId"`
	GoodsName      string      `json:"goodsName"`
	GoodsCount     int         `json:"goodsCount"`
	GoodsPrice     json.Number `json:"goodsPrice"`
	Status         int         `json:"status"`
	PayTime        Timestamp   `json:"payTime"`
	CreateTime     Timestamp   `json:"createTime"`
	UpdateTime     Timestamp   `json:"updateTime"`
}

// OrderStatusName renders an order status for display.
func OrderStatusName(status int) string {
	switch status {
	case OrderUnpaid:
		return "unpaid"
	case OrderPaid:
		return "paid"
	case OrderShipped:
		return "shipped"
	case OrderReceived:
		return "received"
	case OrderCancelled:
		return "cancelled"
	case OrderRefunded:
		return "refunded"
	default:
		return fmt.Sprintf("status(%d)", status)
	}
}

// OrderStats summarises the current user's orders.
type OrderStats struct {
	Total     int64 `json:"total"`
	Unpaid    int64 `json:"unpaid"`
	Paid      int64 `json:"paid"`
	Cancelled int64 `json:"cancelled"`
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Phone    string `json:"phone"`
	Role     int    `json:"role"`
}

// UserInfo describes the caller.
type UserInfo struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     int    `json:"role"`
}

// Captcha is an arithmetic image challenge.
type Captcha struct {
	// Image is a data URL ("data:image/png;base64,...").
	Image string `json:"captchaImage"`
}

// ErrInvalidCaptchaImage is returned when the image is not a base64 data URL.
var ErrInvalidCaptchaImage = errors.New("api: captcha image is not a base64 data url")

// PNG decodes the image bytes of the data URL.
func (c Captcha) PNG() ([]byte, error) {
	head, payload, ok := strings.Cut(c.Image, ",")
	if !ok || !strings.HasPrefix(head, "data:") || !strings.HasSuffix(head, ";base64") {
		return nil, ErrInvalidCaptchaImage
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCaptchaImage, err)
	}
	return raw, nil
}

// Dashboard is the admin overview.
type Dashboard struct {
	Goods struct {
		Total      int64 `json:"total"`
		Active     int64 `json:"active"`
		TotalStock int64 `json:"totalStock"`
	} `json:"goods"`
	Orders       OrderStats   `json:"orders"`
	StockDetails []StockDetail `json:"stockDetails"`
	ServerTime   Timestamp    `json:"serverTime"`
}

// StockDetail compares database and cache stock of one seckill offer.
type StockDetail struct {
	SeckillGoodsID int64       `json:"seckillGoodsId"`
	GoodsName      string      `json:"goodsName"`
	DBStock        int         `json:"dbStock"`
	RedisStock     int         `json:"redisStock"`
	SeckillPrice   json.Number `json:"seckillPrice"`
	StartDate      Timestamp   `json:"startDate"`
	EndDate        Timestamp   `json:"endDate"`
	Status         int         `json:"status"`
	DBStatus       int         `json:"dbStatus"`
	GoodsStatus    int         `json:"goodsStatus"`
}

// GoodsInput is the body of admin goods create and update calls.
type GoodsInput struct {
	GoodsName    string      `json:"goodsName"`
	GoodsTitle   string      `json:"goodsTitle,omitempty"`
	GoodsImg     string      `json:"goodsImg,omitempty"`
	GoodsDetail  string      `json:"goodsDetail,omitempty"`
	GoodsPrice   json.Number `json:"goodsPrice"`
	GoodsStock   int         `json:"goodsStock"`
	SeckillPrice json.Number `json:"seckillPrice"`
	StockCount   int         `json:"stockCount"`
	StartDate    Timestamp   `json:"startDate"`
	EndDate      Timestamp   `json:"endDate"`
	Status       *int        `json:"status,omitempty"`
}

// timestampLayouts are the encodings the backend uses for local date-times.
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// Timestamp is a server local date-time without zone ("2025-01-01T10:00:00").
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses any of the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("api: unrecognised timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format("2006-01-02T15:04:05"))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*t = Timestamp{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("api: timestamp: %w", err)
	}
	if s == "" {
		*t = Timestamp{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}
