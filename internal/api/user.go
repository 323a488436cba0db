// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/ManuGH/seckill/internal/audit"
	"github.com/ManuGH/seckill/internal/dispatch"
	"github.com/ManuGH/seckill/internal/session"
)

// UserAPI covers login, registration, logout and the current user.
type UserAPI struct {
	d     Doer
	store SessionWriter
	audit *audit.Logger
	app   string
}

type credentials struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type registration struct {
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Login authenticates and stores the returned session. The store drops the role
// for applications that do not track it.
func (a *UserAPI) Login(ctx context.Context, phone, password string) (*LoginResult, error) {
	var res LoginResult
	req := dispatch.Request{Method: http.MethodPost, Path: "/user/login", Body: credentials{Phone: phone, Password: password}}
	if err := call(ctx, a.d, req, &res); err != nil {
		a.audit.LoginFailure(ctx, a.app, phone, err.Error())
		return nil, wrap("login", err)
	}
	if res.Token == "" {
		return nil, fmt.Errorf("login: response carries no token")
	}
	sess := session.Session{
		Token:    res.Token,
		UserID:   strconv.FormatInt(res.UserID, 10),
		Username: res.Username,
		Nickname: res.Nickname,
		Role:     res.Role,
	}
	if err := a.store.SetUser(ctx, sess); err != nil {
		return nil, wrap("login", err)
	}
	a.audit.LoginSuccess(ctx, a.app, res.Username, res.UserID)
	return &res, nil
}

// Register creates a storefront account.
func (a *UserAPI) Register(ctx context.Context, username, phone, password string) error {
	req := dispatch.Request{
		Method: http.MethodPost,
		Path:   "/user/register",
		Body:   registration{Username: username, Phone: phone, Password: password},
	}
	return wrap("register", call(ctx, a.d, req, nil))
}

// Logout tells the server and always clears the local session, even when the
// server call fails.
func (a *UserAPI) Logout(ctx context.Context) error {
	actor := a.store.Snapshot().Username
	callErr := call(ctx, a.d, dispatch.Request{Method: http.MethodPost, Path: "/user/logout"}, nil)
	if err := a.store.ClearUser(ctx); err != nil {
		return wrap("logout", err)
	}
	a.audit.Logout(ctx, a.app, actor)
	return wrap("logout", callErr)
}

// Info returns the current user.
func (a *UserAPI) Info(ctx context.Context) (*UserInfo, error) {
	var info UserInfo
	if err := call(ctx, a.d, dispatch.Request{Method: http.MethodGet, Path: "/user/info"}, &info); err != nil {
		return nil, wrap("user info", err)
	}
	return &info, nil
}
