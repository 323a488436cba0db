// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package guard decides whether a navigation may proceed. Decide is pure: it
// reads the session snapshot it is handed and returns the effects to apply.
package guard

import (
	"fmt"

	"github.com/ManuGH/seckill/internal/profile"
	"github.com/ManuGH/seckill/internal/session"
)

// Access is the capability a route requires.
type Access int

const (
	Public Access = iota
	RequireAuth
	RequireAdmin
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case RequireAuth:
		return "require_auth"
	case RequireAdmin:
		return "require_admin"
	default:
		return fmt.Sprintf("access(%d)", int(a))
	}
}

// Route is one screen of an application.
type Route struct {
	Name   string
	Path   string
	Title  string
	Access Access
}

// Redirect reasons.
const (
	ReasonLoginRequired   = "login_required"
	ReasonAdminRequired   = "admin_required"
	ReasonAlreadyLoggedIn = "already_logged_in"
)

// MsgAdminRequired is the notification emitted when a non-admin reaches an admin route.
const MsgAdminRequired = "admin role required"

// RedirectQueryKey carries the originally requested path to the login screen.
const RedirectQueryKey = "redirect"

// Target is a named route plus its query.
type Target struct {
	Name  string
	Query map[string]string
}

// Decision is the outcome of evaluating a navigation.
type Decision struct {
	// Redirect is nil when the navigation is allowed.
	Redirect *Target
	Reason   string
	// Notify is a user-facing message; empty means none.
	Notify       string
	ClearSession bool
	// Title is the document title for the requested route. It is computed for
	// every evaluation, including redirected ones.
	Title string
}

// Allowed reports whether the navigation proceeds unchanged.
func (d Decision) Allowed() bool {
	return d.Redirect == nil
}

// Decide evaluates a navigation to route (requested as fullPath) for the given
// session.
func Decide(p profile.Profile, route Route, fullPath string, sess session.Session) Decision {
	d := Decision{Title: Title(p, route)}

	loggedIn := sess.Token != ""
	isAdmin := p.TracksRole && sess.Role == session.RoleAdmin
	needsAuth := route.Access >= RequireAuth
	needsAdmin := route.Access == RequireAdmin || (p.AdminOnly && needsAuth)

	if needsAuth && !loggedIn {
		d.Redirect = &Target{Name: p.LoginRoute, Query: map[string]string{RedirectQueryKey: fullPath}}
		d.Reason = ReasonLoginRequired
		return d
	}
	if needsAdmin && !isAdmin {
		d.Redirect = &Target{Name: p.LoginRoute}
		d.Reason = ReasonAdminRequired
		d.Notify = MsgAdminRequired
		d.ClearSession = true
		return d
	}
	if p.AdminOnly && route.Name == p.LoginRoute && loggedIn && isAdmin {
		d.Redirect = &Target{Name: p.LandingRoute}
		d.Reason = ReasonAlreadyLoggedIn
		return d
	}
	return d
}

// Title renders the document title of route.
func Title(p profile.Profile, route Route) string {
	t := route.Title
	if t == "" {
		t = p.AppName
	}
	return t + " - " + p.TitleSuffix
}
