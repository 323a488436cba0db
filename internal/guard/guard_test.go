// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package guard

import (
	"testing"

	"github.com/ManuGH/seckill/internal/profile"
	"github.com/ManuGH/seckill/internal/session"
	"github.com/google/go-cmp/cmp"
)

var (
	home    = Route{Name: "Home", Path: "/", Title: "Flash Sale Home", Access: Public}
	orders  = Route{Name: "Orders", Path: "/orders", Title: "My Orders", Access: RequireAuth}
	login   = Route{Name: "Login", Path: "/login", Title: "Login", Access: Public}
	dash    = Route{Name: "Dashboard", Path: "/", Title: "Dashboard", Access: RequireAuth}
	untitle = Route{Name: "Misc", Path: "/misc", Access: Public}
)

func TestDecide(t *testing.T) {
	loggedIn := session.Session{Token: "abc", UserID: "1"}
	admin := session.Session{Token: "abc", UserID: "1", Role: session.RoleAdmin}

	tests := []struct {
		name     string
		profile  profile.Profile
		route    Route
		fullPath string
		sess     session.Session
		want     Decision
	}{
		{
			name:    "public route allowed anonymously",
			profile: profile.User,
			route:   home,
			want:    Decision{Title: "Flash Sale Home - Flash Sale"},
		},
		{
			name:     "auth route redirects with return-to",
			profile:  profile.User,
			route:    orders,
			fullPath: "/orders?status=1",
			want: Decision{
				Redirect: &Target{Name: "Login", Query: map[string]string{"redirect": "/orders?status=1"}},
				Reason:   ReasonLoginRequired,
				Title:    "My Orders - Flash Sale",
			},
		},
		{
			name:    "auth route allowed with token",
			profile: profile.User,
			route:   orders,
			sess:    loggedIn,
			want:    Decision{Title: "My Orders - Flash Sale"},
		},
		{
			name:    "user app ignores role",
			profile: profile.User,
			route:   login,
			sess:    admin,
			want:    Decision{Title: "Login - Flash Sale"},
		},
		{
			name:     "admin app anonymous redirects with return-to",
			profile:  profile.Admin,
			route:    dash,
			fullPath: "/",
			want: Decision{
				Redirect: &Target{Name: "Login", Query: map[string]string{"redirect": "/"}},
				Reason:   ReasonLoginRequired,
				Title:    "Dashboard - FlashSale Admin",
			},
		},
		{
			name:    "admin app non-admin is cleared without return-to",
			profile: profile.Admin,
			route:   dash,
			sess:    loggedIn,
			want: Decision{
				Redirect:     &Target{Name: "Login"},
				Reason:       ReasonAdminRequired,
				Notify:       MsgAdminRequired,
				ClearSession: true,
				Title:        "Dashboard - FlashSale Admin",
			},
		},
		{
			name:    "admin app admin allowed",
			profile: profile.Admin,
			route:   dash,
			sess:    admin,
			want:    Decision{Title: "Dashboard - FlashSale Admin"},
		},
		{
			name:    "admin on login goes to landing",
			profile: profile.Admin,
			route:   login,
			sess:    admin,
			want: Decision{
				Redirect: &Target{Name: "Dashboard"},
				Reason:   ReasonAlreadyLoggedIn,
				Title:    "Login - FlashSale Admin",
			},
		},
		{
			name:    "non-admin may stay on admin login",
			profile: profile.Admin,
			route:   login,
			sess:    loggedIn,
			want:    Decision{Title: "Login - FlashSale Admin"},
		},
		{
			name:    "untitled route falls back to app name",
			profile: profile.Admin,
			route:   untitle,
			want:    Decision{Title: "Admin Console - FlashSale Admin"},
		},
		{
			name:    "explicit admin route in user app",
			profile: profile.User,
			route:   Route{Name: "Ops", Path: "/ops", Access: RequireAdmin},
			sess:    loggedIn,
			want: Decision{
				Redirect:     &Target{Name: "Login"},
				Reason:       ReasonAdminRequired,
				Notify:       MsgAdminRequired,
				ClearSession: true,
				Title:        "Seckill System - Flash Sale",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.profile, tt.route, tt.fullPath, tt.sess)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Decide() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecide_AnonymousAuthRoutesAlwaysPreservePath(t *testing.T) {
	paths := []string{"/orders", "/order/12", "/seckill/result/7", "/orders?status=0", "/"}
	for _, p := range []profile.Profile{profile.User, profile.Admin} {
		for _, access := range []Access{RequireAuth, RequireAdmin} {
			for _, path := range paths {
				d := Decide(p, Route{Name: "X", Path: path, Access: access}, path, session.Session{})
				if d.Allowed() || d.Redirect.Name != p.LoginRoute || d.Redirect.Query[RedirectQueryKey] != path {
					t.Fatalf("%s %s %s: decision %+v", p.Name, access, path, d)
				}
				if d.ClearSession {
					t.Fatalf("%s %s %s: anonymous redirect must not clear", p.Name, access, path)
				}
			}
		}
	}
}

func TestAccess_String(t *testing.T) {
	if RequireAdmin.String() != "require_admin" || Access(9).String() != "access(9)" {
		t.Fatal("unexpected Access names")
	}
}
