// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package profile describes the two client applications (storefront and admin
// console). Both share the same session, dispatch and guard logic; a Profile carries
// the handful of values that differ between them.
package profile

import (
	"fmt"
	"strings"
)

// Profile holds per-application constants.
type Profile struct {
	// Name is "user" or "admin".
	Name string
	// KeyPrefix namespaces every durable credential key so the two apps never
	// share a session.
	KeyPrefix string
	// TracksRole is true when the session carries a role (admin app only).
	TracksRole bool
	// AdminOnly makes every authenticated route implicitly require the admin role.
	AdminOnly bool

	LoginRoute   string
	LandingRoute string

	// ForbiddenMessage is the notification emitted on HTTP 403.
	ForbiddenMessage string

	// AppName is the title used for routes without their own title.
	AppName     string
	TitleSuffix string
}

// User is the end-user storefront.
var User = Profile{
	Name:             "user",
	KeyPrefix:        "seckill_",
	LoginRoute:       "Login",
	LandingRoute:     "Home",
	ForbiddenMessage: "forbidden",
	AppName:          "Seckill System",
	TitleSuffix:      "Flash Sale",
}

// Admin is the administration console.
var Admin = Profile{
	Name:             "admin",
	KeyPrefix:        "admin_",
	TracksRole:       true,
	AdminOnly:        true,
	LoginRoute:       "Login",
	LandingRoute:     "Dashboard",
	ForbiddenMessage: "forbidden: admin role required",
	AppName:          "Admin Console",
	TitleSuffix:      "FlashSale Admin",
}

// ByName resolves a profile from its configured name.
func ByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", User.Name:
		return User, nil
	case Admin.Name:
		return Admin, nil
	default:
		return Profile{}, fmt.Errorf("unknown app %q (supported: user, admin)", name)
	}
}

// Key returns the namespaced durable key for a session field.
func (p Profile) Key(field string) string {
	return p.KeyPrefix + field
}
