// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"time"

	"github.com/ManuGH/seckill/internal/profile"
	"github.com/ManuGH/seckill/internal/router"
	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

func (c *cli) loginCmd() *cobra.Command {
	var phone, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if phone == "" || password == "" {
				return usagef("login: --phone and --password are required")
			}
			ctx := cmd.Context()
			container, err := c.enter(ctx, router.Target{Name: router.Login})
			if err != nil {
				return err
			}
			res, err := container.API.User.Login(ctx, phone, password)
			if err != nil {
				return err
			}
			c.printf("logged in as %s (user %d)\n", displayName(res.Nickname, res.Username), res.UserID)

			// The landing screen re-checks the role; the admin console clears
			// a non-admin session here.
			loc, err := container.Router.Push(ctx, router.Target{Name: container.Profile.LandingRoute})
			if err != nil {
				return err
			}
			if loc.Route.Name != container.Profile.LandingRoute {
				return &redirectError{From: container.Profile.LandingRoute, To: loc.Route.Name, Reason: loc.Reason}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&phone, "phone", "", "account phone number")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (c *cli) registerCmd() *cobra.Command {
	var username, phone, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a storefront account",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" || phone == "" || password == "" {
				return usagef("register: --username, --phone and --password are required")
			}
			ctx := cmd.Context()
			container, err := c.client(ctx)
			if err != nil {
				return err
			}
			if container.Profile.Name != profile.User.Name {
				return usagef("register is only available in the user app")
			}
			if _, err := c.enter(ctx, router.Target{Name: router.Register}); err != nil {
				return err
			}
			if err := container.API.User.Register(ctx, username, phone, password); err != nil {
				return err
			}
			c.printf("registered %s, you can log in now\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "user name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&password, "password", "", "password")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Log out and clear the stored session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := c.client(ctx)
			if err != nil {
				return err
			}
			if !container.Store.IsLoggedIn() {
				c.printf("not logged in\n")
				return nil
			}
			if err := container.API.User.Logout(ctx); err != nil {
				// The local session is cleared regardless.
				c.printf("logged out locally (%v)\n", err)
				return nil
			}
			c.printf("logged out\n")
			return nil
		},
	}
}

func (c *cli) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			container, err := c.client(cmd.Context())
			if err != nil {
				return err
			}
			sess := container.Store.Snapshot()
			if sess.Token == "" {
				c.printf("not logged in (%s app)\n", container.Profile.Name)
				return nil
			}
			c.printf("app:      %s\n", container.Profile.Name)
			c.printf("user:     %s (id %s)\n", displayName(sess.Nickname, sess.Username), sess.UserID)
			if container.Profile.TracksRole {
				role := "user"
				if container.Store.IsAdmin() {
					role = "admin"
				}
				c.printf("role:     %s\n", role)
			}
			c.printf("token:    %s\n", describeToken(sess.Token, time.Now()))
			return nil
		},
	}
}

// describeToken reads the expiry of a JWT without verifying it. The client
// holds no key; the server stays the authority on validity.
func describeToken(token string, now time.Time) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "opaque"
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "jwt, no expiry"
	}
	if exp.Before(now) {
		return "jwt, expired " + exp.Local().Format(time.DateTime)
	}
	return "jwt, expires " + exp.Local().Format(time.DateTime)
}

func displayName(nickname, username string) string {
	if nickname != "" {
		return nickname
	}
	return username
}
