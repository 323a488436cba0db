// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package router

import (
	"github.com/ManuGH/seckill/internal/guard"
	"github.com/ManuGH/seckill/internal/profile"
)

// Route names shared by the CLI and the route tables.
const (
	Login         = "Login"
	Register      = "Register"
	Home          = "Home"
	GoodsDetail   = "GoodsDetail"
	Orders        = "Orders"
	OrderDetail   = "OrderDetail"
	SeckillResult = "SeckillResult"
	Dashboard     = "Dashboard"
	GoodsManage   = "GoodsManage"
	OrderManage   = "OrderManage"
)

// UserRoutes is the storefront route table.
func UserRoutes() []guard.Route {
	return []guard.Route{
		{Name: Home, Path: "/", Title: "Flash Sale Home", Access: guard.Public},
		{Name: GoodsDetail, Path: "/goods/{id}", Title: "Goods Detail", Access: guard.Public},
		{Name: Orders, Path: "/orders", Title: "My Orders", Access: guard.RequireAuth},
		{Name: OrderDetail, Path: "/order/{id}", Title: "Order Detail", Access: guard.RequireAuth},
		{Name: SeckillResult, Path: "/seckill/result/{id}", Title: "Seckill Result", Access: guard.RequireAuth},
		{Name: Login, Path: "/login", Title: "Login", Access: guard.Public},
		{Name: Register, Path: "/register", Title: "Register", Access: guard.Public},
	}
}

// AdminRoutes is the admin console route table. Everything but Login needs the
// admin role.
func AdminRoutes() []guard.Route {
	return []guard.Route{
		{Name: Login, Path: "/login", Title: "Admin Login", Access: guard.Public},
		{Name: Dashboard, Path: "/", Title: "Dashboard", Access: guard.RequireAdmin},
		{Name: GoodsManage, Path: "/goods", Title: "Goods Management", Access: guard.RequireAdmin},
		{Name: OrderManage, Path: "/orders", Title: "Order Management", Access: guard.RequireAdmin},
	}
}

// RoutesFor returns the route table of an application profile.
func RoutesFor(p profile.Profile) []guard.Route {
	if p.Name == profile.Admin.Name {
		return AdminRoutes()
	}
	return UserRoutes()
}
