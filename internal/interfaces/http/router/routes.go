package router

import (
	"github.com/farmstore/backend/internal/interfaces/http/handler"
)

// Handlers are the HTTP handlers of the store API
type Handlers struct {
	Stock     *handler.StockHandler
	Cart      *handler.CartHandler
	Checkout  *handler.CheckoutHandler
	Offline   *handler.OfflineHandler
	Orders    *handler.OrderHandler
	Dashboard *handler.DashboardHandler
	System    *handler.SystemHandler
}

// StoreRoutes returns the route groups of the store API.
// Cart, checkout and offline routes rely on the session id middleware.
func StoreRoutes(h Handlers) []RouteRegistrar {
	stock := NewDomainGroup("/stock").
		GET("", h.Stock.List)

	cart := NewDomainGroup("/cart")
	cart.GET("", h.Cart.Get).
		DELETE("", h.Cart.Clear).
		POST("/items/:product_id/add", h.Cart.Add).
		POST("/items/:product_id/remove", h.Cart.Remove).
		PUT("/items/:product_id", h.Cart.SetLine)

	checkout := NewDomainGroup("/checkout").
		POST("", h.Checkout.PlaceOrder)

	caisse := NewDomainGroup("/caisse").
		POST("/sales", h.Checkout.RecordSale)

	offline := NewDomainGroup("/offline")
	offline.GET("/orders", h.Offline.List).
		POST("/flush", h.Offline.Flush)

	orders := NewDomainGroup("/orders").
		GET("", h.Orders.List).
		GET("/:id", h.Orders.GetByID)

	dashboard := NewDomainGroup("/dashboard").
		GET("", h.Dashboard.Get).
		POST("/refresh", h.Dashboard.Refresh).
		GET("/summary", h.Dashboard.Summary).
		GET("/stream", h.Dashboard.Stream).
		GET("/poll-interval", h.Dashboard.GetPollInterval).
		PUT("/poll-interval", h.Dashboard.SetPollInterval)

	system := NewDomainGroup("/system").
		GET("/info", h.System.GetSystemInfo).
		GET("/ping", h.System.Ping)

	return []RouteRegistrar{stock, cart, checkout, caisse, offline, orders, dashboard, system}
}
