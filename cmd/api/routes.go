package main

import (
	"github.com/inversionreal/storefront/pkg/api/handlers"
	custommw "github.com/inversionreal/storefront/pkg/api/middleware"
	"github.com/inversionreal/storefront/pkg/auth"
	custommiddleware "github.com/inversionreal/storefront/pkg/middleware"
	"github.com/labstack/echo/v4"
)

type routes struct {
	auth     *handlers.AuthHandler
	catalog  *handlers.CatalogHandler
	checkout *handlers.CheckoutHandler
	webhook  *handlers.WebhookHandler
	discord  *handlers.DiscordHandler
	admin    *handlers.AdminHandler

	jwtSecret string
	blacklist *auth.TokenBlacklist

	globalLimiter *custommiddleware.RateLimiter
	authLimiter   *custommiddleware.RateLimiter
}

func registerRoutes(e *echo.Echo, r routes) {
	api := e.Group("/api")

	// Stripe webhooks are gated by their signature only
	api.POST("/stripe/webhook", r.webhook.HandleStripeWebhook)

	// Admin auth
	api.POST("/auth/login", r.auth.Login, r.authLimiter.Middleware())

	jwt := custommw.JWTMiddlewareWithBlacklist(r.jwtSecret, r.blacklist)
	api.POST("/auth/logout", r.auth.Logout, jwt)

	// Public
	public := api.Group("", r.globalLimiter.Middleware())
	public.GET("/memberships", r.catalog.ListMemberships)
	public.GET("/memberships/:id", r.catalog.GetMembership)
	public.POST("/memberships/terms", r.checkout.AcceptTerms)
	public.GET("/courses", r.catalog.ListCourses)
	public.GET("/courses/:id", r.catalog.GetCourse)
	public.GET("/subscriptions", r.checkout.ListSubscriptions)
	public.POST("/subscriptions/cancel", r.checkout.CancelSubscription)
	public.POST("/stripe/checkout", r.checkout.CreateCourseCheckout)
	public.POST("/stripe/subscription-checkout", r.checkout.CreateSubscriptionCheckout)
	public.GET("/discord/auth", r.discord.Auth)
	public.GET("/discord/callback", r.discord.Callback)
	public.GET("/discord/status", r.discord.Status)

	// Admin
	admin := api.Group("/admin", jwt)
	admin.GET("/memberships", r.catalog.ListMemberships)
	admin.POST("/memberships", r.catalog.CreateMembership)
	admin.PUT("/memberships/:id", r.catalog.UpdateMembership)
	admin.DELETE("/memberships/:id", r.catalog.DeleteMembership)
	admin.GET("/courses", r.catalog.ListCourses)
	admin.POST("/courses", r.catalog.CreateCourse)
	admin.PUT("/courses/:id", r.catalog.UpdateCourse)
	admin.DELETE("/courses/:id", r.catalog.DeleteCourse)
	admin.GET("/courses/:id/orders", r.catalog.ListCourseOrders)
	admin.GET("/subscriptions", r.admin.ListSubscriptions)
	admin.GET("/subscriptions/export", r.admin.ExportSubscriptions)
	admin.GET("/contracts/:id/pdf", r.admin.ContractPDF)
}
