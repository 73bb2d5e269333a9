package router

import (
	"github.com/gin-gonic/gin"
	"github.com/grocery/backend/internal/interfaces/http/handler"
	"github.com/grocery/backend/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers mounted under the API prefix
type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Product  *handler.ProductHandler
	Customer *handler.CustomerHandler
	Invoice  *handler.InvoiceHandler
	Report   *handler.ReportHandler
	System   *handler.SystemHandler
}

// APIConfig holds the middleware wired around the API routes
type APIConfig struct {
	// Auth authenticates requests; public paths are skipped by its own config
	Auth gin.HandlerFunc
	// AfterAuth runs once claims are known (tracing attributes, profiling labels)
	AfterAuth []gin.HandlerFunc
	// AuthRateLimit guards token and registration endpoints; nil disables it
	AuthRateLimit gin.HandlerFunc
	// RequireAdmin guards admin-only routes; defaults to middleware.RequireAdmin()
	RequireAdmin gin.HandlerFunc
}

// RegisterAPI mounts every API route on engine and returns the configured router
func RegisterAPI(engine *gin.Engine, h Handlers, cfg APIConfig, opts ...RouterOption) *Router {
	r := NewRouter(engine, opts...)
	if cfg.Auth != nil {
		r.Use(cfg.Auth)
	}
	r.Use(cfg.AfterAuth...)

	requireAdmin := cfg.RequireAdmin
	if requireAdmin == nil {
		requireAdmin = middleware.RequireAdmin()
	}

	// public
	authRoutes := NewDomainGroup("auth", "")
	if cfg.AuthRateLimit != nil {
		authRoutes.Use(cfg.AuthRateLimit)
	}
	authRoutes.POST("/token", h.Auth.ObtainToken)
	authRoutes.POST("/token/refresh", h.Auth.RefreshToken)
	authRoutes.POST("/register", h.Auth.Register)

	identityRoutes := NewDomainGroup("identity", "")
	identityRoutes.GET("/me", h.Auth.GetCurrentUser)
	identityRoutes.POST("/logout", h.Auth.Logout)

	userRoutes := NewDomainGroup("identity-admin", "/users").Use(requireAdmin)
	userRoutes.GET("/:id", h.User.GetByID)
	userRoutes.POST("/:id/activate", h.User.Activate)
	userRoutes.POST("/:id/deactivate", h.User.Deactivate)
	userRoutes.PUT("/:id/role", h.User.ChangeRole)

	catalogRoutes := NewDomainGroup("catalog", "/products")
	catalogRoutes.POST("", h.Product.Create)
	catalogRoutes.GET("", h.Product.List)
	catalogRoutes.GET("/:id", h.Product.GetByID)
	catalogRoutes.PUT("/:id", h.Product.Update)
	catalogRoutes.PATCH("/:id", h.Product.Update)
	catalogRoutes.DELETE("/:id", h.Product.Delete)
	catalogRoutes.POST("/:id/enrich", h.Product.Enrich)
	catalogRoutes.POST("/:id/picture", h.Product.RequestPictureUpload)
	catalogRoutes.POST("/:id/picture/confirm", h.Product.ConfirmPictureUpload)

	partnerRoutes := NewDomainGroup("partner", "/customers")
	partnerRoutes.POST("", h.Customer.Create)
	partnerRoutes.GET("", h.Customer.List)
	partnerRoutes.GET("/me", h.Customer.GetMine)
	partnerRoutes.GET("/:id", h.Customer.GetByID)
	partnerRoutes.PUT("/:id", h.Customer.Update)
	partnerRoutes.PATCH("/:id", h.Customer.Update)
	partnerRoutes.DELETE("/:id", h.Customer.Delete)

	tradeRoutes := NewDomainGroup("trade", "/invoices")
	tradeRoutes.POST("", h.Invoice.Create)
	tradeRoutes.GET("", h.Invoice.List)
	tradeRoutes.GET("/:id", h.Invoice.GetByID)
	tradeRoutes.PUT("/:id", h.Invoice.Update)
	tradeRoutes.PATCH("/:id", h.Invoice.Update)
	tradeRoutes.DELETE("/:id", h.Invoice.Delete)
	tradeRoutes.GET("/:id/pdf", h.Invoice.DownloadPDF)

	reportRoutes := NewDomainGroup("report", "/dashboard").Use(requireAdmin)
	reportRoutes.GET("/stats", h.Report.GetDashboardStats)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", h.System.GetSystemInfo)

	r.Register(authRoutes).
		Register(identityRoutes).
		Register(userRoutes).
		Register(catalogRoutes).
		Register(partnerRoutes).
		Register(tradeRoutes).
		Register(reportRoutes).
		Register(systemRoutes)
	r.Setup()

	engine.GET("/health", h.System.Health)
	engine.NoRoute(h.System.NoRoute)

	return r
}
