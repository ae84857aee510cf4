package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/quoteflow-api/internal/config"
	"github.com/sangkips/quoteflow-api/internal/domain/entity"
	domainRepo "github.com/sangkips/quoteflow-api/internal/domain/repository"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/handler"
	"github.com/sangkips/quoteflow-api/internal/presentation/http/middleware"
	"github.com/sangkips/quoteflow-api/internal/presentation/websocket"
	"github.com/sangkips/quoteflow-api/pkg/utils"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Session   *handler.SessionHandler
	Quotation *handler.QuotationHandler
	Catalog   *handler.CatalogHandler
	Customer  *handler.CustomerHandler
	Settings  *handler.SettingsHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	IdempotencyRepo domainRepo.IdempotencyRepository
	RateLimiter     *middleware.UserRateLimiter
	Hub             *websocket.Hub
	Logger          *zap.Logger
	// ActiveSessions reports the open session count on /health
	ActiveSessions func() int
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		}
		if deps.ActiveSessions != nil {
			body["sessions"] = deps.ActiveSessions()
		}
		if deps.Hub != nil {
			body["subscribers"] = deps.Hub.Clients()
		}
		c.JSON(200, body)
	})

	v1 := router.Group("/api/v1")
	{
		// The websocket authenticates itself since browsers cannot set headers on upgrade
		if deps.Hub != nil {
			v1.GET("/ws", websocket.ServeWs(deps.Hub, deps.JWTManager))
		}

		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(deps.JWTManager))
		if deps.RateLimiter != nil {
			protected.Use(deps.RateLimiter.Middleware())
		}

		registerProtectedRoutes(protected, h, deps)
	}

	return router
}

func registerProtectedRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	// Settings
	protected.GET("/settings", h.Settings.GetSettings)
	protected.PUT("/settings", h.Settings.UpdateSettings)

	// Editing sessions
	registerSessionRoutes(protected, h, deps)

	// Saved quotations
	registerQuotationRoutes(protected, h)

	// Catalog
	registerCatalogRoutes(protected, h)

	// Customers
	registerCustomerRoutes(protected, h)
}

func registerSessionRoutes(protected *gin.RouterGroup, h *Handlers, deps *Deps) {
	sessions := protected.Group("/sessions")
	if deps.IdempotencyRepo != nil {
		sessions.Use(middleware.Idempotency(middleware.IdempotencyConfig{
			Repo:   deps.IdempotencyRepo,
			TTL:    deps.Cfg.Session.IdempotencyTTL,
			Logger: deps.Logger,
		}))
	}

	s := h.Session
	{
		sessions.POST("", s.Open)
		sessions.GET("/:id", s.Get)
		sessions.DELETE("/:id", s.Close)

		// Browsing
		sessions.POST("/:id/catalog", s.LoadCatalog)
		sessions.PUT("/:id/filters/category", s.SetCategory)
		sessions.PUT("/:id/filters/facet", s.SetFacet)
		sessions.DELETE("/:id/filters", s.ClearFilters)
		sessions.PUT("/:id/search", s.SetSearch)
		sessions.PUT("/:id/page", s.GoToPage)
		sessions.PUT("/:id/limit", s.SetLimit)

		// Cart
		sessions.POST("/:id/items", s.Select)
		sessions.PATCH("/:id/items/:itemId", s.UpdateQuantity)
		sessions.DELETE("/:id/items/:itemId", s.Deselect)

		// Pricing currency
		sessions.POST("/:id/currency", s.RequestCurrencyChange)
		sessions.POST("/:id/currency/confirm", s.ConfirmPending)
		sessions.POST("/:id/currency/cancel", s.CancelPending)
		sessions.POST("/:id/refresh", s.RequestRefresh)

		// Discount
		sessions.PUT("/:id/discount", s.SetDiscount)
		sessions.POST("/:id/discount/save", s.SaveDiscount)

		// Quotation workflow
		sessions.POST("/:id/save", s.Save)
		sessions.POST("/:id/transitions", s.Transition)
		for action, handle := range s.Actions() {
			sessions.POST("/:id/"+action, handle)
		}
		sessions.DELETE("/:id/quotation", s.DeleteQuotation)
		sessions.POST("/:id/invoice", s.CreateInvoice)
	}
}

func registerQuotationRoutes(protected *gin.RouterGroup, h *Handlers) {
	quotations := protected.Group("/quotations")
	{
		quotations.GET("", h.Quotation.List)
		quotations.GET("/:id", h.Quotation.Get)
		quotations.GET("/:id/history", h.Quotation.History)
	}
}

func registerCatalogRoutes(protected *gin.RouterGroup, h *Handlers) {
	catalog := protected.Group("/catalog")
	{
		catalog.GET("/products", h.Catalog.Products)
		catalog.GET("/currencies", h.Catalog.Currencies)
		catalog.PUT("/currencies/:code", middleware.RequireRole(entity.RoleAdmin, entity.RoleSuperAdmin), h.Catalog.UpsertCurrency)
	}
}

func registerCustomerRoutes(protected *gin.RouterGroup, h *Handlers) {
	customers := protected.Group("/customers")
	{
		customers.GET("", h.Customer.List)
		customers.POST("", h.Customer.Create)
		customers.GET("/:id", h.Customer.Get)
	}
}
