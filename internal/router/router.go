package router

import (
	"goldledger/internal/app"
	"goldledger/internal/handler"
	"goldledger/internal/middleware"
	"goldledger/internal/model"

	"github.com/gin-gonic/gin"
)

// New returns a configured Gin engine over the wired application.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(a *app.App) (*gin.Engine, error) {
	cfg := a.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	apiLimiter, err := middleware.RateLimiter(cfg.RateLimit, "api", a.RDB)
	if err != nil {
		return nil, err
	}
	loginLimiter, err := middleware.RateLimiter("10-M", "login", a.RDB)
	if err != nil {
		return nil, err
	}
	corsMW, err := middleware.CORS(cfg.IsProduction(), cfg.CORSAllowedOrigins)
	if err != nil {
		return nil, err
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(corsMW)
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(a.Auth)
	usersH := handler.NewUsersHandler(a.Auth)
	ledgerH := handler.NewLedgerHandler(a.Ledger, a.Validator)
	conversionsH := handler.NewConversionsHandler(a.Conversions)
	consolidationsH := handler.NewConsolidationsHandler(a.Consolidation)
	costingH := handler.NewCostingHandler(a.Costing)
	alertsH := handler.NewAlertsHandler(a.Validator, a.LowOwnershipThreshold)
	suppliersH := handler.NewSuppliersHandler(a.Suppliers, a.Credit)
	productsH := handler.NewProductsHandler(a.Products)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(a.DB, a.RDB, a.MailCB))

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", loginLimiter, authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	anyRole := middleware.RequireRole(model.RoleClerk, model.RoleManager, model.RoleAdmin)
	managers := middleware.RequireRole(model.RoleManager, model.RoleAdmin)
	admins := middleware.RequireRole(model.RoleAdmin)

	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		lots := v1.Group("/lots", anyRole)
		{
			lots.GET("", ledgerH.ListLots)
			lots.GET("/:id", ledgerH.GetLot)
			lots.GET("/:id/movements", ledgerH.ListMovements)
			lots.GET("/:id/replay", managers, ledgerH.Replay)
		}

		// Clerks record stock in and out; settlements and corrections need a manager.
		v1.POST("/receipts", anyRole, ledgerH.Receipt)
		v1.POST("/sales", anyRole, ledgerH.Sale)
		v1.POST("/sales/validate", anyRole, ledgerH.ValidateSale)
		v1.POST("/payments", managers, ledgerH.Payment)
		v1.POST("/waivers", managers, ledgerH.Waiver)
		v1.POST("/adjustments", managers, ledgerH.Adjustment)

		conv := v1.Group("/conversions", anyRole)
		{
			conv.POST("", managers, conversionsH.Convert)
			conv.GET("/preview", conversionsH.Preview)
			conv.GET("/:id", conversionsH.Get)
		}

		cons := v1.Group("/consolidations", managers)
		{
			cons.POST("", consolidationsH.Consolidate)
			cons.GET("/:id", consolidationsH.Get)
		}

		v1.GET("/costing/quote", anyRole, costingH.Quote)

		alerts := v1.Group("/alerts", managers)
		{
			alerts.GET("/low-ownership", alertsH.LowOwnership)
			alerts.GET("/outstanding-payments", alertsH.OutstandingPayments)
		}

		v1.GET("/suppliers", anyRole, suppliersH.List)
		v1.GET("/suppliers/:id", anyRole, suppliersH.GetByID)
		v1.GET("/suppliers/:id/credit", anyRole, suppliersH.Credit)
		sup := v1.Group("/suppliers", admins)
		{
			sup.POST("", suppliersH.Create)
			sup.PUT("/:id", suppliersH.Update)
			sup.DELETE("/:id", suppliersH.Deactivate)
		}

		v1.GET("/products", anyRole, productsH.List)
		v1.GET("/products/:id", anyRole, productsH.GetByID)
		v1.POST("/products", admins, productsH.Create)

		users := v1.Group("/users", admins)
		{
			users.POST("", usersH.Create)
			users.GET("", usersH.List)
		}
	}

	return r, nil
}
