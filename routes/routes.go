package routes

import (
	"database/sql"

	"github.com/LovationAdmin/feeding-api/handlers"
	"github.com/LovationAdmin/feeding-api/middleware"
	"github.com/LovationAdmin/feeding-api/permissions"
	"github.com/LovationAdmin/feeding-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deps carries what the route groups share.
type Deps struct {
	DB            *sql.DB
	JWTSecret     []byte
	EncryptionKey []byte
	Notifier      handlers.Notifier
	Logger        *zap.Logger

	// Roles resolves caller roles for capability checks. Defaults to the
	// user_groups table.
	Roles middleware.RoleLookup
}

// Setup registers every /api route on rg. All of them require a valid token.
func Setup(rg *gin.RouterGroup, d Deps) {
	users := services.NewUserService(d.DB)
	roles := d.Roles
	if roles == nil {
		roles = users
	}

	api := rg.Group("/")
	api.Use(middleware.AuthMiddleware(d.JWTSecret))
	{
		SetupEntityRoutes(api, d, roles)
		SetupSyncRoutes(api, d, roles)
		SetupStatsRoutes(api, d)
		SetupAuthRoutes(api, d, users)
	}
}

// SetupEntityRoutes registers CRUD routes for beneficiaries, funds and
// transactions, each gated by its capability.
func SetupEntityRoutes(rg *gin.RouterGroup, d Deps, roles middleware.RoleLookup) {
	beneficiaries := handlers.NewBeneficiaryHandler(services.NewBeneficiaryService(d.DB), d.Notifier, d.Logger)
	b := rg.Group("/beneficiaries", middleware.RequireCapability(permissions.ResourceBeneficiaries, roles, d.Logger))
	b.GET("/", beneficiaries.List)
	b.POST("/", beneficiaries.Create)
	b.GET("/:id/", beneficiaries.Get)
	b.PUT("/:id/", beneficiaries.Update)
	b.DELETE("/:id/", beneficiaries.Delete)

	funds := handlers.NewFundHandler(services.NewFundService(d.DB), d.Notifier, d.Logger)
	f := rg.Group("/funds", middleware.RequireCapability(permissions.ResourceFunds, roles, d.Logger))
	f.GET("/", funds.List)
	f.POST("/", funds.Create)
	f.GET("/:id/", funds.Get)
	f.PUT("/:id/", funds.Update)
	f.DELETE("/:id/", funds.Delete)

	transactions := handlers.NewTransactionHandler(services.NewTransactionService(d.DB), d.Notifier, d.Logger)
	t := rg.Group("/transactions", middleware.RequireCapability(permissions.ResourceTransactions, roles, d.Logger))
	t.GET("/", transactions.List)
	t.POST("/", transactions.Create)
	t.GET("/:id/", transactions.Get)
	t.PUT("/:id/", transactions.Update)
	t.DELETE("/:id/", transactions.Delete)
}

// SetupSyncRoutes registers the offline sync endpoint and its audit trail.
func SetupSyncRoutes(rg *gin.RouterGroup, d Deps, roles middleware.RoleLookup) {
	audit := services.NewAuditService(d.DB, d.EncryptionKey)
	h := handlers.NewSyncHandler(services.NewSyncService(d.DB, audit, d.Logger), audit, d.Notifier, d.Logger)

	rg.POST("/sync/", middleware.RequireCapability(permissions.ResourceSync, roles, d.Logger), h.Sync)
	rg.GET("/sync/audit/", middleware.RequireCapability(permissions.ResourceSyncAudit, roles, d.Logger), h.Audit)
}

// SetupStatsRoutes registers the aggregates. Any authenticated caller may
// read them.
func SetupStatsRoutes(rg *gin.RouterGroup, d Deps) {
	h := handlers.NewStatsHandler(services.NewStatsService(d.DB), d.Logger)

	rg.GET("/stats/", h.Stats)
	rg.GET("/reports/", h.Report)
}

// SetupAuthRoutes registers the caller's own profile routes.
func SetupAuthRoutes(rg *gin.RouterGroup, d Deps, users *services.UserService) {
	auth := handlers.NewAuthHandler(users, d.Logger)
	profile := handlers.NewUserHandler(users, d.Logger)

	rg.GET("/auth/verify/", auth.Verify)
	rg.GET("/auth/profile/", profile.GetProfile)
	rg.PUT("/auth/profile/", profile.UpdateProfile)
	rg.POST("/auth/password/", profile.ChangePassword)
}
