package handlers

import (
	"context"
	"net/http"
	"time"

	"homecare_manager/internal/logger"
	"homecare_manager/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether one dependency is reachable.
type HealthCheck func(ctx context.Context) error

// NewRouter wires every route. Public routes come first; the rest require a
// bearer token, and most also require an active account or the admin role.
func NewRouter(
	api *APIHandler,
	wa *WhatsAppHandler,
	auth services.AuthService,
	checks map[string]HealthCheck,
	log logger.Logger,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(log))

	router.GET("/health", healthHandler(checks))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	public := router.Group("/api")
	{
		public.POST("/auth/login", api.Login)
		public.POST("/workers/register", api.RegisterWorker)
	}

	authed := router.Group("/api", Authenticate(auth, log))
	{
		authed.GET("/me", api.Me)
		authed.PUT("/me/password", api.ChangePassword)
	}

	active := authed.Group("", RequireActive(auth, log))
	{
		active.PUT("/me/profile", api.UpdateMyProfile)
		active.GET("/me/services", api.MyServices)
		active.GET("/me/services/:id", api.MyService)
		active.GET("/me/visits", api.MyVisits)
		active.GET("/me/payments", api.MyPayments)
		active.POST("/visits/:id/complete", api.CompleteVisit)
	}

	admin := authed.Group("", RequireAdmin(auth, log))
	{
		admin.GET("/admins", api.ListAdmins)
		admin.POST("/admins", api.PromoteAdmin)
		admin.DELETE("/admins/:id", api.DemoteAdmin)

		admin.GET("/catalog", api.ListCatalog)
		admin.POST("/catalog", api.CreateCatalogEntry)
		admin.PUT("/catalog/:id", api.UpdateCatalogEntry)
		admin.PUT("/catalog/:id/active", api.SetCatalogEntryActive)
		admin.DELETE("/catalog/:id", api.DeleteCatalogEntry)

		admin.GET("/workers", api.ListWorkers)
		admin.GET("/workers/stats", api.WorkerStats)
		admin.GET("/workers/:id", api.GetWorker)
		admin.PUT("/workers/:id", api.UpdateWorker)
		admin.PUT("/workers/:id/approval", api.SetWorkerApproval)

		admin.GET("/clients", api.ListClients)
		admin.POST("/clients", api.CreateClient)
		admin.GET("/clients/:id", api.GetClient)
		admin.PUT("/clients/:id", api.UpdateClient)
		admin.DELETE("/clients/:id", api.DeleteClient)

		admin.POST("/services", api.CreateService)
		admin.GET("/services", api.ListServices)
		admin.GET("/services/:id", api.GetService)
		admin.PUT("/services/:id/state", api.SetServiceState)
		admin.DELETE("/services/:id", api.DeleteService)
		admin.GET("/services/:id/progress", api.ServiceProgress)
		admin.GET("/services/:id/visits", api.ListServiceVisits)
		admin.POST("/services/:id/repair", api.RepairService)
		admin.POST("/services/:id/notify", wa.NotifyAssignment)

		admin.POST("/visits/:id/cancel", api.CancelVisit)
		admin.PUT("/visits/:id/paid", api.SetVisitPaid)

		admin.POST("/finance/income", api.RecordIncome)
		admin.GET("/finance/income", api.ListIncome)
		admin.POST("/finance/expenses", api.RecordExpense)
		admin.GET("/finance/expenses", api.ListExpenses)
		admin.POST("/finance/payments", api.RegisterPayment)
		admin.GET("/finance/payments", api.ListPayments)
		admin.GET("/finance/summary", api.Summary)
		admin.POST("/finance/backfill", api.BackfillIncome)

		admin.GET("/export/:sheet", api.Export)

		admin.POST("/whatsapp/send-message", wa.SendMessage)
	}

	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}
		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}
		c.JSON(status, gin.H{"status": overall, "checks": results})
	}
}
