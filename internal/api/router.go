package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/ar-system/discrepancy-service/internal/handlers"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Auth          *service.AuthService
	Customers     *service.CustomerService
	Discrepancies *service.DiscrepancyService
	Email         *service.EmailService
	Imports       *service.ImportService
	Tasks         *service.TaskService
	Dashboard     *service.DashboardService
}

type Options struct {
	MaxUploadBytes int64
}

func NewRouter(s Services, opts Options) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	handlers.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())
	r.Use(handlers.ErrorHandler())
	r.MaxMultipartMemory = opts.MaxUploadBytes

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": telemetry.ServiceName})
	})

	authHandler := handlers.NewAuthHandler(s.Auth)
	discrepancyHandler := handlers.NewDiscrepancyHandler(s.Discrepancies)
	customerHandler := handlers.NewCustomerHandler(s.Customers)
	emailHandler := handlers.NewEmailHandler(s.Email, s.Discrepancies)
	importHandler := handlers.NewImportHandler(s.Imports, opts.MaxUploadBytes)
	taskHandler := handlers.NewTaskHandler(s.Tasks, s.Dashboard)

	apiGroup := r.Group("/api")

	// Public auth routes
	apiGroup.POST("/auth/register", authHandler.Register)
	apiGroup.POST("/auth/login", authHandler.Login)

	protected := apiGroup.Group("")
	protected.Use(handlers.Authenticate(s.Auth))
	privileged := handlers.Authorize(models.RoleAdmin, models.RoleManager)

	auth := protected.Group("/auth")
	auth.GET("/profile", authHandler.Profile)
	auth.PUT("/profile", authHandler.UpdateProfile)
	auth.PUT("/change-password", authHandler.ChangePassword)

	discrepancies := protected.Group("/discrepancies")
	discrepancies.GET("", discrepancyHandler.List)
	discrepancies.GET("/statistics", discrepancyHandler.Statistics)
	discrepancies.GET("/:id", discrepancyHandler.Get)
	discrepancies.POST("", discrepancyHandler.Create)
	discrepancies.PUT("/:id", discrepancyHandler.Update)
	discrepancies.DELETE("/:id", privileged, discrepancyHandler.Delete)
	discrepancies.POST("/:id/send-email", discrepancyHandler.SendEmail)

	customers := protected.Group("/customers")
	customers.GET("", customerHandler.List)
	customers.GET("/search", customerHandler.Search)
	customers.GET("/:id", customerHandler.Get)
	customers.POST("", customerHandler.Create)
	customers.PUT("/:id", customerHandler.Update)
	customers.DELETE("/:id", privileged, customerHandler.Delete)

	email := protected.Group("/email")
	email.GET("/settings", emailHandler.GetSettings)
	email.PUT("/settings", privileged, emailHandler.SaveSettings)
	email.POST("/test-connection", emailHandler.TestConnection)
	email.POST("/send-test", emailHandler.SendTest)
	email.POST("/send-discrepancy", emailHandler.SendDiscrepancy)
	email.GET("/logs", emailHandler.Logs)
	email.GET("/templates", emailHandler.Templates)
	email.POST("/templates", emailHandler.CreateTemplate)
	email.PUT("/templates/:id", emailHandler.UpdateTemplate)
	email.DELETE("/templates/:id", privileged, emailHandler.DeleteTemplate)

	dataImport := protected.Group("/data-import")
	dataImport.POST("/excel/analyze", importHandler.Analyze)
	dataImport.POST("/excel/import", importHandler.Import)
	dataImport.POST("/validate", importHandler.Validate)
	dataImport.GET("/history", importHandler.History)

	// Older clients post to these.
	legacyImport := protected.Group("/import")
	legacyImport.POST("/analyze", importHandler.Analyze)
	legacyImport.POST("/execute", importHandler.Import)

	protected.GET("/tasks", taskHandler.List)
	protected.PUT("/tasks/:id", taskHandler.Update)
	protected.GET("/dashboard/stats", taskHandler.DashboardStats)

	return r
}
