package routes

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"invoice-manager-backend/internal/config"
	handler "invoice-manager-backend/internal/handlers"
	"invoice-manager-backend/internal/mail"
	"invoice-manager-backend/internal/middleware"
	"invoice-manager-backend/internal/repository"
	"invoice-manager-backend/internal/services/delivery"
	"invoice-manager-backend/internal/services/intake"
	"invoice-manager-backend/internal/services/maintenance"
	"invoice-manager-backend/internal/services/storage"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) {
	mailer := mail.NewSMTPMailer(
		cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass,
		cfg.MailFrom, cfg.ShopName, cfg.ShopURL,
	)
	RegisterRoutesWithMailer(r, db, cfg, mailer)
}

// RegisterRoutesWithMailer lets tests swap the mail transport.
func RegisterRoutesWithMailer(r *gin.Engine, db *gorm.DB, cfg *config.Config, mailer mail.Mailer) {
	invoiceRepo := repository.NewInvoiceRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	storeService := storage.NewService(cfg.UploadDir)
	validator := intake.NewValidator(cfg.UploadTempDir)
	intakeService := intake.NewService(validator, storeService, invoiceRepo, auditRepo)

	deliveryService := delivery.NewService(invoiceRepo, orderRepo, auditRepo, mailer)
	maintenanceService := maintenance.NewService(invoiceRepo, auditRepo)

	csrf := middleware.NewCSRF(cfg.CSRFSecret)
	invoiceHandler := handler.NewInvoiceHandler(
		intakeService, deliveryService, maintenanceService,
		invoiceRepo, orderRepo, csrf, cfg.UploadTempDir,
	)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	authed := api.Group("")
	authed.Use(middleware.Auth(cfg.JWTSecret))

	authed.GET("/csrf/:action", invoiceHandler.CSRFToken)

	// Admin action family
	admin := authed.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	{
		admin.POST("/invoices/upload",
			handler.LimitBody(intake.MaxFileSize+1<<20),
			csrf.Require(handler.ActionUploadInvoice),
			invoiceHandler.Upload)
		admin.POST("/invoices/:id/send", csrf.Require(handler.ActionSendInvoice), invoiceHandler.Send)
		admin.DELETE("/invoices/:id", csrf.Require(handler.ActionDeleteInvoice), invoiceHandler.Delete)
		admin.GET("/invoices", invoiceHandler.ListRecent)
		admin.GET("/orders/:id", csrf.Require(handler.ActionGetOrderDetails), invoiceHandler.OrderDetails)
		admin.POST("/maintenance/cleanup", csrf.Require(handler.ActionCleanupInvoices), invoiceHandler.Cleanup)
	}

	// Customer account routes
	my := authed.Group("/my")
	{
		my.GET("/invoices", invoiceHandler.ListMine)
		my.GET("/invoices/:id/download", invoiceHandler.Download)
	}
}
