package router

import (
	"customer-web/internal/config"
	"customer-web/internal/handler"
	"customer-web/internal/repository"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func SetupAPIRoutes(
	router fiber.Router,
	db *sqlx.DB,
	redis *redis.Client,
	cfg *config.Config,
) {
	// Initialize repositories
	runRepo := repository.NewRunRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)

	// Initialize Asynq client (optional - only if Redis is available)
	var asynqClient *asynq.Client
	if redis != nil {
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
	}

	// Initialize handlers
	importHandler := handler.NewImportHandler(runRepo, propertyRepo, asynqClient, redis, cfg)
	exportHandler := handler.NewExportHandler(runRepo, asynqClient, redis, cfg)

	// Import routes
	imports := router.Group("/imports")
	imports.Post("/", importHandler.UploadFile)
	imports.Get("/", importHandler.GetRuns)
	imports.Get("/template", importHandler.DownloadTemplate)
	imports.Get("/:id", importHandler.GetRun)
	imports.Get("/:id/progress", importHandler.GetProgress)
	imports.Post("/:id/validate", importHandler.ValidateFile)
	imports.Post("/:id/start", importHandler.StartImport)
	imports.Post("/:id/cancel", importHandler.CancelRun)
	imports.Get("/:id/report", importHandler.DownloadReport)

	// Export routes
	exports := router.Group("/exports")
	exports.Post("/", exportHandler.StartExport)
	exports.Get("/:code", exportHandler.GetRun)
	exports.Get("/:code/download", exportHandler.DownloadFile)
}
