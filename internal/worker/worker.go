package worker

import (
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"customer-web/internal/config"
)

func RegisterHandlers(mux *asynq.ServeMux, db *sqlx.DB, redisClient *redis.Client, cfg *config.Config) {
	importHandler := NewImportTaskHandler(db, redisClient, cfg)
	exportHandler := NewExportTaskHandler(db, redisClient, cfg)

	mux.HandleFunc(TypeMemberImport, importHandler.Handle)
	mux.HandleFunc(TypeMemberExport, exportHandler.Handle)
}
