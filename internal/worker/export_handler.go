package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"customer-web/internal/config"
	"customer-web/internal/models"
	"customer-web/internal/repository"
	"customer-web/internal/service"
	"customer-web/internal/utils"
)

const TypeMemberExport = "member:export"

type ExportTaskHandler struct {
	redis *redis.Client
	cfg   *config.Config
	runs  service.RunStore

	exporter *service.Exporter
}

func NewExportTaskHandler(db *sqlx.DB, redisClient *redis.Client, cfg *config.Config) *ExportTaskHandler {
	members := repository.NewMemberRepository(db)
	props := repository.NewPropertyRepository(db)

	return &ExportTaskHandler{
		redis:    redisClient,
		cfg:      cfg,
		runs:     repository.NewRunRepository(db),
		exporter: service.NewExporter(members, props, cfg, utils.GetLogger()),
	}
}

type ExportTaskPayload struct {
	RunID   int    `json:"run_id"`
	RunCode string `json:"run_code"`
}

func (h *ExportTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	log := utils.GetLogger()

	var payload ExportTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	run, err := h.runs.GetExportRunByCode(payload.RunCode)
	if err != nil {
		return fmt.Errorf("failed to get export run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("export run %s not found", payload.RunCode)
	}

	if run.Status == models.RunStatusCanceled {
		log.WithField("run_code", run.RunCode).Info("Export run has been canceled, skipping")
		return nil
	}

	run.Status = models.RunStatusProcessing
	if err := h.runs.UpdateExportRun(run); err != nil {
		return fmt.Errorf("failed to mark run processing: %w", err)
	}

	req := service.ExportRequest{
		MemberType:     run.MemberType,
		Keyword:        run.Keyword,
		ObjectIDs:      run.ObjectIDs,
		OrganizationID: run.OrganizationID,
	}

	progress := func(info *models.ProgressInfo) {
		h.publishProgress(ctx, run, info)
	}

	info, err := h.exporter.Export(ctx, run.RunCode, req, progress)
	if err != nil {
		log.WithError(err).WithField("run_code", run.RunCode).Error("Export run failed")
		run.Status = models.RunStatusFailed
		run.ErrorMessage = err.Error()
		if updateErr := h.runs.UpdateExportRun(run); updateErr != nil {
			log.WithError(updateErr).Error("Failed to update export run status")
		}
		return err
	}

	run.TotalRows = info.TotalCount
	run.ProcessedRows = info.ProcessedCount
	run.FilePaths = info.FileURLs
	run.Status = models.RunStatusCompleted
	if err := h.runs.UpdateExportRun(run); err != nil {
		return fmt.Errorf("failed to update export run: %w", err)
	}

	log.WithField("run_code", run.RunCode).
		Infof("Export completed. Rows: %d, Files: %d", info.ProcessedCount, len(info.FileURLs))
	return nil
}

// progressSnapshot copies the progress info for publication, replacing the
// produced files' filesystem paths with their download URLs.
func (h *ExportTaskHandler) progressSnapshot(run *models.ExportRun, info *models.ProgressInfo) models.ProgressInfo {
	snapshot := *info
	if len(info.FileURLs) > 0 {
		base := strings.TrimRight(h.cfg.AppURL, "/")
		urls := make([]string, len(info.FileURLs))
		for i, path := range info.FileURLs {
			urls[i] = fmt.Sprintf("%s/api/v1/exports/%s/download?file=%s",
				base, run.RunCode, filepath.Base(path))
		}
		snapshot.FileURLs = urls
	}
	return snapshot
}

func (h *ExportTaskHandler) publishProgress(ctx context.Context, run *models.ExportRun, info *models.ProgressInfo) {
	log := utils.GetLogger()

	run.TotalRows = info.TotalCount
	run.ProcessedRows = info.ProcessedCount
	run.FilePaths = info.FileURLs
	if err := h.runs.UpdateExportRun(run); err != nil {
		log.WithError(err).Error("Failed to persist export progress")
	}

	snapshot, err := json.Marshal(h.progressSnapshot(run, info))
	if err != nil {
		log.WithError(err).Error("Failed to marshal export progress")
		return
	}

	key := fmt.Sprintf("export:progress:%s", run.RunCode)
	if err := h.redis.Set(ctx, key, snapshot, 24*time.Hour).Err(); err != nil {
		log.WithError(err).Error("Failed to publish export progress")
	}
}
