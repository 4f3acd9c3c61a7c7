package worker

import (
	"context"
	"encoding/json"
	"fmt"
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

const TypeMemberImport = "member:import"

type ImportTaskHandler struct {
	redis   *redis.Client
	cfg     *config.Config
	runs    service.RunStore
	members service.MemberStore
	refs    service.ReferenceStore
	props   service.PropertyStore
}

func NewImportTaskHandler(db *sqlx.DB, redisClient *redis.Client, cfg *config.Config) *ImportTaskHandler {
	return &ImportTaskHandler{
		redis:   redisClient,
		cfg:     cfg,
		runs:    repository.NewRunRepository(db),
		members: repository.NewMemberRepository(db),
		refs:    repository.NewReferenceRepository(db),
		props:   repository.NewPropertyRepository(db),
	}
}

type ImportTaskPayload struct {
	RunID   int    `json:"run_id"`
	RunCode string `json:"run_code"`
}

func (h *ImportTaskHandler) Handle(ctx context.Context, task *asynq.Task) error {
	log := utils.GetLogger()

	var payload ImportTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	run, err := h.runs.GetImportRun(payload.RunID)
	if err != nil {
		return fmt.Errorf("failed to get import run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("import run %d not found", payload.RunID)
	}

	if run.Status == models.RunStatusCanceled {
		log.WithField("run_code", run.RunCode).Info("Import run has been canceled, skipping")
		return nil
	}
	if run.Status != models.RunStatusUploaded {
		log.WithField("run_code", run.RunCode).Infof("Import run is already %s, skipping", run.Status)
		return nil
	}

	run.Status = models.RunStatusProcessing
	if err := h.runs.UpdateImportRun(run); err != nil {
		return fmt.Errorf("failed to mark run processing: %w", err)
	}

	info, err := h.runImport(ctx, run)
	if err != nil {
		if run.Status == models.RunStatusCanceled {
			if info != nil {
				h.applyProgress(run, info)
			}
			if updateErr := h.runs.UpdateImportRun(run); updateErr != nil {
				log.WithError(updateErr).Error("Failed to update import run status")
			}
			log.WithField("run_code", run.RunCode).Info("Import run canceled, stopping")
			return nil
		}
		log.WithError(err).WithField("run_code", run.RunCode).Error("Import run failed")
		run.Status = models.RunStatusFailed
		run.ErrorMessage = err.Error()
		if info != nil {
			h.applyProgress(run, info)
		}
		if updateErr := h.runs.UpdateImportRun(run); updateErr != nil {
			log.WithError(updateErr).Error("Failed to update import run status")
		}
		return err
	}

	h.applyProgress(run, info)
	switch {
	case run.Status == models.RunStatusCanceled:
		// Cancellation arrived after the last page; the user's status wins.
	case info.ErrorCount > 0:
		run.Status = models.RunStatusCompletedWithErrors
	default:
		run.Status = models.RunStatusCompleted
	}
	if err := h.runs.UpdateImportRun(run); err != nil {
		return fmt.Errorf("failed to update import run: %w", err)
	}

	log.WithField("run_code", run.RunCode).
		Infof("Import completed. Created: %d, Updated: %d, Errors: %d",
			info.CreatedCount, info.UpdatedCount, info.ErrorCount)
	return nil
}

func (h *ImportTaskHandler) runImport(ctx context.Context, run *models.ImportRun) (*models.ProgressInfo, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Cancellation requests land in the run row. Reloading at every
	// progress point stops the importer at the next page boundary and
	// keeps progress writes from overwriting the canceled status.
	progress := func(info *models.ProgressInfo) {
		if h.cancelRequested(run) {
			cancel()
			return
		}
		h.publishProgress(ctx, run, info)
	}

	switch run.MemberType {
	case models.MemberTypeContact:
		properties, err := h.props.GetProperties(models.MemberTypeContact)
		if err != nil {
			return nil, err
		}
		source := service.NewImportSource(run.FilePath, service.ContactSchema(properties),
			h.cfg.DelimiterRune(), h.cfg.ImportPageSize)
		defer source.Close()

		reporter, err := h.newReporter(run, source.HeaderLine)
		if err != nil {
			return nil, err
		}

		validator := service.NewContactValidator(h.members, h.refs, h.props, h.cfg)
		importer := service.NewContactImporter(h.members, validator, utils.GetLogger())
		return importer.Import(ctx, source, reporter, run.ParentOrganizationID, progress)

	case models.MemberTypeOrganization:
		properties, err := h.props.GetProperties(models.MemberTypeOrganization)
		if err != nil {
			return nil, err
		}
		source := service.NewImportSource(run.FilePath, service.OrganizationSchema(properties),
			h.cfg.DelimiterRune(), h.cfg.ImportPageSize)
		defer source.Close()

		reporter, err := h.newReporter(run, source.HeaderLine)
		if err != nil {
			return nil, err
		}

		validator := service.NewOrganizationValidator(h.refs, h.props, h.cfg)
		importer := service.NewOrganizationImporter(h.members, validator, utils.GetLogger())
		return importer.Import(ctx, source, reporter, run.ParentOrganizationID, progress)

	default:
		return nil, service.ErrUnknownMemberType
	}
}

func (h *ImportTaskHandler) newReporter(run *models.ImportRun, headerLine func() (string, error)) (*service.ReportWriter, error) {
	header, err := headerLine()
	if err != nil {
		return nil, fmt.Errorf("failed to read source header: %w", err)
	}
	return service.NewReportWriter(run.FilePath, h.cfg.DelimiterRune(), header), nil
}

func (h *ImportTaskHandler) applyProgress(run *models.ImportRun, info *models.ProgressInfo) {
	run.TotalRows = info.TotalCount
	run.ProcessedRows = info.ProcessedCount
	run.CreatedRows = info.CreatedCount
	run.UpdatedRows = info.UpdatedCount
	run.ErrorRows = info.ErrorCount
	run.ReportPath = info.ReportURL
}

// cancelRequested reloads the run and reports whether the user canceled it
// since pickup. The canceled status is copied onto the in-memory run so
// later updates do not overwrite it.
func (h *ImportTaskHandler) cancelRequested(run *models.ImportRun) bool {
	current, err := h.runs.GetImportRun(run.ID)
	if err != nil || current == nil {
		return false
	}
	if current.Status != models.RunStatusCanceled {
		return false
	}
	run.Status = models.RunStatusCanceled
	return true
}

// progressSnapshot copies the progress info for publication, replacing the
// report's filesystem path with its download URL.
func (h *ImportTaskHandler) progressSnapshot(run *models.ImportRun, info *models.ProgressInfo) models.ProgressInfo {
	snapshot := *info
	if snapshot.ReportURL != "" {
		snapshot.ReportURL = fmt.Sprintf("%s/api/v1/imports/%s/report",
			strings.TrimRight(h.cfg.AppURL, "/"), run.RunCode)
	}
	return snapshot
}

// publishProgress persists run counters and mirrors the progress snapshot
// into Redis so the API can serve status polls without hitting the database.
func (h *ImportTaskHandler) publishProgress(ctx context.Context, run *models.ImportRun, info *models.ProgressInfo) {
	log := utils.GetLogger()

	h.applyProgress(run, info)
	if err := h.runs.UpdateImportRun(run); err != nil {
		log.WithError(err).Error("Failed to persist import progress")
	}

	snapshot, err := json.Marshal(h.progressSnapshot(run, info))
	if err != nil {
		log.WithError(err).Error("Failed to marshal import progress")
		return
	}

	key := fmt.Sprintf("import:progress:%s", run.RunCode)
	if err := h.redis.Set(ctx, key, snapshot, 24*time.Hour).Err(); err != nil {
		log.WithError(err).Error("Failed to publish import progress")
	}
}
