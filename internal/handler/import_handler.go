package handler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"customer-web/internal/config"
	"customer-web/internal/models"
	"customer-web/internal/service"
	"customer-web/internal/utils"
)

type ImportHandler struct {
	runStore        service.RunStore
	fileValidator   *service.FileValidator
	templateService *service.TemplateService
	asynqClient     *asynq.Client
	redis           *redis.Client
	cfg             *config.Config
}

func NewImportHandler(
	runStore service.RunStore,
	propertyStore service.PropertyStore,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	cfg *config.Config,
) *ImportHandler {
	return &ImportHandler{
		runStore:        runStore,
		fileValidator:   service.NewFileValidator(cfg),
		templateService: service.NewTemplateService(propertyStore),
		asynqClient:     asynqClient,
		redis:           redisClient,
		cfg:             cfg,
	}
}

// UploadFile accepts a delimited member file and registers an import run in
// the uploaded state. Processing starts only on an explicit start request.
func (h *ImportHandler) UploadFile(c *fiber.Ctx) error {
	memberType, err := parseMemberType(c.FormValue("member_type"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown member type", err)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}

	ext := filepath.Ext(file.Filename)
	if !strings.EqualFold(ext, ".csv") && !strings.EqualFold(ext, ".txt") {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Only delimited files (.csv, .txt) are allowed", nil)
	}

	if file.Size > h.cfg.UploadMaxSizeBytes() {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File size exceeds maximum limit", nil)
	}

	runCode := fmt.Sprintf("IMPORT-%s", uuid.New().String()[:8])

	if err := os.MkdirAll(h.cfg.UploadPath, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare upload directory", err)
	}

	filePath := filepath.Join(h.cfg.UploadPath, fmt.Sprintf("%s%s", runCode, ext))
	if err := c.SaveFile(file, filePath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to save file", err)
	}

	run := &models.ImportRun{
		RunCode:              runCode,
		MemberType:           memberType,
		Filename:             file.Filename,
		FilePath:             filePath,
		ParentOrganizationID: c.FormValue("parent_organization_id"),
		Status:               models.RunStatusUploaded,
	}

	if err := h.runStore.CreateImportRun(run); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create import run", err)
	}

	return utils.SuccessResponse(c, "File uploaded successfully", run)
}

// ValidateFile checks the uploaded file against the structural rules and
// returns the findings without starting the import.
func (h *ImportHandler) ValidateFile(c *fiber.Ctx) error {
	run, errResp := h.findRun(c)
	if run == nil {
		return errResp
	}

	fileErrors, err := h.fileValidator.Validate(run.FilePath, run.MemberType)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to validate file", err)
	}

	return utils.SuccessResponse(c, "File validated", fiber.Map{
		"run_code": run.RunCode,
		"valid":    len(fileErrors) == 0,
		"errors":   fileErrors,
	})
}

// StartImport queues the background import task for an uploaded run.
func (h *ImportHandler) StartImport(c *fiber.Ctx) error {
	run, errResp := h.findRun(c)
	if run == nil {
		return errResp
	}

	if run.Status != models.RunStatusUploaded {
		return utils.ErrorResponse(c, fiber.StatusBadRequest,
			fmt.Sprintf("Import run is already %s", run.Status), nil)
	}

	fileErrors, err := h.fileValidator.Validate(run.FilePath, run.MemberType)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to validate file", err)
	}
	if len(fileErrors) > 0 {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File did not pass validation", nil)
	}

	if h.asynqClient == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background job processing is not available (Redis not connected)", nil)
	}

	payload, _ := json.Marshal(fiber.Map{
		"run_id":   run.ID,
		"run_code": run.RunCode,
	})

	task := asynq.NewTask("member:import", payload)
	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to queue import task", err)
	}

	return utils.SuccessResponse(c, "Import started", fiber.Map{
		"job_id": info.ID,
		"run":    run,
	})
}

func (h *ImportHandler) GetRuns(c *fiber.Ctx) error {
	params := utils.GetPaginationParams(c)
	offset := utils.GetOffset(params.Page, params.Limit)

	runs, total, err := h.runStore.ListImportRuns(offset, params.Limit)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve import runs", err)
	}

	pagination := utils.CalculatePagination(params.Page, params.Limit, int64(total))

	responseData := fiber.Map{
		"runs":       runs,
		"pagination": pagination,
	}

	return utils.PaginatedResponseBuilder(c, "Import runs retrieved successfully", responseData, pagination)
}

func (h *ImportHandler) GetRun(c *fiber.Ctx) error {
	run, errResp := h.findRun(c)
	if run == nil {
		return errResp
	}
	return utils.SuccessResponse(c, "Import run retrieved successfully", run)
}

// GetProgress serves the latest progress snapshot published by the worker.
// Falls back to the persisted run counters when no snapshot exists yet.
func (h *ImportHandler) GetProgress(c *fiber.Ctx) error {
	run, errResp := h.findRun(c)
	if run == nil {
		return errResp
	}

	key := fmt.Sprintf("import:progress:%s", run.RunCode)
	snapshot, err := h.redis.Get(c.Context(), key).Result()
	if err == nil {
		var info models.ProgressInfo
		if jsonErr := json.Unmarshal([]byte(snapshot), &info); jsonErr == nil {
			return utils.SuccessResponse(c, "Import progress retrieved successfully", fiber.Map{
				"status":   run.Status,
				"progress": info,
			})
		}
	}

	return utils.SuccessResponse(c, "Import progress retrieved successfully", fiber.Map{
		"status": run.Status,
		"progress": models.ProgressInfo{
			TotalCount:     run.TotalRows,
			ProcessedCount: run.ProcessedRows,
			CreatedCount:   run.CreatedRows,
			UpdatedCount:   run.UpdatedRows,
			ErrorCount:     run.ErrorRows,
			ReportURL:      h.reportDownloadURL(run),
		},
	})
}

// reportDownloadURL resolves the run's report path to its download
// endpoint. The filesystem path never leaves the process.
func (h *ImportHandler) reportDownloadURL(run *models.ImportRun) string {
	if run.ReportPath == "" {
		return ""
	}
	return fmt.Sprintf("%s/api/v1/imports/%s/report",
		strings.TrimRight(h.cfg.AppURL, "/"), run.RunCode)
}

// CancelRun marks a run canceled. A run already picked up by the worker
// stops at the next page boundary.
func (h *ImportHandler) CancelRun(c *fiber.Ctx) error {
	run, errResp := h.findRun(c)
	if run == nil {
		return errResp
	}

	switch run.Status {
	case models.RunStatusCompleted, models.RunStatusCompletedWithErrors, models.RunStatusFailed:
		return utils.ErrorResponse(c, fiber.StatusBadRequest,
			fmt.Sprintf("Import run is already %s", run.Status), nil)
	case models.RunStatusCanceled:
		return utils.SuccessResponse(c, "Import run is already canceled", run)
	}

	run.Status = models.RunStatusCanceled
	if err := h.runStore.UpdateImportRun(run); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel import run", err)
	}

	return utils.SuccessResponse(c, "Import run canceled", run)
}

// DownloadReport serves the error report produced by a finished run.
func (h *ImportHandler) DownloadReport(c *fiber.Ctx) error {
	run, errResp := h.findRun(c)
	if run == nil {
		return errResp
	}

	if run.ReportPath == "" {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "No error report for this run", nil)
	}
	if _, err := os.Stat(run.ReportPath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Report file not found", err)
	}

	return c.Download(run.ReportPath, filepath.Base(run.ReportPath))
}

// DownloadTemplate generates and serves an import template workbook for the
// requested member type.
func (h *ImportHandler) DownloadTemplate(c *fiber.Ctx) error {
	memberType, err := parseMemberType(c.Query("member_type"))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown member type", err)
	}

	if err := os.MkdirAll(h.cfg.ExportPath, 0o755); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare export directory", err)
	}

	fileName := fmt.Sprintf("%s_import_template.xlsx", strings.ToLower(memberType))
	outputPath := filepath.Join(h.cfg.ExportPath, fileName)

	if err := h.templateService.GenerateImportTemplate(memberType, outputPath); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate template", err)
	}

	return c.Download(outputPath, fileName)
}

// findRun resolves a run from the id path parameter, which accepts both the
// numeric id and the run code. A nil run means the second return value holds
// the error response already sent.
func (h *ImportHandler) findRun(c *fiber.Ctx) (*models.ImportRun, error) {
	param := c.Params("id")

	var run *models.ImportRun
	var err error
	if id, convErr := strconv.Atoi(param); convErr == nil {
		run, err = h.runStore.GetImportRun(id)
	} else {
		run, err = h.runStore.GetImportRunByCode(param)
	}

	if err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve import run", err)
	}
	if run == nil {
		return nil, utils.ErrorResponse(c, fiber.StatusNotFound, "Import run not found", nil)
	}
	return run, nil
}

func parseMemberType(value string) (string, error) {
	switch {
	case strings.EqualFold(value, models.MemberTypeContact):
		return models.MemberTypeContact, nil
	case strings.EqualFold(value, models.MemberTypeOrganization):
		return models.MemberTypeOrganization, nil
	default:
		return "", service.ErrUnknownMemberType
	}
}
