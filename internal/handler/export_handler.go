package handler

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"customer-web/internal/config"
	"customer-web/internal/models"
	"customer-web/internal/service"
	"customer-web/internal/utils"
)

type ExportHandler struct {
	runStore    service.RunStore
	asynqClient *asynq.Client
	redis       *redis.Client
	cfg         *config.Config
}

func NewExportHandler(
	runStore service.RunStore,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	cfg *config.Config,
) *ExportHandler {
	return &ExportHandler{
		runStore:    runStore,
		asynqClient: asynqClient,
		redis:       redisClient,
		cfg:         cfg,
	}
}

type startExportRequest struct {
	MemberType     string   `json:"member_type"`
	Keyword        string   `json:"keyword"`
	ObjectIDs      []string `json:"object_ids"`
	OrganizationID string   `json:"organization_id"`
}

// StartExport registers an export run and queues the background task. An
// empty member type exports both contacts and organizations.
func (h *ExportHandler) StartExport(c *fiber.Ctx) error {
	var req startExportRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if req.MemberType != "" {
		memberType, err := parseMemberType(req.MemberType)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Unknown member type", err)
		}
		req.MemberType = memberType
	}

	if h.asynqClient == nil {
		return utils.ErrorResponse(c, fiber.StatusServiceUnavailable, "Background job processing is not available (Redis not connected)", nil)
	}

	run := &models.ExportRun{
		RunCode:        fmt.Sprintf("EXPORT-%s", uuid.New().String()[:8]),
		MemberType:     req.MemberType,
		Keyword:        req.Keyword,
		ObjectIDs:      req.ObjectIDs,
		OrganizationID: req.OrganizationID,
		Status:         models.RunStatusUploaded,
	}

	if err := h.runStore.CreateExportRun(run); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create export run", err)
	}

	payload, _ := json.Marshal(fiber.Map{
		"run_id":   run.ID,
		"run_code": run.RunCode,
	})

	task := asynq.NewTask("member:export", payload)
	info, err := h.asynqClient.Enqueue(task)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to queue export task", err)
	}

	return utils.SuccessResponse(c, "Export started", fiber.Map{
		"job_id": info.ID,
		"run":    run,
	})
}

// GetRun serves the export run state together with the latest worker
// progress snapshot when one exists.
func (h *ExportHandler) GetRun(c *fiber.Ctx) error {
	run, errResp := h.findRun(c)
	if run == nil {
		return errResp
	}

	key := fmt.Sprintf("export:progress:%s", run.RunCode)
	snapshot, err := h.redis.Get(c.Context(), key).Result()
	if err == nil {
		var info models.ProgressInfo
		if jsonErr := json.Unmarshal([]byte(snapshot), &info); jsonErr == nil {
			return utils.SuccessResponse(c, "Export run retrieved successfully", fiber.Map{
				"run":      run,
				"progress": info,
			})
		}
	}

	return utils.SuccessResponse(c, "Export run retrieved successfully", fiber.Map{
		"run": run,
	})
}

// DownloadFile serves one of the files produced by a completed export run.
// The file query parameter selects by base name; it defaults to the first
// file when the run produced only one.
func (h *ExportHandler) DownloadFile(c *fiber.Ctx) error {
	run, errResp := h.findRun(c)
	if run == nil {
		return errResp
	}

	if len(run.FilePaths) == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Export run has no files", nil)
	}

	requested := c.Query("file")
	if requested == "" {
		if len(run.FilePaths) > 1 {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Run produced multiple files, pass the file parameter", nil)
		}
		requested = filepath.Base(run.FilePaths[0])
	}

	for _, path := range run.FilePaths {
		if filepath.Base(path) != requested {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Export file not found", err)
		}
		return c.Download(path, requested)
	}

	return utils.ErrorResponse(c, fiber.StatusNotFound, "Export file not found", nil)
}

func (h *ExportHandler) findRun(c *fiber.Ctx) (*models.ExportRun, error) {
	code := c.Params("code")

	run, err := h.runStore.GetExportRunByCode(code)
	if err != nil {
		return nil, utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to retrieve export run", err)
	}
	if run == nil {
		return nil, utils.ErrorResponse(c, fiber.StatusNotFound, "Export run not found", nil)
	}
	return run, nil
}
