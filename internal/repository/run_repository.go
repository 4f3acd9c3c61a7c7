package repository

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"customer-web/internal/models"
)

type RunRepository struct {
	db *sqlx.DB
}

func NewRunRepository(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) CreateImportRun(run *models.ImportRun) error {
	query := `
		INSERT INTO import_runs (run_code, member_type, filename, file_path,
			parent_organization_id, total_rows, processed_rows, created_rows,
			updated_rows, error_rows, status, error_message, report_path,
			created_at, updated_at)
		VALUES (:run_code, :member_type, :filename, :file_path,
			:parent_organization_id, :total_rows, :processed_rows, :created_rows,
			:updated_rows, :error_rows, :status, :error_message, :report_path,
			NOW(), NOW())`

	result, err := r.db.NamedExec(query, run)
	if err != nil {
		return fmt.Errorf("failed to create import run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get import run id: %w", err)
	}
	run.ID = int(id)

	return nil
}

func (r *RunRepository) GetImportRun(id int) (*models.ImportRun, error) {
	var run models.ImportRun
	query := `SELECT * FROM import_runs WHERE id = ?`

	err := r.db.Get(&run, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}

	return &run, nil
}

func (r *RunRepository) GetImportRunByCode(code string) (*models.ImportRun, error) {
	var run models.ImportRun
	query := `SELECT * FROM import_runs WHERE run_code = ?`

	err := r.db.Get(&run, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get import run by code: %w", err)
	}

	return &run, nil
}

func (r *RunRepository) UpdateImportRun(run *models.ImportRun) error {
	query := `
		UPDATE import_runs
		SET total_rows = :total_rows, processed_rows = :processed_rows,
			created_rows = :created_rows, updated_rows = :updated_rows,
			error_rows = :error_rows, status = :status,
			error_message = :error_message, report_path = :report_path,
			updated_at = NOW()
		WHERE id = :id`

	if _, err := r.db.NamedExec(query, run); err != nil {
		return fmt.Errorf("failed to update import run: %w", err)
	}
	return nil
}

func (r *RunRepository) ListImportRuns(offset, limit int) ([]models.ImportRun, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM import_runs`
	if err := r.db.Get(&total, countQuery); err != nil {
		return nil, 0, fmt.Errorf("failed to count import runs: %w", err)
	}

	var runs []models.ImportRun
	query := `SELECT * FROM import_runs ORDER BY created_at DESC LIMIT ? OFFSET ?`
	if err := r.db.Select(&runs, query, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("failed to list import runs: %w", err)
	}

	return runs, total, nil
}

func (r *RunRepository) CreateExportRun(run *models.ExportRun) error {
	query := `
		INSERT INTO export_runs (run_code, member_type, keyword, object_ids,
			organization_id, total_rows, processed_rows, status, error_message,
			file_paths, created_at, updated_at)
		VALUES (:run_code, :member_type, :keyword, :object_ids,
			:organization_id, :total_rows, :processed_rows, :status, :error_message,
			:file_paths, NOW(), NOW())`

	result, err := r.db.NamedExec(query, run)
	if err != nil {
		return fmt.Errorf("failed to create export run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get export run id: %w", err)
	}
	run.ID = int(id)

	return nil
}

func (r *RunRepository) GetExportRunByCode(code string) (*models.ExportRun, error) {
	var run models.ExportRun
	query := `SELECT * FROM export_runs WHERE run_code = ?`

	err := r.db.Get(&run, query, code)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get export run by code: %w", err)
	}

	return &run, nil
}

func (r *RunRepository) UpdateExportRun(run *models.ExportRun) error {
	query := `
		UPDATE export_runs
		SET total_rows = :total_rows, processed_rows = :processed_rows,
			status = :status, error_message = :error_message,
			file_paths = :file_paths, updated_at = NOW()
		WHERE id = :id`

	if _, err := r.db.NamedExec(query, run); err != nil {
		return fmt.Errorf("failed to update export run: %w", err)
	}
	return nil
}
