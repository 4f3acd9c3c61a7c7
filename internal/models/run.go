package models

import "time"

// Run lifecycle statuses, shared by import and export runs.
const (
	RunStatusUploaded            = "uploaded"
	RunStatusProcessing          = "processing"
	RunStatusCompleted           = "completed"
	RunStatusCompletedWithErrors = "completed_with_errors"
	RunStatusFailed              = "failed"
	RunStatusCanceled            = "canceled"
)

// ImportRun is one import job: an uploaded file plus its processing state.
type ImportRun struct {
	ID                   int       `db:"id" json:"id"`
	RunCode              string    `db:"run_code" json:"run_code"`
	MemberType           string    `db:"member_type" json:"member_type"`
	Filename             string    `db:"filename" json:"filename"`
	FilePath             string    `db:"file_path" json:"file_path"`
	ParentOrganizationID string    `db:"parent_organization_id" json:"parent_organization_id"`
	TotalRows            int       `db:"total_rows" json:"total_rows"`
	ProcessedRows        int       `db:"processed_rows" json:"processed_rows"`
	CreatedRows          int       `db:"created_rows" json:"created_rows"`
	UpdatedRows          int       `db:"updated_rows" json:"updated_rows"`
	ErrorRows            int       `db:"error_rows" json:"error_rows"`
	Status               string    `db:"status" json:"status"`
	ErrorMessage         string    `db:"error_message" json:"error_message"`
	ReportPath           string    `db:"report_path" json:"report_path"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// ExportRun is one export job and its produced files.
type ExportRun struct {
	ID             int        `db:"id" json:"id"`
	RunCode        string     `db:"run_code" json:"run_code"`
	MemberType     string     `db:"member_type" json:"member_type"`
	Keyword        string     `db:"keyword" json:"keyword"`
	ObjectIDs      StringList `db:"object_ids" json:"object_ids"`
	OrganizationID string     `db:"organization_id" json:"organization_id"`
	TotalRows      int        `db:"total_rows" json:"total_rows"`
	ProcessedRows  int        `db:"processed_rows" json:"processed_rows"`
	Status         string     `db:"status" json:"status"`
	ErrorMessage   string     `db:"error_message" json:"error_message"`
	FilePaths      StringList `db:"file_paths" json:"file_paths"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// ProgressInfo is the snapshot pushed to the notification sink after
// every processed page and at run completion.
type ProgressInfo struct {
	Description    string     `json:"description"`
	TotalCount     int        `json:"total_count"`
	ProcessedCount int        `json:"processed_count"`
	CreatedCount   int        `json:"created_count"`
	UpdatedCount   int        `json:"updated_count"`
	ErrorCount     int        `json:"error_count"`
	Errors         []string   `json:"errors,omitempty"`
	ReportURL      string     `json:"report_url,omitempty"`
	FileURLs       []string   `json:"file_urls,omitempty"`
	Finished       *time.Time `json:"finished,omitempty"`
}

// FileError is one input-level validation finding for an uploaded file.
// Code is a stable identifier the UI maps to a localized message.
type FileError struct {
	Code   string            `json:"code"`
	Params map[string]string `json:"params,omitempty"`
}
