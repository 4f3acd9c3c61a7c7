package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"customer-web/internal/models"
)

// ProgressFunc receives incremental progress snapshots. The same
// ProgressInfo instance is mutated and re-sent, so implementations must
// not retain it across calls.
type ProgressFunc func(info *models.ProgressInfo)

// ContactImporter drives a contact import run: page fetch, validation,
// reconciliation against existing members and batch persistence. Pages
// are strictly sequential; a page's save must land before the next page
// is fetched so later rows can reference members created earlier in the
// same run.
type ContactImporter struct {
	store     MemberStore
	validator *ContactValidator
	log       *logrus.Logger
}

func NewContactImporter(store MemberStore, validator *ContactValidator, log *logrus.Logger) *ContactImporter {
	return &ContactImporter{store: store, validator: validator, log: log}
}

func (imp *ContactImporter) Import(ctx context.Context, source *ImportSource[*models.ContactRecord], reporter *ReportWriter, parentOrgID string, progress ProgressFunc) (*models.ProgressInfo, error) {
	info := &models.ProgressInfo{Description: "Import has started"}
	progress(info)

	total, err := source.TotalCount()
	if err != nil {
		return info, err
	}
	info.TotalCount = total
	progress(info)

	info.Description = "Fetching..."
	progress(info)

	errCtx := NewErrorContext()
	for {
		if err := ctx.Err(); err != nil {
			return info, err
		}
		ok, err := source.Fetch()
		if err != nil {
			return info, err
		}
		if !ok {
			break
		}

		if err := imp.processPage(source, reporter, errCtx, info, parentOrgID); err != nil {
			// Page failures stay page-scoped. The page's rows are lost
			// but the run continues.
			imp.log.WithError(err).WithField("page", source.CurrentPageNumber()).Error("contact import page failed")
			info.Errors = append(info.Errors, err.Error())
		}

		finishPage(info, source.CurrentPageNumber(), source.PageSize(), total)
		progress(info)
	}

	finishRun(info, reporter, "Import")
	progress(info)
	return info, nil
}

func (imp *ContactImporter) processPage(source *ImportSource[*models.ContactRecord], reporter *ReportWriter, errCtx *ErrorContext, info *models.ProgressInfo, parentOrgID string) error {
	if err := reportBadRows(reporter, errCtx, source.BadRows()); err != nil {
		return err
	}
	rows := unflaggedRows(source.Page(), errCtx)
	if len(rows) == 0 {
		return nil
	}

	existing, err := imp.findExisting(rows)
	if err != nil {
		return err
	}

	// Ids that match nothing were caller-supplied hints for new rows.
	// Drop them so they cannot hijack another record's identity later.
	for _, row := range rows {
		if row.Value.ID != "" && matchMember(existing, row.Value.ID, "") == nil {
			row.Value.SetID("")
		}
	}

	rows, err = discardInvalid(rows, imp.validator.Validate, reporter, errCtx)
	if err != nil {
		return err
	}
	existing = referencedMembers(existing, rows)

	organizations, err := imp.findOrganizations(rows)
	if err != nil {
		return err
	}

	members, created, updated, err := imp.merge(rows, existing, organizations, parentOrgID)
	if err != nil {
		return err
	}
	if len(members) > 0 {
		if err := imp.store.BulkSaveMembers(members); err != nil {
			return fmt.Errorf("save contacts: %w", err)
		}
	}
	info.CreatedCount += created
	info.UpdatedCount += updated
	return nil
}

func (imp *ContactImporter) findExisting(rows []*Row[*models.ContactRecord]) ([]*models.Member, error) {
	ids, outerIDs := collectIdentities(rows)
	if len(ids) == 0 && len(outerIDs) == 0 {
		return nil, nil
	}
	found, _, err := imp.store.SearchMembers(models.MemberSearchCriteria{
		MemberType: models.MemberTypeContact,
		ObjectIDs:  ids,
		OuterIDs:   outerIDs,
		DeepSearch: true,
		Take:       len(ids) + len(outerIDs),
	})
	if err != nil {
		return nil, fmt.Errorf("search existing contacts: %w", err)
	}
	return found, nil
}

func (imp *ContactImporter) findOrganizations(rows []*Row[*models.ContactRecord]) ([]*models.Member, error) {
	var ids, outerIDs []string
	for _, row := range rows {
		if id := strings.TrimSpace(row.Value.OrganizationID); id != "" {
			ids = append(ids, id)
		}
		if outer := strings.TrimSpace(row.Value.OrganizationOuterID); outer != "" {
			outerIDs = append(outerIDs, outer)
		}
	}
	if len(ids) == 0 && len(outerIDs) == 0 {
		return nil, nil
	}
	found, _, err := imp.store.SearchMembers(models.MemberSearchCriteria{
		MemberType: models.MemberTypeOrganization,
		ObjectIDs:  ids,
		OuterIDs:   outerIDs,
		DeepSearch: true,
		Take:       len(ids) + len(outerIDs),
	})
	if err != nil {
		return nil, fmt.Errorf("search referenced organizations: %w", err)
	}
	return found, nil
}

func (imp *ContactImporter) merge(rows []*Row[*models.ContactRecord], existing, organizations []*models.Member, parentOrgID string) ([]*models.Member, int, int, error) {
	var out []*models.Member
	created, updated := 0, 0
	byIdentity := make(map[string]*models.Member)

	for _, row := range rows {
		r := row.Value
		key := identityKey(r.ID, r.OuterID, r.FullName)

		if r.AdditionalLine {
			target := byIdentity[key]
			if target == nil {
				// Main line lives on an earlier page; patch the stored
				// member directly.
				if target = matchMember(existing, r.ID, r.OuterID); target == nil {
					continue
				}
				out = append(out, target)
				byIdentity[key] = target
			}
			patchBase(target, &r.MemberRecord)
			continue
		}

		target := matchMember(existing, r.ID, r.OuterID)
		isUpdate := target != nil
		if !isUpdate {
			target = &models.Member{ID: strings.TrimSpace(r.ID)}
			if target.ID == "" {
				target.ID = uuid.NewString()
			}
		}
		patchContact(target, r)
		if err := patchAccount(target, r, imp.validator.passwords); err != nil {
			return nil, 0, 0, err
		}
		imp.linkOrganization(target, r, organizations, parentOrgID)

		if isUpdate {
			updated++
		} else {
			created++
		}
		byIdentity[key] = target
		out = append(out, target)
	}
	return out, created, updated, nil
}

// linkOrganization attaches the contact to the organization the row
// references, falling back to the run's ambient parent organization
// when the reference cannot be resolved.
func (imp *ContactImporter) linkOrganization(target *models.Member, r *models.ContactRecord, organizations []*models.Member, parentOrgID string) {
	if r.OrganizationID != "" || r.OrganizationOuterID != "" {
		if org := matchMember(organizations, r.OrganizationID, r.OrganizationOuterID); org != nil {
			if !target.HasOrganization(org.ID) {
				target.Organizations = append(target.Organizations, org.ID)
			}
			return
		}
	}
	if parentOrgID != "" && !target.HasOrganization(parentOrgID) {
		target.Organizations = append(target.Organizations, parentOrgID)
	}
}

// reportBadRows writes codec casualties to the report, once per row.
func reportBadRows[T any](reporter *ReportWriter, errCtx *ErrorContext, badRows []*Row[T]) error {
	for _, bad := range badRows {
		if !errCtx.Flag(bad.Number) {
			continue
		}
		if err := reporter.WriteRow(bad.Diag.Message, bad.Raw); err != nil {
			return err
		}
	}
	return nil
}

func unflaggedRows[T any](rows []*Row[T], errCtx *ErrorContext) []*Row[T] {
	out := make([]*Row[T], 0, len(rows))
	for _, row := range rows {
		if !errCtx.Flagged(row.Number) {
			out = append(out, row)
		}
	}
	return out
}

// discardInvalid runs the validation pipeline, reports every violated
// row and returns the surviving rows.
func discardInvalid[T any](rows []*Row[T], validate func([]*Row[T]) ([]Violation, error), reporter *ReportWriter, errCtx *ErrorContext) ([]*Row[T], error) {
	violations, err := validate(rows)
	if err != nil {
		return nil, err
	}
	byRow := make(map[int][]Violation)
	for _, v := range violations {
		byRow[v.Row] = append(byRow[v.Row], v)
	}
	out := make([]*Row[T], 0, len(rows))
	for _, row := range rows {
		rowViolations := byRow[row.Number]
		if len(rowViolations) == 0 {
			out = append(out, row)
			continue
		}
		if errCtx.Flag(row.Number) {
			messages := make([]string, 0, len(rowViolations))
			for _, v := range rowViolations {
				messages = append(messages, v.Message())
			}
			if err := reporter.WriteRow(strings.Join(messages, ". "), row.Raw); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// referencedMembers shrinks the existing set to members still matched
// by a surviving row.
func referencedMembers[T models.MemberRow](existing []*models.Member, rows []*Row[T]) []*models.Member {
	var out []*models.Member
	for _, m := range existing {
		for _, row := range rows {
			if matchMember([]*models.Member{m}, row.Value.GetID(), row.Value.GetOuterID()) != nil {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

func collectIdentities[T models.MemberRow](rows []*Row[T]) (ids, outerIDs []string) {
	seenID := make(map[string]bool)
	seenOuter := make(map[string]bool)
	for _, row := range rows {
		if id := strings.ToLower(strings.TrimSpace(row.Value.GetID())); id != "" && !seenID[id] {
			seenID[id] = true
			ids = append(ids, strings.TrimSpace(row.Value.GetID()))
		}
		if outer := strings.ToLower(strings.TrimSpace(row.Value.GetOuterID())); outer != "" && !seenOuter[outer] {
			seenOuter[outer] = true
			outerIDs = append(outerIDs, strings.TrimSpace(row.Value.GetOuterID()))
		}
	}
	return ids, outerIDs
}

// finishPage recomputes the run counters after a page completes, on
// success or failure alike.
func finishPage(info *models.ProgressInfo, pageNumber, pageSize, total int) {
	processed := pageNumber * pageSize
	if processed > total {
		processed = total
	}
	info.ProcessedCount = processed
	info.ErrorCount = processed - info.CreatedCount - info.UpdatedCount
	info.Description = fmt.Sprintf("%d out of %d have been imported.", processed, total)
}

// finishRun closes the report and writes the terminal description.
func finishRun(info *models.ProgressInfo, reporter *ReportWriter, verb string) {
	reportPath, err := reporter.Close()
	if err != nil {
		info.Errors = append(info.Errors, err.Error())
	}
	info.ReportURL = reportPath
	now := time.Now()
	info.Finished = &now
	if info.ErrorCount > 0 || len(info.Errors) > 0 {
		info.Description = verb + " completed with errors"
	} else {
		info.Description = verb + " completed"
	}
}
