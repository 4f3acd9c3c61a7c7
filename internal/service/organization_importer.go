package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"customer-web/internal/models"
)

// OrganizationImporter is the organization counterpart of
// ContactImporter. Parent linkage replaces the contact's organization
// membership; everything else follows the same page cycle.
type OrganizationImporter struct {
	store     MemberStore
	validator *OrganizationValidator
	log       *logrus.Logger
}

func NewOrganizationImporter(store MemberStore, validator *OrganizationValidator, log *logrus.Logger) *OrganizationImporter {
	return &OrganizationImporter{store: store, validator: validator, log: log}
}

func (imp *OrganizationImporter) Import(ctx context.Context, source *ImportSource[*models.OrganizationRecord], reporter *ReportWriter, parentOrgID string, progress ProgressFunc) (*models.ProgressInfo, error) {
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
			imp.log.WithError(err).WithField("page", source.CurrentPageNumber()).Error("organization import page failed")
			info.Errors = append(info.Errors, err.Error())
		}

		finishPage(info, source.CurrentPageNumber(), source.PageSize(), total)
		progress(info)
	}

	finishRun(info, reporter, "Import")
	progress(info)
	return info, nil
}

func (imp *OrganizationImporter) processPage(source *ImportSource[*models.OrganizationRecord], reporter *ReportWriter, errCtx *ErrorContext, info *models.ProgressInfo, parentOrgID string) error {
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

	parents, err := imp.findParents(rows)
	if err != nil {
		return err
	}

	members, created, updated := imp.merge(rows, existing, parents, parentOrgID)
	if len(members) > 0 {
		if err := imp.store.BulkSaveMembers(members); err != nil {
			return fmt.Errorf("save organizations: %w", err)
		}
	}
	info.CreatedCount += created
	info.UpdatedCount += updated
	return nil
}

func (imp *OrganizationImporter) findExisting(rows []*Row[*models.OrganizationRecord]) ([]*models.Member, error) {
	ids, outerIDs := collectIdentities(rows)
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
		return nil, fmt.Errorf("search existing organizations: %w", err)
	}
	return found, nil
}

func (imp *OrganizationImporter) findParents(rows []*Row[*models.OrganizationRecord]) ([]*models.Member, error) {
	var ids, outerIDs []string
	for _, row := range rows {
		if id := strings.TrimSpace(row.Value.ParentOrganizationID); id != "" {
			ids = append(ids, id)
		}
		if outer := strings.TrimSpace(row.Value.ParentOrganizationOuterID); outer != "" {
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
		return nil, fmt.Errorf("search parent organizations: %w", err)
	}
	return found, nil
}

func (imp *OrganizationImporter) merge(rows []*Row[*models.OrganizationRecord], existing, parents []*models.Member, parentOrgID string) ([]*models.Member, int, int) {
	var out []*models.Member
	created, updated := 0, 0
	byIdentity := make(map[string]*models.Member)

	for _, row := range rows {
		r := row.Value
		key := identityKey(r.ID, r.OuterID, r.Name)

		if r.AdditionalLine {
			target := byIdentity[key]
			if target == nil {
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
		patchOrganization(target, r)
		imp.linkParent(target, r, parents, parentOrgID)

		if isUpdate {
			updated++
		} else {
			created++
		}
		byIdentity[key] = target
		out = append(out, target)
	}
	return out, created, updated
}

func (imp *OrganizationImporter) linkParent(target *models.Member, r *models.OrganizationRecord, parents []*models.Member, parentOrgID string) {
	if r.ParentOrganizationID != "" || r.ParentOrganizationOuterID != "" {
		if parent := matchMember(parents, r.ParentOrganizationID, r.ParentOrganizationOuterID); parent != nil {
			target.ParentOrganizationID = parent.ID
			return
		}
	}
	if target.ParentOrganizationID == "" && parentOrgID != "" {
		target.ParentOrganizationID = parentOrgID
	}
}
