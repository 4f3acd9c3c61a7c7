package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"customer-web/internal/config"
	"customer-web/internal/models"
)

// ExportRequest selects what to export: a keyword filter or an explicit
// object id list, optionally scoped to an organization subtree. An
// empty MemberType exports both kinds, one file each.
type ExportRequest struct {
	MemberType     string
	Keyword        string
	ObjectIDs      []string
	OrganizationID string
}

// Exporter streams stored members to delimited files, one per exported
// entity kind, with dynamic property columns appended.
type Exporter struct {
	store MemberStore
	props PropertyStore
	cfg   *config.Config
	log   *logrus.Logger
}

func NewExporter(store MemberStore, props PropertyStore, cfg *config.Config, log *logrus.Logger) *Exporter {
	return &Exporter{store: store, props: props, cfg: cfg, log: log}
}

func (e *Exporter) Export(ctx context.Context, runCode string, req ExportRequest, progress ProgressFunc) (*models.ProgressInfo, error) {
	kinds := []string{models.MemberTypeContact, models.MemberTypeOrganization}
	switch req.MemberType {
	case "":
	case models.MemberTypeContact, models.MemberTypeOrganization:
		kinds = []string{req.MemberType}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMemberType, req.MemberType)
	}

	info := &models.ProgressInfo{Description: "Export has started"}
	progress(info)

	sources := make(map[string]*ExportSource, len(kinds))
	for _, kind := range kinds {
		source := NewExportSource(e.store, e.criteria(kind, req), e.cfg.ImportPageSize)
		total, err := source.TotalCount()
		if err != nil {
			return info, err
		}
		if total == 0 {
			continue
		}
		if total > e.cfg.ExportLimitOfLines {
			total = e.cfg.ExportLimitOfLines
		}
		sources[kind] = source
		info.TotalCount += total
	}
	progress(info)

	if err := os.MkdirAll(e.cfg.ExportPath, 0o755); err != nil {
		return info, fmt.Errorf("create export directory: %w", err)
	}
	for _, kind := range kinds {
		source, ok := sources[kind]
		if !ok {
			continue
		}
		path, err := e.exportKind(ctx, runCode, kind, source, info, progress)
		if err != nil {
			return info, err
		}
		info.FileURLs = append(info.FileURLs, path)
	}

	now := time.Now()
	info.Finished = &now
	info.Description = "Export completed"
	progress(info)
	return info, nil
}

func (e *Exporter) criteria(kind string, req ExportRequest) models.MemberSearchCriteria {
	return models.MemberSearchCriteria{
		MemberType:     kind,
		Keyword:        req.Keyword,
		ObjectIDs:      req.ObjectIDs,
		OrganizationID: req.OrganizationID,
		DeepSearch:     req.OrganizationID != "",
	}
}

func (e *Exporter) exportKind(ctx context.Context, runCode, kind string, source *ExportSource, info *models.ProgressInfo, progress ProgressFunc) (string, error) {
	properties, err := e.props.GetProperties(kind)
	if err != nil {
		return "", fmt.Errorf("load %s properties: %w", strings.ToLower(kind), err)
	}

	path := filepath.Join(e.cfg.ExportPath, fmt.Sprintf("%s_%s.csv", runCode, strings.ToLower(kind)))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	defer f.Close()

	delimiter := e.cfg.DelimiterRune()
	var writeErr error
	if kind == models.MemberTypeContact {
		writeErr = exportPages(ctx, source, NewCsvWriter(f, ContactSchema(properties), delimiter), e.cfg.ExportLimitOfLines, memberToContactRecords, info, progress)
	} else {
		writeErr = exportPages(ctx, source, NewCsvWriter(f, OrganizationSchema(properties), delimiter), e.cfg.ExportLimitOfLines, memberToOrganizationRecords, info, progress)
	}
	if writeErr != nil {
		return "", writeErr
	}
	e.log.WithFields(logrus.Fields{"run_code": runCode, "kind": kind, "path": path}).Info("export file written")
	return path, nil
}

// exportPages drains the source into the writer. The convert callback
// turns one member into a main row plus one additional-line row per
// extra address.
func exportPages[T any](ctx context.Context, source *ExportSource, writer *CsvWriter[T], limit int, convert func(m *models.Member, resolve func(string) *models.Member) []T, info *models.ProgressInfo, progress ProgressFunc) error {
	if err := writer.WriteHeader(); err != nil {
		return err
	}
	written := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := source.Fetch()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		for _, m := range source.Page() {
			if written >= limit {
				break
			}
			for _, record := range convert(m, source.Resolve) {
				if err := writer.Write(record); err != nil {
					return err
				}
			}
			written++
			info.ProcessedCount++
		}
		info.Description = fmt.Sprintf("%d out of %d have been exported.", info.ProcessedCount, info.TotalCount)
		progress(info)
		if written >= limit {
			break
		}
	}
	return writer.Flush()
}

func memberToContactRecords(m *models.Member, resolve func(string) *models.Member) []*models.ContactRecord {
	r := &models.ContactRecord{
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		MiddleName: m.MiddleName,
		FullName:   m.FullName,
		Salutation: m.Salutation,
		Status:     m.Status,
		Birthday:   m.Birthday,
	}
	fillBaseRecord(&r.MemberRecord, m)
	if len(m.Organizations) > 0 {
		r.OrganizationID = m.Organizations[0]
		if org := resolve(r.OrganizationID); org != nil {
			r.OrganizationOuterID = org.OuterID
			r.OrganizationName = org.Name
		}
	}
	if len(m.SecurityAccounts) > 0 {
		account := m.SecurityAccounts[0]
		r.AccountLogin = account.Login
		r.AccountEmail = account.Email
		r.AccountType = account.AccountType
		r.AccountStatus = account.Status
		r.EmailVerified = account.EmailVerified
		r.StoreID = account.StoreID
	}
	records := []*models.ContactRecord{r}
	for _, addr := range extraAddresses(m) {
		extra := &models.ContactRecord{FullName: m.FullName}
		fillAdditionalRecord(&extra.MemberRecord, m, addr)
		records = append(records, extra)
	}
	return records
}

func memberToOrganizationRecords(m *models.Member, resolve func(string) *models.Member) []*models.OrganizationRecord {
	r := &models.OrganizationRecord{
		Name:             m.Name,
		Description:      m.Description,
		BusinessCategory: m.BusinessCategory,
		OwnerID:          m.OwnerID,
		Status:           m.Status,
	}
	fillBaseRecord(&r.MemberRecord, m)
	if m.ParentOrganizationID != "" {
		r.ParentOrganizationID = m.ParentOrganizationID
		if parent := resolve(m.ParentOrganizationID); parent != nil {
			r.ParentOrganizationOuterID = parent.OuterID
			r.ParentOrganizationName = parent.Name
		}
	}
	records := []*models.OrganizationRecord{r}
	for _, addr := range extraAddresses(m) {
		extra := &models.OrganizationRecord{Name: m.Name}
		fillAdditionalRecord(&extra.MemberRecord, m, addr)
		records = append(records, extra)
	}
	return records
}

func fillBaseRecord(r *models.MemberRecord, m *models.Member) {
	r.ID = m.ID
	r.OuterID = m.OuterID
	r.Phones = strings.Join(m.Phones, ",")
	r.Groups = strings.Join(m.Groups, ",")
	r.DefaultLanguage = m.DefaultLanguage
	r.TimeZone = m.TimeZone
	r.CommunicationPreference = m.CommunicationPreference
	if len(m.Addresses) > 0 {
		fillAddress(r, m.Addresses[0])
	}
	r.DynamicProperties = m.DynamicPropertyValues
}

// fillAdditionalRecord builds an additional-line row carrying only the
// member's identity and one extra address.
func fillAdditionalRecord(r *models.MemberRecord, m *models.Member, addr models.Address) {
	r.ID = m.ID
	r.OuterID = m.OuterID
	r.AdditionalLine = true
	fillAddress(r, addr)
}

func fillAddress(r *models.MemberRecord, addr models.Address) {
	r.AddressType = addr.AddressType
	r.AddressFirstName = addr.FirstName
	r.AddressLastName = addr.LastName
	r.AddressCountryCode = addr.CountryCode
	r.AddressCountry = addr.CountryName
	r.AddressRegionCode = addr.RegionID
	r.AddressRegion = addr.RegionName
	r.AddressCity = addr.City
	r.AddressLine1 = addr.Line1
	r.AddressLine2 = addr.Line2
	r.AddressZipCode = addr.ZipCode
	r.AddressEmail = addr.Email
	r.AddressPhone = addr.Phone
}

func extraAddresses(m *models.Member) []models.Address {
	if len(m.Addresses) < 2 {
		return nil
	}
	return m.Addresses[1:]
}
