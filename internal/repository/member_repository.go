package repository

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"customer-web/internal/models"
)

// SAVE_CHUNK_SIZE keeps bulk upserts well under the MySQL placeholder limit.
const SAVE_CHUNK_SIZE = 500

type MemberRepository struct {
	db *sqlx.DB
}

func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

const memberColumns = `id, outer_id, member_type, name, first_name, last_name, middle_name,
	full_name, salutation, status, birthday, description, business_category, owner_id,
	parent_organization_id, organizations, groups, phones, default_language,
	time_zone, communication_preference, addresses, dynamic_properties,
	created_at, updated_at`

// SearchMembers returns the members matching the criteria together with the
// total match count. Take == 0 only computes the count.
func (r *MemberRepository) SearchMembers(criteria models.MemberSearchCriteria) ([]*models.Member, int, error) {
	where, args, err := r.buildSearchWhere(criteria)
	if err != nil {
		return nil, 0, err
	}

	countQuery := "SELECT COUNT(*) FROM members m " + where
	countQuery = r.db.Rebind(countQuery)

	var total int
	if err := r.db.Get(&total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	if criteria.Take == 0 || total == 0 {
		return nil, total, nil
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM members m %s ORDER BY m.name ASC, m.id ASC LIMIT ? OFFSET ?`,
		prefixColumns("m", memberColumns), where)
	dataQuery = r.db.Rebind(dataQuery)
	dataArgs := append(append([]interface{}{}, args...), criteria.Take, criteria.Skip)

	var members []*models.Member
	if err := r.db.Select(&members, dataQuery, dataArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to search members: %w", err)
	}

	if err := r.loadAccounts(members); err != nil {
		return nil, 0, err
	}

	return members, total, nil
}

func (r *MemberRepository) buildSearchWhere(criteria models.MemberSearchCriteria) (string, []interface{}, error) {
	conditions := []string{"1=1"}
	var args []interface{}

	if criteria.MemberType != "" {
		conditions = append(conditions, "m.member_type = ?")
		args = append(args, criteria.MemberType)
	}

	if criteria.Keyword != "" {
		conditions = append(conditions, "m.name LIKE ?")
		args = append(args, "%"+criteria.Keyword+"%")
	}

	if len(criteria.ObjectIDs) > 0 || len(criteria.OuterIDs) > 0 {
		var idParts []string
		if len(criteria.ObjectIDs) > 0 {
			part, inArgs, err := sqlx.In("m.id IN (?)", criteria.ObjectIDs)
			if err != nil {
				return "", nil, fmt.Errorf("failed to expand id filter: %w", err)
			}
			idParts = append(idParts, part)
			args = append(args, inArgs...)
		}
		if len(criteria.OuterIDs) > 0 {
			part, inArgs, err := sqlx.In("m.outer_id IN (?)", criteria.OuterIDs)
			if err != nil {
				return "", nil, fmt.Errorf("failed to expand outer id filter: %w", err)
			}
			idParts = append(idParts, part)
			args = append(args, inArgs...)
		}
		conditions = append(conditions, "("+strings.Join(idParts, " OR ")+")")
	}

	if criteria.OrganizationID != "" {
		if criteria.DeepSearch {
			// The recursive CTE walks the organization tree so that members of
			// every descendant organization match as well.
			conditions = append(conditions, `EXISTS (
				WITH RECURSIVE org_tree (id) AS (
					SELECT o.id FROM members o WHERE o.id = ? AND o.member_type = 'Organization'
					UNION ALL
					SELECT c.id FROM members c
					INNER JOIN org_tree t ON c.parent_organization_id = t.id
					WHERE c.member_type = 'Organization'
				)
				SELECT 1 FROM org_tree t
				WHERE m.parent_organization_id = t.id
				   OR JSON_CONTAINS(m.organizations, JSON_QUOTE(t.id))
			)`)
			args = append(args, criteria.OrganizationID)
		} else {
			conditions = append(conditions, "(m.parent_organization_id = ? OR JSON_CONTAINS(m.organizations, JSON_QUOTE(?)))")
			args = append(args, criteria.OrganizationID, criteria.OrganizationID)
		}
	}

	return "WHERE " + strings.Join(conditions, " AND "), args, nil
}

// BulkSaveMembers upserts members in chunks, then reconciles their security
// accounts. New rows and updated rows go through the same statement.
func (r *MemberRepository) BulkSaveMembers(members []*models.Member) error {
	if len(members) == 0 {
		return nil
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin bulk save: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(members); start += SAVE_CHUNK_SIZE {
		end := start + SAVE_CHUNK_SIZE
		if end > len(members) {
			end = len(members)
		}
		if err := r.saveMemberChunk(tx, members[start:end]); err != nil {
			return err
		}
	}

	for _, member := range members {
		if err := r.saveAccounts(tx, member); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bulk save: %w", err)
	}
	return nil
}

func (r *MemberRepository) saveMemberChunk(tx *sqlx.Tx, members []*models.Member) error {
	query := `
		INSERT INTO members (` + memberColumns + `)
		VALUES (:id, :outer_id, :member_type, :name, :first_name, :last_name, :middle_name,
			:full_name, :salutation, :status, :birthday, :description, :business_category, :owner_id,
			:parent_organization_id, :organizations, :groups, :phones, :default_language,
			:time_zone, :communication_preference, :addresses, :dynamic_properties,
			NOW(), NOW())
		ON DUPLICATE KEY UPDATE
			outer_id = VALUES(outer_id),
			name = VALUES(name),
			first_name = VALUES(first_name),
			last_name = VALUES(last_name),
			middle_name = VALUES(middle_name),
			full_name = VALUES(full_name),
			salutation = VALUES(salutation),
			status = VALUES(status),
			birthday = VALUES(birthday),
			description = VALUES(description),
			business_category = VALUES(business_category),
			owner_id = VALUES(owner_id),
			parent_organization_id = VALUES(parent_organization_id),
			organizations = VALUES(organizations),
			groups = VALUES(groups),
			phones = VALUES(phones),
			default_language = VALUES(default_language),
			time_zone = VALUES(time_zone),
			communication_preference = VALUES(communication_preference),
			addresses = VALUES(addresses),
			dynamic_properties = VALUES(dynamic_properties),
			updated_at = NOW()`

	if _, err := tx.NamedExec(query, members); err != nil {
		return fmt.Errorf("failed to save members: %w", err)
	}
	return nil
}

func (r *MemberRepository) saveAccounts(tx *sqlx.Tx, member *models.Member) error {
	for i := range member.SecurityAccounts {
		account := &member.SecurityAccounts[i]
		account.MemberID = member.ID

		if account.ID == 0 {
			query := `
				INSERT INTO security_accounts (member_id, login, email, account_type, status,
					email_verified, store_id, password_hash, created_at, updated_at)
				VALUES (:member_id, :login, :email, :account_type, :status,
					:email_verified, :store_id, :password_hash, NOW(), NOW())`
			result, err := tx.NamedExec(query, account)
			if err != nil {
				return fmt.Errorf("failed to create security account: %w", err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get security account id: %w", err)
			}
			account.ID = int(id)
			continue
		}

		query := `
			UPDATE security_accounts
			SET login = :login, email = :email, account_type = :account_type,
				status = :status, email_verified = :email_verified, store_id = :store_id,
				password_hash = :password_hash, updated_at = NOW()
			WHERE id = :id`
		if _, err := tx.NamedExec(query, account); err != nil {
			return fmt.Errorf("failed to update security account: %w", err)
		}
	}
	return nil
}

// FindAccountHolderByLogin returns the member owning a security account with
// the given login, or nil when the login is unclaimed.
func (r *MemberRepository) FindAccountHolderByLogin(login string) (*models.Member, error) {
	return r.findAccountHolder("LOWER(a.login) = LOWER(?)", login)
}

// FindAccountHolderByEmail returns the member owning a security account with
// the given email, or nil when the email is unclaimed.
func (r *MemberRepository) FindAccountHolderByEmail(email string) (*models.Member, error) {
	return r.findAccountHolder("LOWER(a.email) = LOWER(?)", email)
}

func (r *MemberRepository) findAccountHolder(condition string, arg string) (*models.Member, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM members m
		INNER JOIN security_accounts a ON a.member_id = m.id
		WHERE %s
		LIMIT 1`, prefixColumns("m", memberColumns), condition)

	var member models.Member
	err := r.db.Get(&member, query, arg)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account holder: %w", err)
	}

	if err := r.loadAccounts([]*models.Member{&member}); err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *MemberRepository) loadAccounts(members []*models.Member) error {
	if len(members) == 0 {
		return nil
	}

	ids := make([]string, 0, len(members))
	byID := make(map[string]*models.Member, len(members))
	for _, member := range members {
		ids = append(ids, member.ID)
		byID[member.ID] = member
	}

	query, args, err := sqlx.In(`
		SELECT id, member_id, login, email, account_type, status, email_verified,
			store_id, password_hash
		FROM security_accounts WHERE member_id IN (?)
		ORDER BY id ASC`, ids)
	if err != nil {
		return fmt.Errorf("failed to expand account filter: %w", err)
	}

	var accounts []models.SecurityAccount
	if err := r.db.Select(&accounts, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to load security accounts: %w", err)
	}

	for _, account := range accounts {
		if member, ok := byID[account.MemberID]; ok {
			member.SecurityAccounts = append(member.SecurityAccounts, account)
		}
	}
	return nil
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}
