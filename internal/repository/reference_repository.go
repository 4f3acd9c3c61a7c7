package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"customer-web/internal/models"
)

type ReferenceRepository struct {
	db *sqlx.DB
}

func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) GetCountries() ([]models.Country, error) {
	var countries []models.Country
	query := `SELECT code, name FROM countries ORDER BY name ASC`

	if err := r.db.Select(&countries, query); err != nil {
		return nil, fmt.Errorf("failed to get countries: %w", err)
	}
	return countries, nil
}

func (r *ReferenceRepository) GetRegions(countryCode string) ([]models.Region, error) {
	var regions []models.Region
	query := `SELECT id, country_code, name FROM regions WHERE country_code = ? ORDER BY name ASC`

	if err := r.db.Select(&regions, query, countryCode); err != nil {
		return nil, fmt.Errorf("failed to get regions: %w", err)
	}
	return regions, nil
}
