package repository

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"customer-web/internal/models"
)

type PropertyRepository struct {
	db *sqlx.DB
}

func NewPropertyRepository(db *sqlx.DB) *PropertyRepository {
	return &PropertyRepository{db: db}
}

func (r *PropertyRepository) GetProperties(objectType string) ([]models.DynamicProperty, error) {
	var properties []models.DynamicProperty
	query := `
		SELECT id, object_type, name, value_type, is_array, is_dictionary,
			created_at, updated_at
		FROM dynamic_properties
		WHERE object_type = ?
		ORDER BY name ASC`

	if err := r.db.Select(&properties, query, objectType); err != nil {
		return nil, fmt.Errorf("failed to get dynamic properties: %w", err)
	}
	return properties, nil
}

func (r *PropertyRepository) GetDictionaryItems(propertyID int) ([]models.DictionaryItem, error) {
	var items []models.DictionaryItem
	query := `
		SELECT id, property_id, name
		FROM dictionary_items
		WHERE property_id = ?
		ORDER BY name ASC`

	if err := r.db.Select(&items, query, propertyID); err != nil {
		return nil, fmt.Errorf("failed to get dictionary items: %w", err)
	}
	return items, nil
}
