package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/nebari-dev/crmkit/internal/models"
)

// CreateCompany inserts a tenant.
func (s *Store) CreateCompany(ctx context.Context, c *models.Company) error {
	return wrap("creating company", s.with(ctx).Create(c).Error)
}

// GetCompany returns a tenant by ID.
func (s *Store) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var c models.Company
	if err := s.with(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, wrap("getting company", err)
	}
	return &c, nil
}

// ListCompanies returns all tenants.
func (s *Store) ListCompanies(ctx context.Context) ([]models.Company, error) {
	var companies []models.Company
	if err := s.with(ctx).Order("name ASC").Find(&companies).Error; err != nil {
		return nil, wrap("listing companies", err)
	}
	return companies, nil
}
