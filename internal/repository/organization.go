package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
)

type OrganizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// Create creates a new organization
func (r *OrganizationRepository) Create(o *models.Organization) error {
	if o.ID == "" {
		o.ID = uuid.New().String()
	}
	if o.Plan == "" {
		o.Plan = "free"
	}
	if o.Settings == "" {
		o.Settings = "{}"
	}
	o.CreatedAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO organizations (id, name, slug, plan, settings, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.Name, o.Slug, o.Plan, o.Settings, o.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("organization %s: %w", o.Slug, errs.ErrConflict)
		}
		return fmt.Errorf("failed to create organization: %w", err)
	}
	return nil
}

// GetByID returns an organization by ID, or nil if absent
func (r *OrganizationRepository) GetByID(id string) (*models.Organization, error) {
	return r.getOne("SELECT id, name, slug, plan, COALESCE(settings, '{}'), created_at FROM organizations WHERE id = ?", id)
}

// GetBySlug returns an organization by slug, or nil if absent
func (r *OrganizationRepository) GetBySlug(slug string) (*models.Organization, error) {
	return r.getOne("SELECT id, name, slug, plan, COALESCE(settings, '{}'), created_at FROM organizations WHERE slug = ?", slug)
}

func (r *OrganizationRepository) getOne(query string, args ...any) (*models.Organization, error) {
	o := &models.Organization{}
	err := r.db.QueryRow(query, args...).Scan(&o.ID, &o.Name, &o.Slug, &o.Plan, &o.Settings, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// List returns all organizations
func (r *OrganizationRepository) List() ([]models.Organization, error) {
	rows, err := r.db.Query("SELECT id, name, slug, plan, COALESCE(settings, '{}'), created_at FROM organizations ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := []models.Organization{}
	for rows.Next() {
		var o models.Organization
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.Plan, &o.Settings, &o.CreatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}
