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

type LeadRepository struct {
	db *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

// Create creates a new lead. Duplicate email within the organization returns
// errs.ErrConflict.
func (r *LeadRepository) Create(l *models.Lead) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	if l.Status == "" {
		l.Status = models.LeadStatusNew
	}
	l.CreatedAt = time.Now()
	l.UpdatedAt = l.CreatedAt

	_, err := r.db.Exec(`
		INSERT INTO leads (id, organization_id, email, phone, first_name, last_name, status, source, response_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OrganizationID, l.Email, l.Phone, l.FirstName, l.LastName, l.Status, l.Source, l.ResponseCount, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("lead %s: %w", l.Email, errs.ErrConflict)
		}
		return fmt.Errorf("failed to create lead: %w", err)
	}
	return nil
}

// GetByID returns a lead by ID within an organization, or nil if absent
func (r *LeadRepository) GetByID(orgID, id string) (*models.Lead, error) {
	return r.getOne(`SELECT `+leadColumns+` FROM leads WHERE organization_id = ? AND id = ?`, orgID, id)
}

// GetByEmail returns a lead by (organization, email), or nil if absent
func (r *LeadRepository) GetByEmail(orgID, email string) (*models.Lead, error) {
	return r.getOne(`SELECT `+leadColumns+` FROM leads WHERE organization_id = ? AND email = ?`, orgID, email)
}

const leadColumns = `id, organization_id, email, COALESCE(phone, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
	status, COALESCE(source, ''), response_count, last_contacted_at, converted_at, created_at, updated_at`

func (r *LeadRepository) getOne(query string, args ...any) (*models.Lead, error) {
	l := &models.Lead{}
	var lastContactedAt, convertedAt sql.NullTime
	err := r.db.QueryRow(query, args...).Scan(
		&l.ID, &l.OrganizationID, &l.Email, &l.Phone, &l.FirstName, &l.LastName,
		&l.Status, &l.Source, &l.ResponseCount, &lastContactedAt, &convertedAt, &l.CreatedAt, &l.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastContactedAt.Valid {
		l.LastContactedAt = &lastContactedAt.Time
	}
	if convertedAt.Valid {
		l.ConvertedAt = &convertedAt.Time
	}
	return l, nil
}

// List returns leads for an organization with optional filtering
func (r *LeadRepository) List(orgID string, filter models.LeadListFilter) ([]models.Lead, int, error) {
	where := "WHERE organization_id = ?"
	args := []any{orgID}

	if filter.Status != "" {
		where += " AND status = ?"
		args = append(args, filter.Status)
	}
	if filter.Search != "" {
		where += " AND (email LIKE ? OR first_name LIKE ? OR last_name LIKE ?)"
		s := "%" + filter.Search + "%"
		args = append(args, s, s, s)
	}
	if filter.CreatedFrom != nil {
		where += " AND created_at >= ?"
		args = append(args, *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		where += " AND created_at < ?"
		args = append(args, *filter.CreatedTo)
	}

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM leads "+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + leadColumns + " FROM leads " + where + " ORDER BY created_at DESC"
	if filter.Take > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Take)
	}
	if filter.Skip > 0 {
		if filter.Take <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Skip)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	leads := []models.Lead{}
	for rows.Next() {
		var l models.Lead
		var lastContactedAt, convertedAt sql.NullTime
		err := rows.Scan(
			&l.ID, &l.OrganizationID, &l.Email, &l.Phone, &l.FirstName, &l.LastName,
			&l.Status, &l.Source, &l.ResponseCount, &lastContactedAt, &convertedAt, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		if lastContactedAt.Valid {
			l.LastContactedAt = &lastContactedAt.Time
		}
		if convertedAt.Valid {
			l.ConvertedAt = &convertedAt.Time
		}
		leads = append(leads, l)
	}

	return leads, total, rows.Err()
}

// Update updates a lead's mutable fields
func (r *LeadRepository) Update(l *models.Lead) error {
	l.UpdatedAt = time.Now()
	res, err := r.db.Exec(`
		UPDATE leads SET email = ?, phone = ?, first_name = ?, last_name = ?, status = ?, source = ?,
			last_contacted_at = ?, converted_at = ?, updated_at = ?
		WHERE organization_id = ? AND id = ?`,
		l.Email, l.Phone, l.FirstName, l.LastName, l.Status, l.Source,
		l.LastContactedAt, l.ConvertedAt, l.UpdatedAt, l.OrganizationID, l.ID,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("lead %s: %w", l.Email, errs.ErrConflict)
		}
		return fmt.Errorf("failed to update lead: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("lead %s: %w", l.ID, errs.ErrNotFound)
	}
	return nil
}

// Delete removes a lead
func (r *LeadRepository) Delete(orgID, id string) error {
	res, err := r.db.Exec("DELETE FROM leads WHERE organization_id = ? AND id = ?", orgID, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("lead %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// IncrementResponseCount applies an atomic read-modify-write on the response
// counter. Called once per inbound message. A lead still in new or contacted
// advances to engaged; later statuses never regress.
func (r *LeadRepository) IncrementResponseCount(id string) error {
	_, err := r.db.Exec(`
		UPDATE leads SET
			response_count = response_count + 1,
			status = CASE WHEN status IN ('new', 'contacted') THEN 'engaged' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, id)
	return err
}

// MarkContacted stamps last_contacted_at and moves a new lead to contacted.
// Later statuses never regress.
func (r *LeadRepository) MarkContacted(id string, at time.Time) error {
	_, err := r.db.Exec(`
		UPDATE leads SET
			status = CASE WHEN status = 'new' THEN 'contacted' ELSE status END,
			last_contacted_at = ?,
			updated_at = ?
		WHERE id = ?`, at, at, id)
	return err
}

// MarkConverted transitions a lead to converted and stamps converted_at
func (r *LeadRepository) MarkConverted(orgID, id string, at time.Time) error {
	res, err := r.db.Exec(`
		UPDATE leads SET status = ?, converted_at = ?, updated_at = ?
		WHERE organization_id = ? AND id = ?`,
		models.LeadStatusConverted, at, at, orgID, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("lead %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// FunnelCounts holds the raw counts behind the lead funnel
type FunnelCounts struct {
	Total     int
	Contacted int
	Engaged   int
	Qualified int
	Converted int
}

// FunnelCounts counts funnel stages in one pass, optionally windowed on
// creation timestamps. Numerators and denominators are read together so a
// concurrent mutation yields a consistent snapshot.
func (r *LeadRepository) FunnelCounts(orgID string, from, to *time.Time) (FunnelCounts, error) {
	where := "WHERE organization_id = ?"
	args := []any{orgID}
	if from != nil {
		where += " AND created_at >= ?"
		args = append(args, *from)
	}
	if to != nil {
		where += " AND created_at < ?"
		args = append(args, *to)
	}

	var fc FunnelCounts
	err := r.db.QueryRow(`
		SELECT COUNT(*),
			COUNT(CASE WHEN status != 'new' THEN 1 END),
			COUNT(CASE WHEN response_count > 0 THEN 1 END),
			COUNT(CASE WHEN status = 'qualified' THEN 1 END),
			COUNT(CASE WHEN status = 'converted' THEN 1 END)
		FROM leads `+where, args...,
	).Scan(&fc.Total, &fc.Contacted, &fc.Engaged, &fc.Qualified, &fc.Converted)
	return fc, err
}

// CountByStatus counts leads in one status
func (r *LeadRepository) CountByStatus(orgID string, status models.LeadStatus) (int, error) {
	var n int
	err := r.db.QueryRow("SELECT COUNT(*) FROM leads WHERE organization_id = ? AND status = ?", orgID, status).Scan(&n)
	return n, err
}

// CountConvertedSince counts conversions after a point in time
func (r *LeadRepository) CountConvertedSince(orgID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM leads
		WHERE organization_id = ? AND status = 'converted' AND converted_at >= ?`, orgID, since).Scan(&n)
	return n, err
}

// StatusDistribution groups lead counts by status
func (r *LeadRepository) StatusDistribution(orgID string, from, to *time.Time) (map[string]int, error) {
	return r.distribution("status", orgID, from, to)
}

// SourceDistribution groups lead counts by acquisition source
func (r *LeadRepository) SourceDistribution(orgID string, from, to *time.Time) (map[string]int, error) {
	return r.distribution("COALESCE(NULLIF(source, ''), 'unknown')", orgID, from, to)
}

func (r *LeadRepository) distribution(expr, orgID string, from, to *time.Time) (map[string]int, error) {
	where := "WHERE organization_id = ?"
	args := []any{orgID}
	if from != nil {
		where += " AND created_at >= ?"
		args = append(args, *from)
	}
	if to != nil {
		where += " AND created_at < ?"
		args = append(args, *to)
	}

	rows, err := r.db.Query("SELECT "+expr+", COUNT(*) FROM leads "+where+" GROUP BY 1", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dist := map[string]int{}
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		dist[key] = count
	}
	return dist, rows.Err()
}

// DailyCount is one day of lead acquisition
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyAcquisition groups lead creation by calendar day
func (r *LeadRepository) DailyAcquisition(orgID string, from, to *time.Time) ([]DailyCount, error) {
	where := "WHERE organization_id = ?"
	args := []any{orgID}
	if from != nil {
		where += " AND created_at >= ?"
		args = append(args, *from)
	}
	if to != nil {
		where += " AND created_at < ?"
		args = append(args, *to)
	}

	rows, err := r.db.Query(`
		SELECT DATE(created_at), COUNT(*) FROM leads `+where+`
		GROUP BY DATE(created_at) ORDER BY 1 ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	daily := []DailyCount{}
	for rows.Next() {
		var d DailyCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, err
		}
		daily = append(daily, d)
	}
	return daily, rows.Err()
}

// AverageResponseCount is the mean response count across leads (0 if none)
func (r *LeadRepository) AverageResponseCount(orgID string, from, to *time.Time) (float64, error) {
	where := "WHERE organization_id = ?"
	args := []any{orgID}
	if from != nil {
		where += " AND created_at >= ?"
		args = append(args, *from)
	}
	if to != nil {
		where += " AND created_at < ?"
		args = append(args, *to)
	}

	var avg sql.NullFloat64
	err := r.db.QueryRow("SELECT AVG(response_count) FROM leads "+where, args...).Scan(&avg)
	if err != nil {
		return 0, err
	}
	return avg.Float64, nil
}
