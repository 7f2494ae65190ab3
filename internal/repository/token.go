package repository

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/leadwire/leadwire/internal/errs"
	"github.com/leadwire/leadwire/internal/models"
)

type TokenRepository struct {
	db *sql.DB
}

func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// Create stores a token record. The caller supplies the hash; the raw secret
// never touches the database.
func (r *TokenRepository) Create(t *models.Token) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.CreatedAt = time.Now()
	t.Active = true

	_, err := r.db.Exec(`
		INSERT INTO tokens (id, organization_id, name, token_hash, token_prefix, created_at, expires_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1)`,
		t.ID, t.OrganizationID, t.Name, t.TokenHash, t.TokenPrefix, t.CreatedAt, t.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// GetByHash looks up an active token by its hash, or nil if absent
func (r *TokenRepository) GetByHash(hash string) (*models.Token, error) {
	t := &models.Token{}
	var lastUsedAt, expiresAt sql.NullTime
	err := r.db.QueryRow(`
		SELECT id, organization_id, name, token_hash, token_prefix, created_at, last_used_at, expires_at, active
		FROM tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.OrganizationID, &t.Name, &t.TokenHash, &t.TokenPrefix,
		&t.CreatedAt, &lastUsedAt, &expiresAt, &t.Active)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastUsedAt.Valid {
		t.LastUsedAt = &lastUsedAt.Time
	}
	if expiresAt.Valid {
		t.ExpiresAt = &expiresAt.Time
	}
	return t, nil
}

// Touch records token usage
func (r *TokenRepository) Touch(id string) error {
	_, err := r.db.Exec("UPDATE tokens SET last_used_at = CURRENT_TIMESTAMP WHERE id = ?", id)
	return err
}

// ListByOrg returns an organization's tokens
func (r *TokenRepository) ListByOrg(orgID string) ([]models.Token, error) {
	rows, err := r.db.Query(`
		SELECT id, organization_id, name, token_hash, token_prefix, created_at, last_used_at, expires_at, active
		FROM tokens WHERE organization_id = ? ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := []models.Token{}
	for rows.Next() {
		var t models.Token
		var lastUsedAt, expiresAt sql.NullTime
		err := rows.Scan(&t.ID, &t.OrganizationID, &t.Name, &t.TokenHash, &t.TokenPrefix,
			&t.CreatedAt, &lastUsedAt, &expiresAt, &t.Active)
		if err != nil {
			return nil, err
		}
		if lastUsedAt.Valid {
			t.LastUsedAt = &lastUsedAt.Time
		}
		if expiresAt.Valid {
			t.ExpiresAt = &expiresAt.Time
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}

// Revoke deactivates a token
func (r *TokenRepository) Revoke(id string) error {
	res, err := r.db.Exec("UPDATE tokens SET active = 0 WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("token %s: %w", id, errs.ErrNotFound)
	}
	return nil
}

// Authenticate resolves a raw bearer credential to its owning organization.
// Invalid, revoked or expired tokens return errs.ErrUnauthenticated.
func (r *TokenRepository) Authenticate(raw string) (string, error) {
	if raw == "" {
		return "", errs.ErrUnauthenticated
	}
	t, err := r.GetByHash(HashToken(raw))
	if err != nil {
		return "", err
	}
	if t == nil || !t.Active || t.Expired(time.Now()) {
		return "", errs.ErrUnauthenticated
	}
	_ = r.Touch(t.ID)
	return t.OrganizationID, nil
}

// HashToken returns the hex SHA-256 of a raw token
func HashToken(raw string) string {
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:])
}
