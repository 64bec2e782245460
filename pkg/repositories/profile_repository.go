package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekaya-inc/haulflow/pkg/apperrors"
	"github.com/ekaya-inc/haulflow/pkg/database"
	"github.com/ekaya-inc/haulflow/pkg/models"
)

// ProfileRepository defines the interface for pipeline profile data access.
type ProfileRepository interface {
	// Create inserts a new profile. Returns apperrors.ErrConflict if the name is taken.
	Create(ctx context.Context, profile *models.Profile) error

	// GetByID returns a profile. Returns apperrors.ErrNotFound if it does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)

	// GetByName returns a profile by case-insensitive name.
	GetByName(ctx context.Context, name string) (*models.Profile, error)

	// List returns all profiles ordered by name.
	List(ctx context.Context) ([]*models.Profile, error)

	// Update replaces a profile's name and configuration.
	Update(ctx context.Context, profile *models.Profile) error

	// Delete removes a profile.
	Delete(ctx context.Context, id uuid.UUID) error

	// SetActive marks a profile active and every other profile inactive.
	SetActive(ctx context.Context, id uuid.UUID) error

	// GetActive returns the active profile. Returns apperrors.ErrNotFound if none is active.
	GetActive(ctx context.Context) (*models.Profile, error)
}

type profileRepository struct{}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository() ProfileRepository {
	return &profileRepository{}
}

var _ ProfileRepository = (*profileRepository)(nil)

const profileColumns = `id, name, mappings, enum_mappings, transformations, joins, filters,
		dedup_keys, is_active, created_at, updated_at`

func (r *profileRepository) Create(ctx context.Context, profile *models.Profile) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	doc, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	query := `
		INSERT INTO haulflow_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, $9, $10)`

	_, err = scope.Conn.Exec(ctx, query,
		profile.ID, profile.Name, doc.mappings, doc.enumMappings, doc.transformations,
		doc.joins, doc.filters, doc.dedupKeys, profile.CreatedAt, profile.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile %q: %w", profile.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	profile.IsActive = false

	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM haulflow_profiles WHERE id = $1`, id)
}

func (r *profileRepository) GetByName(ctx context.Context, name string) (*models.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM haulflow_profiles WHERE lower(name) = lower($1)`, name)
}

func (r *profileRepository) GetActive(ctx context.Context) (*models.Profile, error) {
	return r.getOne(ctx, `SELECT `+profileColumns+` FROM haulflow_profiles WHERE is_active`)
}

func (r *profileRepository) getOne(ctx context.Context, query string, args ...any) (*models.Profile, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	profile, err := scanProfile(scope.Conn.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

func (r *profileRepository) List(ctx context.Context) ([]*models.Profile, error) {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return nil, fmt.Errorf("no database scope in context")
	}

	rows, err := scope.Conn.Query(ctx, `SELECT `+profileColumns+` FROM haulflow_profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]*models.Profile, 0)
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating profiles: %w", err)
	}

	return profiles, nil
}

func (r *profileRepository) Update(ctx context.Context, profile *models.Profile) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	doc, err := encodeProfile(profile)
	if err != nil {
		return err
	}
	profile.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE haulflow_profiles
		SET name = $2, mappings = $3, enum_mappings = $4, transformations = $5,
			joins = $6, filters = $7, dedup_keys = $8, updated_at = $9
		WHERE id = $1`

	tag, err := scope.Conn.Exec(ctx, query,
		profile.ID, profile.Name, doc.mappings, doc.enumMappings, doc.transformations,
		doc.joins, doc.filters, doc.dedupKeys, profile.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("profile %q: %w", profile.Name, apperrors.ErrConflict)
		}
		return fmt.Errorf("failed to update profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *profileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tag, err := scope.Conn.Exec(ctx, `DELETE FROM haulflow_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}

func (r *profileRepository) SetActive(ctx context.Context, id uuid.UUID) error {
	scope, ok := database.GetScope(ctx)
	if !ok {
		return fmt.Errorf("no database scope in context")
	}

	tx, err := scope.Conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `UPDATE haulflow_profiles SET is_active = false WHERE is_active AND id <> $1`, id); err != nil {
		return fmt.Errorf("failed to clear active profile: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE haulflow_profiles SET is_active = true, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to activate profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit activation: %w", err)
	}
	return nil
}

// profileDocument holds the JSONB encodings of a profile's nested configuration.
type profileDocument struct {
	mappings        []byte
	enumMappings    []byte
	transformations []byte
	joins           []byte
	filters         []byte
	dedupKeys       []byte
}

func encodeProfile(p *models.Profile) (*profileDocument, error) {
	var doc profileDocument
	var err error

	if doc.mappings, err = marshalOr(p.Mappings, "{}"); err != nil {
		return nil, fmt.Errorf("failed to marshal mappings: %w", err)
	}
	if doc.enumMappings, err = marshalOr(p.EnumMappings, "{}"); err != nil {
		return nil, fmt.Errorf("failed to marshal enum mappings: %w", err)
	}
	// A nil transformations map is stored as SQL NULL: it disables the transform stage.
	if p.Transformations != nil {
		if doc.transformations, err = json.Marshal(p.Transformations); err != nil {
			return nil, fmt.Errorf("failed to marshal transformations: %w", err)
		}
	}
	if doc.joins, err = marshalOr(p.Joins, "[]"); err != nil {
		return nil, fmt.Errorf("failed to marshal joins: %w", err)
	}
	if doc.filters, err = marshalOr(p.Filters, "[]"); err != nil {
		return nil, fmt.Errorf("failed to marshal filters: %w", err)
	}
	if doc.dedupKeys, err = marshalOr(p.DedupKeys, "{}"); err != nil {
		return nil, fmt.Errorf("failed to marshal dedup keys: %w", err)
	}
	return &doc, nil
}

func marshalOr(v any, empty string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte(empty), nil
	}
	return data, nil
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	var mappings, enumMappings, transformations, joins, filters, dedupKeys []byte

	err := row.Scan(&p.ID, &p.Name, &mappings, &enumMappings, &transformations, &joins,
		&filters, &dedupKeys, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	fields := []struct {
		name string
		data []byte
		dst  any
	}{
		{"mappings", mappings, &p.Mappings},
		{"enum_mappings", enumMappings, &p.EnumMappings},
		{"transformations", transformations, &p.Transformations},
		{"joins", joins, &p.Joins},
		{"filters", filters, &p.Filters},
		{"dedup_keys", dedupKeys, &p.DedupKeys},
	}
	for _, f := range fields {
		if len(f.data) == 0 {
			continue
		}
		if err := json.Unmarshal(f.data, f.dst); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", f.name, err)
		}
	}

	return &p, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
