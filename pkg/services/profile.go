package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/haulflow/pkg/apperrors"
	"github.com/ekaya-inc/haulflow/pkg/models"
	"github.com/ekaya-inc/haulflow/pkg/repositories"
)

// customFieldName is the shape allowed for mapping targets outside the fixed schema.
var customFieldName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ProfileService manages saved pipeline profiles.
type ProfileService interface {
	List(ctx context.Context) ([]*models.Profile, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetActive(ctx context.Context) (*models.Profile, error)

	// Create validates and stores a new profile with a fresh ID.
	Create(ctx context.Context, profile *models.Profile) (*models.Profile, error)

	// Update validates and replaces the configuration of an existing profile.
	Update(ctx context.Context, id uuid.UUID, profile *models.Profile) (*models.Profile, error)

	Delete(ctx context.Context, id uuid.UUID) error

	// Activate makes the profile the one used by validation runs without a profile ID.
	Activate(ctx context.Context, id uuid.UUID) error

	// ExportYAML renders a profile as YAML without its identity and timestamps.
	ExportYAML(ctx context.Context, id uuid.UUID) ([]byte, error)

	// ImportYAML creates a new profile from YAML produced by ExportYAML.
	ImportYAML(ctx context.Context, data []byte) (*models.Profile, error)
}

type profileService struct {
	repo   repositories.ProfileRepository
	logger *zap.Logger
}

// NewProfileService creates a new profile service.
func NewProfileService(repo repositories.ProfileRepository, logger *zap.Logger) ProfileService {
	return &profileService{
		repo:   repo,
		logger: logger.Named("profile-service"),
	}
}

var _ ProfileService = (*profileService)(nil)

func (s *profileService) List(ctx context.Context) ([]*models.Profile, error) {
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return profiles, nil
}

func (s *profileService) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", id, err)
	}
	return profile, nil
}

func (s *profileService) GetActive(ctx context.Context) (*models.Profile, error) {
	profile, err := s.repo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNoActiveProfile
		}
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}
	return profile, nil
}

func (s *profileService) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	prepareProfile(profile)
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}

	profile.ID = uuid.New()
	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("Created profile",
		zap.String("profile_id", profile.ID.String()),
		zap.String("name", profile.Name))
	return profile, nil
}

func (s *profileService) Update(ctx context.Context, id uuid.UUID, profile *models.Profile) (*models.Profile, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", id, err)
	}

	prepareProfile(profile)
	if err := ValidateProfile(profile); err != nil {
		return nil, err
	}

	profile.ID = existing.ID
	profile.IsActive = existing.IsActive
	profile.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("Updated profile",
		zap.String("profile_id", id.String()),
		zap.String("name", profile.Name))
	return profile, nil
}

func (s *profileService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("profile %s: %w", id, err)
	}
	s.logger.Info("Deleted profile", zap.String("profile_id", id.String()))
	return nil
}

func (s *profileService) Activate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetActive(ctx, id); err != nil {
		return fmt.Errorf("profile %s: %w", id, err)
	}
	s.logger.Info("Activated profile", zap.String("profile_id", id.String()))
	return nil
}

func (s *profileService) ExportYAML(ctx context.Context, id uuid.UUID) ([]byte, error) {
	profile, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(profile)
	if err != nil {
		return nil, fmt.Errorf("failed to encode profile: %w", err)
	}
	return data, nil
}

func (s *profileService) ImportYAML(ctx context.Context, data []byte) (*models.Profile, error) {
	var profile models.Profile
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidProfile, err)
	}
	return s.Create(ctx, &profile)
}

// prepareProfile trims the name and gives every filter rule an ID.
func prepareProfile(p *models.Profile) {
	p.Name = strings.TrimSpace(p.Name)
	for i := range p.Filters {
		if p.Filters[i].ID == "" {
			p.Filters[i].ID = uuid.NewString()
		}
	}
}

// ValidateProfile checks a profile's configuration before it is stored. Errors wrap
// apperrors.ErrInvalidProfile.
func ValidateProfile(p *models.Profile) error {
	if p == nil {
		return fmt.Errorf("%w: profile is required", apperrors.ErrInvalidProfile)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", apperrors.ErrInvalidProfile)
	}

	for kind, mapping := range p.Mappings {
		if !models.IsValidEntity(kind) {
			return invalidProfile("mappings: unknown entity %q", kind)
		}
		for target, source := range mapping {
			if _, known := models.FindField(kind, target); !known && !customFieldName.MatchString(target) {
				return invalidProfile("mappings.%s: invalid target field %q", kind, target)
			}
			if strings.TrimSpace(source) == "" {
				return invalidProfile("mappings.%s.%s: source column is empty", kind, target)
			}
		}
	}

	for kind, fields := range p.EnumMappings {
		enumFields := models.EnumFieldsFor(kind)
		if enumFields == nil {
			return invalidProfile("enum_mappings: unknown entity %q", kind)
		}
		for field, values := range fields {
			canonical, ok := enumFields[field]
			if !ok {
				return invalidProfile("enum_mappings.%s: %q is not an enum field", kind, field)
			}
			for raw, target := range values {
				if _, ok := models.IsCanonical(target, canonical); !ok {
					return invalidProfile("enum_mappings.%s.%s: %q maps to non-canonical value %q", kind, field, raw, target)
				}
			}
		}
	}

	for kind, rules := range p.Transformations {
		if !models.IsValidEntity(kind) {
			return invalidProfile("transformations: unknown entity %q", kind)
		}
		for field, rule := range rules {
			if !models.IsValidTransformType(rule.Type) {
				return invalidProfile("transformations.%s.%s: unknown type %q", kind, field, rule.Type)
			}
		}
	}

	for i, j := range p.Joins {
		if !models.IsValidEntity(j.LeftEntity) || !models.IsValidEntity(j.RightEntity) {
			return invalidProfile("joins[%d]: unknown entity", i)
		}
		if j.LeftEntity == j.RightEntity {
			return invalidProfile("joins[%d]: an entity cannot join itself", i)
		}
	}

	for i, f := range p.Filters {
		if f.Type != models.FilterInclusion && f.Type != models.FilterExclusion {
			return invalidProfile("filters[%d]: type must be inclusion or exclusion", i)
		}
		if f.Structured == nil {
			if strings.TrimSpace(f.Rule) == "" {
				return invalidProfile("filters[%d]: rule text or structured filter is required", i)
			}
			continue
		}
		if f.Structured.Field == "" {
			return invalidProfile("filters[%d]: field is required", i)
		}
		if !models.IsValidFilterOp(f.Structured.Op) {
			return invalidProfile("filters[%d]: unknown operator %q", i, f.Structured.Op)
		}
	}

	for kind := range p.DedupKeys {
		if !models.IsValidEntity(kind) {
			return invalidProfile("dedup_keys: unknown entity %q", kind)
		}
	}

	return nil
}

func invalidProfile(format string, args ...any) error {
	return fmt.Errorf("%w: %s", apperrors.ErrInvalidProfile, fmt.Sprintf(format, args...))
}
