package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/ekaya-inc/haulflow/pkg/apperrors"
	"github.com/ekaya-inc/haulflow/pkg/models"
	"github.com/ekaya-inc/haulflow/pkg/services"
)

// noScope runs handlers without a database scope; the mocks below never touch one.
func noScope(next http.HandlerFunc) http.HandlerFunc {
	return next
}

// mockProfileService is a configurable mock for profile handler tests.
type mockProfileService struct {
	profiles   map[uuid.UUID]*models.Profile
	activeID   uuid.UUID
	exported   []byte
	imported   []byte
	err        error
	lastUpdate *models.Profile
}

var _ services.ProfileService = (*mockProfileService)(nil)

func newMockProfileService(profiles ...*models.Profile) *mockProfileService {
	m := &mockProfileService{profiles: make(map[uuid.UUID]*models.Profile)}
	for _, p := range profiles {
		m.profiles[p.ID] = p
	}
	return m
}

func (m *mockProfileService) List(ctx context.Context) ([]*models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockProfileService) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func (m *mockProfileService) GetActive(ctx context.Context) (*models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[m.activeID]
	if !ok {
		return nil, apperrors.ErrNoActiveProfile
	}
	return p, nil
}

func (m *mockProfileService) Create(ctx context.Context, profile *models.Profile) (*models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	if profile.Name == "" {
		return nil, apperrors.ErrInvalidProfile
	}
	profile.ID = uuid.New()
	m.profiles[profile.ID] = profile
	return profile, nil
}

func (m *mockProfileService) Update(ctx context.Context, id uuid.UUID, profile *models.Profile) (*models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.profiles[id]; !ok {
		return nil, apperrors.ErrNotFound
	}
	profile.ID = id
	m.profiles[id] = profile
	m.lastUpdate = profile
	return profile, nil
}

func (m *mockProfileService) Delete(ctx context.Context, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.profiles[id]; !ok {
		return apperrors.ErrNotFound
	}
	delete(m.profiles, id)
	return nil
}

func (m *mockProfileService) Activate(ctx context.Context, id uuid.UUID) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.profiles[id]; !ok {
		return apperrors.ErrNotFound
	}
	m.activeID = id
	return nil
}

func (m *mockProfileService) ExportYAML(ctx context.Context, id uuid.UUID) ([]byte, error) {
	if _, err := m.Get(ctx, id); err != nil {
		return nil, err
	}
	return m.exported, nil
}

func (m *mockProfileService) ImportYAML(ctx context.Context, data []byte) (*models.Profile, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.imported = data
	return m.Create(ctx, &models.Profile{Name: "Imported"})
}

// mockValidationService records which run method was called.
type mockValidationService struct {
	summary       *models.ValidationSummary
	err           error
	lastProfileID uuid.UUID
	usedActive    bool
	lastData      models.SessionData
	lastOpts      models.ValidationOptions
}

var _ services.ValidationService = (*mockValidationService)(nil)

func (m *mockValidationService) RunValidation(ctx context.Context, profileID uuid.UUID, data models.SessionData, opts models.ValidationOptions) (*models.ValidationSummary, error) {
	m.lastProfileID = profileID
	m.lastData = data
	m.lastOpts = opts
	return m.summary, m.err
}

func (m *mockValidationService) RunActiveValidation(ctx context.Context, data models.SessionData, opts models.ValidationOptions) (*models.ValidationSummary, error) {
	m.usedActive = true
	m.lastData = data
	m.lastOpts = opts
	return m.summary, m.err
}
