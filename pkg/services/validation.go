package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/haulflow/pkg/apperrors"
	"github.com/ekaya-inc/haulflow/pkg/models"
	"github.com/ekaya-inc/haulflow/pkg/repositories"
)

// DefaultMaxExcludedRows caps the excluded rows returned in a summary.
const DefaultMaxExcludedRows = 100

// PipelineConfig holds the tunables of a validation run.
type PipelineConfig struct {
	// MaxExcludedRows caps ValidationSummary.ExcludedByFilter; the count stays exact.
	MaxExcludedRows int
	// ReferenceLists supplies place names to location rules without their own list.
	ReferenceLists *ReferenceLists
}

// ValidationService runs the pipeline against stored profiles.
type ValidationService interface {
	// RunValidation runs the pipeline with the given profile.
	// Returns an error wrapping apperrors.ErrNotFound when the profile does not exist.
	RunValidation(ctx context.Context, profileID uuid.UUID, data models.SessionData, opts models.ValidationOptions) (*models.ValidationSummary, error)

	// RunActiveValidation runs the pipeline with the active profile.
	RunActiveValidation(ctx context.Context, data models.SessionData, opts models.ValidationOptions) (*models.ValidationSummary, error)
}

type validationService struct {
	profileRepo repositories.ProfileRepository
	cfg         PipelineConfig
	logger      *zap.Logger
}

// NewValidationService creates a new validation service.
func NewValidationService(profileRepo repositories.ProfileRepository, cfg PipelineConfig, logger *zap.Logger) ValidationService {
	return &validationService{
		profileRepo: profileRepo,
		cfg:         cfg,
		logger:      logger.Named("validation-service"),
	}
}

var _ ValidationService = (*validationService)(nil)

func (s *validationService) RunValidation(ctx context.Context, profileID uuid.UUID, data models.SessionData, opts models.ValidationOptions) (*models.ValidationSummary, error) {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("profile %s: %w", profileID, err)
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return RunPipeline(profile, data, opts, s.cfg, s.logger)
}

func (s *validationService) RunActiveValidation(ctx context.Context, data models.SessionData, opts models.ValidationOptions) (*models.ValidationSummary, error) {
	profile, err := s.profileRepo.GetActive(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNoActiveProfile
		}
		return nil, fmt.Errorf("failed to load active profile: %w", err)
	}
	return RunPipeline(profile, data, opts, s.cfg, s.logger)
}

// RunPipeline maps, normalizes, cleans, deduplicates, joins, validates and filters the
// session data with the given profile. Row-level problems never fail the run; they are
// reported in the summary. The only errors are configuration errors: a nil profile or
// a profile without any mapping.
func RunPipeline(profile *models.Profile, data models.SessionData, opts models.ValidationOptions, cfg PipelineConfig, logger *zap.Logger) (*models.ValidationSummary, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: profile is required", apperrors.ErrInvalidProfile)
	}
	if !profile.HasAnyMapping() {
		logger.Error("Validation aborted: profile has no mappings", zap.String("profile", profile.Name))
		return nil, fmt.Errorf("profile %q: %w", profile.Name, apperrors.ErrNoMappings)
	}
	if cfg.MaxExcludedRows <= 0 {
		cfg.MaxExcludedRows = DefaultMaxExcludedRows
	}

	runID := uuid.New()
	log := logger.With(zap.String("run_id", runID.String()), zap.String("profile", profile.Name))

	summary := &models.ValidationSummary{RunID: runID}
	warnedFields := newFieldSet()

	entityRows := make(map[models.EntityKind][]models.Row, 3)
	mappedQuotes := 0
	for _, kind := range models.AllEntities() {
		mapping := profile.MappingFor(kind)
		rows := MapRows(kind, data.Batch(kind).Rows, mapping)
		if kind == models.EntityQuote {
			mappedQuotes = len(rows)
		}

		normalized := NormalizeEnums(rows, kind, profile.EnumMappings)
		warnedFields.add(normalized.InvalidFields...)
		rows = normalized.Rows

		if profile.Transformations != nil {
			transformed := TransformRows(rows, kind, transformConfigFor(profile, kind), cfg.ReferenceLists)
			summary.TransformWarnings = append(summary.TransformWarnings, transformed.Warnings...)
			rows = transformed.Rows
		}

		if len(mapping) > 0 {
			key := profile.DedupKeyFor(kind)
			if _, mapped := mapping[key.IDField]; mapped {
				deduped := DedupeRows(rows, key.IDField, key.UpdatedAtField)
				summary.DedupWarnings = append(summary.DedupWarnings, deduped.Warnings...)
				rows = deduped.Rows
			} else {
				msg := fmt.Sprintf("%s: deduplication skipped, %s is not mapped", kind, key.IDField)
				summary.DedupWarnings = append(summary.DedupWarnings, msg)
				log.Warn("Deduplication skipped", zap.String("entity", string(kind)), zap.String("id_field", key.IDField))
			}
		}

		log.Debug("Entity prepared",
			zap.String("entity", string(kind)),
			zap.Int("source_rows", len(data.Batch(kind).Rows)),
			zap.Int("rows", len(rows)))
		entityRows[kind] = rows
	}

	joined := JoinRows(entityRows[models.EntityQuote], entityRows[models.EntityLoad], entityRows[models.EntityDriverVehicle], profile.Joins)
	summary.JoinSteps = joined.Steps
	summary.FlatColumns = joined.Columns
	for _, step := range joined.Steps {
		log.Debug("Join step",
			zap.String("join", step.Name),
			zap.Int("rows_before", step.RowsBefore),
			zap.Int("rows_after", step.RowsAfter))
	}

	validated := ValidateEnums(joined.Rows)
	warnedFields.add(validated.FieldsWithWarnings...)
	flat := validated.Rows

	rules := profile.Filters
	if opts.FiltersOverride != nil {
		rules = opts.FiltersOverride
	}
	rules, summary.FilterFieldWarnings = ValidateFilterFields(rules, joined.Columns)
	for _, w := range summary.FilterFieldWarnings {
		log.Warn("Filter rule skipped", zap.String("reason", w))
	}

	if !opts.JoinOnly {
		filtered := applyFilterGroups(flat, rules)
		flat = filtered.Rows

		excludedCount := len(filtered.Excluded)
		excluded := filtered.Excluded
		if len(excluded) > cfg.MaxExcludedRows {
			excluded = excluded[:cfg.MaxExcludedRows]
		}
		summary.ExcludedByFilter = excluded
		summary.ExcludedByFilterCount = &excludedCount
		summary.RuleEffects = filtered.Effects
		log.Debug("Filters applied", zap.Int("rules", len(rules)), zap.Int("excluded", excludedCount))
	}

	summary.FlatRows = flat
	summary.RowsSuccessful = len(flat)
	summary.RowsDropped = max(0, mappedQuotes-len(flat))
	summary.FieldsWithWarnings = warnedFields.list()
	computeCellDiagnostics(summary)
	fillEmptyLists(summary)

	log.Info("Validation completed",
		zap.Int("rows_successful", summary.RowsSuccessful),
		zap.Int("rows_dropped", summary.RowsDropped),
		zap.Int("fields_with_warnings", len(summary.FieldsWithWarnings)),
		zap.Bool("join_only", opts.JoinOnly))

	return summary, nil
}

// transformConfigFor returns the entity's cleaning rules. A profile whose
// transformations map is present but empty gets the schema defaults for every entity.
func transformConfigFor(profile *models.Profile, kind models.EntityKind) map[string]models.TransformRule {
	if len(profile.Transformations) == 0 {
		return DefaultTransformConfig(kind)
	}
	return profile.Transformations[kind]
}

// computeCellDiagnostics counts blank cells over the flat columns, lists the columns
// holding any, and counts the blank cells of enum-warned columns.
func computeCellDiagnostics(summary *models.ValidationSummary) {
	warned := make(map[string]bool, len(summary.FieldsWithWarnings))
	for _, f := range summary.FieldsWithWarnings {
		warned[f] = true
	}

	nullCells, warnedCells := 0, 0
	blankColumns := newFieldSet()
	for _, row := range summary.FlatRows {
		for _, col := range summary.FlatColumns {
			if !models.IsBlank(row[col]) {
				continue
			}
			nullCells++
			blankColumns.add(col)
			if warned[col] {
				warnedCells++
			}
		}
	}

	summary.NullOrEmptyCells = &nullCells
	summary.CellsWithWarnings = &warnedCells
	summary.NullOrErrorFields = blankColumns.list()
}

func fillEmptyLists(summary *models.ValidationSummary) {
	if summary.FieldsWithWarnings == nil {
		summary.FieldsWithWarnings = []string{}
	}
	if summary.DedupWarnings == nil {
		summary.DedupWarnings = []string{}
	}
	if summary.FilterFieldWarnings == nil {
		summary.FilterFieldWarnings = []string{}
	}
	if summary.FlatColumns == nil {
		summary.FlatColumns = []string{}
	}
	if summary.FlatRows == nil {
		summary.FlatRows = []models.Row{}
	}
}

// fieldSet is an insertion-ordered set of field names.
type fieldSet struct {
	seen  map[string]bool
	order []string
}

func newFieldSet() *fieldSet {
	return &fieldSet{seen: make(map[string]bool)}
}

func (s *fieldSet) add(fields ...string) {
	for _, f := range fields {
		if !s.seen[f] {
			s.seen[f] = true
			s.order = append(s.order, f)
		}
	}
}

func (s *fieldSet) list() []string {
	return s.order
}
