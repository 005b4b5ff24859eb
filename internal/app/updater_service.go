package app

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/example/requeue/internal/adapters/artifacts"
	"github.com/example/requeue/internal/ident"
	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/ports/primary"
	"github.com/example/requeue/internal/ports/secondary"
)

// enrichmentSpec maps a pipeline to the enrichment column it may carry.
// Pipelines absent here flip flags only.
type enrichmentSpec struct {
	field    secondary.EnrichmentField
	variants []string
}

var enrichmentFor = map[models.Pipeline]enrichmentSpec{
	models.PipelineOddpub:   {secondary.EnrichClassification, []string{"is_open_data", "open_data", "classification"}},
	models.PipelineLicenses: {secondary.EnrichLicenseClass, []string{"license", "license_class"}},
}

// lowMatchThreshold: below this matched/found ratio the scan is flagged as
// a likely provenance or partitioning mismatch.
const lowMatchThreshold = 0.5

// UpdaterServiceImpl implements the UpdaterService interface.
type UpdaterServiceImpl struct {
	store secondary.RegistryStore
	log   *zap.SugaredLogger
}

var _ primary.UpdaterService = (*UpdaterServiceImpl)(nil)

// NewUpdaterService creates an UpdaterService with injected dependencies.
func NewUpdaterService(store secondary.RegistryStore, log *zap.SugaredLogger) *UpdaterServiceImpl {
	return &UpdaterServiceImpl{store: store, log: log}
}

// Update scans one pipeline's output artifacts and flips the registry
// flags for every distinct id found. Artifacts missing the id column are
// skipped with a warning; unparseable ids are counted and skipped. The
// whole set of ids is marked in one store call, so a crash mid-run leaves
// no partial flag set and re-running is safe.
func (s *UpdaterServiceImpl) Update(ctx context.Context, pipeline models.Pipeline, locations []string) (*primary.UpdateReport, error) {
	files, err := artifacts.FindColumnar(locations)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, models.Errorf(models.ErrNoWork, "no artifacts under %v", locations)
	}

	spec, hasEnrich := enrichmentFor[pipeline]
	var enrichVariants []string
	if hasEnrich {
		enrichVariants = spec.variants
	}

	report := &primary.UpdateReport{}
	idSet := make(map[string]struct{})
	enrich := make(map[string]string)

	for _, path := range files {
		art, err := artifacts.ReadArtifact(path, enrichVariants)
		if err != nil {
			if errors.Is(err, models.ErrSchemaMismatch) {
				s.log.Warnw("skipping artifact", "path", path, "error", err)
				report.ArtifactsSkipped++
				continue
			}
			return nil, err
		}
		report.ArtifactsScanned++

		for _, raw := range art.RawIDs {
			id, err := ident.Normalize(raw)
			if err != nil {
				report.InvalidIDs++
				continue
			}
			idSet[id] = struct{}{}
			if v, ok := art.Enrich[raw]; ok {
				enrich[id] = v
			}
		}
	}

	ids := make([]string, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	report.Found = len(ids)

	if len(ids) == 0 {
		s.log.Infow("no ids found in artifacts", "pipeline", pipeline, "artifacts", report.ArtifactsScanned)
		return report, nil
	}

	mark, err := s.store.MarkComplete(ctx, pipeline, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to mark %s complete: %w", pipeline, err)
	}
	report.Matched = mark.Matched
	report.Flipped = mark.Flipped

	if hasEnrich && len(enrich) > 0 {
		n, err := s.store.SetEnrichment(ctx, spec.field, enrich)
		if err != nil {
			return nil, fmt.Errorf("failed to store %s enrichment: %w", spec.field, err)
		}
		report.Enriched = n
	}

	if float64(report.Matched) < lowMatchThreshold*float64(report.Found) {
		report.LowMatchRate = true
		s.log.Warnw("low match rate: artifact ids barely overlap the registry, check provenance/partitioning",
			"pipeline", pipeline,
			"found", report.Found,
			"matched", report.Matched,
		)
	}

	s.log.Infow("update complete",
		"pipeline", pipeline,
		"artifacts", report.ArtifactsScanned,
		"skipped_artifacts", report.ArtifactsSkipped,
		"found", report.Found,
		"matched", report.Matched,
		"flipped", report.Flipped,
		"invalid_ids", report.InvalidIDs,
	)
	return report, nil
}
