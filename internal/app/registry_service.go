// Package app implements the primary ports: registry building, artifact
// ingestion, queue reconciliation, and retry batch planning.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/requeue/internal/adapters/artifacts"
	"github.com/example/requeue/internal/ident"
	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/ports/primary"
	"github.com/example/requeue/internal/ports/secondary"
)

// RegistryServiceImpl implements the RegistryService interface.
type RegistryServiceImpl struct {
	store secondary.RegistryStore
	log   *zap.SugaredLogger
}

var _ primary.RegistryService = (*RegistryServiceImpl)(nil)

// NewRegistryService creates a RegistryService with injected dependencies.
func NewRegistryService(store secondary.RegistryStore, log *zap.SugaredLogger) *RegistryServiceImpl {
	return &RegistryServiceImpl{store: store, log: log}
}

// InitFromSourceLists builds the registry from the authoritative file
// lists under sourceDir. Idempotent: re-running upserts provenance, never
// deletes rows or clears flags. Lists that cannot be parsed are skipped
// with a warning; rows with unparseable identifiers are counted and
// skipped.
func (s *RegistryServiceImpl) InitFromSourceLists(ctx context.Context, sourceDir string) (*primary.InitReport, error) {
	lists, err := artifacts.FindColumnar([]string{sourceDir})
	if err != nil {
		return nil, err
	}
	if len(lists) == 0 {
		return nil, models.Errorf(models.ErrNoWork, "no file lists under %s", sourceDir)
	}

	report := &primary.InitReport{}
	var records []models.ItemRecord

	for _, path := range lists {
		list, err := artifacts.ReadFileList(path)
		if err != nil {
			if errors.Is(err, models.ErrSchemaMismatch) {
				s.log.Warnw("skipping unreadable file list", "path", path, "error", err)
				continue
			}
			return nil, err
		}
		report.ListsScanned++
		shard := artifacts.ShardToken(path)
		archive := artifacts.ArchiveNameFor(path)

		for _, row := range list.Rows {
			report.RowsRead++
			id, err := ident.Normalize(row.RawID)
			if err != nil {
				report.Skipped++
				continue
			}
			partition := shard
			if partition == "" {
				partition = ident.PartitionFor(id)
			}
			records = append(records, models.ItemRecord{
				ID:             id,
				PartitionKey:   partition,
				SourcePath:     row.File,
				SourceArchive:  archive,
				SourceManifest: path,
				LicenseClass:   row.License,
			})
		}
	}

	if len(records) == 0 {
		return nil, models.Errorf(models.ErrNoWork, "no usable rows in %d lists under %s", report.ListsScanned, sourceDir)
	}

	result, err := s.store.Init(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize registry: %w", err)
	}
	report.Inserted = result.Inserted
	report.Updated = result.Updated

	s.log.Infow("registry init complete",
		"lists", report.ListsScanned,
		"rows", report.RowsRead,
		"inserted", report.Inserted,
		"updated", report.Updated,
		"skipped", report.Skipped,
	)
	return report, nil
}

// Summary aggregates registry coverage.
func (s *RegistryServiceImpl) Summary(ctx context.Context, focus models.Pipeline) (models.SummaryStats, error) {
	return s.store.Summary(ctx, focus)
}

// ExportMissing returns the records still missing the pipeline.
func (s *RegistryServiceImpl) ExportMissing(ctx context.Context, pipeline models.Pipeline) ([]models.ItemRecord, error) {
	return s.store.Missing(ctx, pipeline)
}

// Count returns the total number of registered items.
func (s *RegistryServiceImpl) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
