// Package primary defines the primary ports (driving interfaces) for the
// application, plus their request/response types.
package primary

import (
	"context"

	"github.com/example/requeue/internal/models"
)

// RegistryService defines the primary port for building and reading the
// registry.
type RegistryService interface {
	// InitFromSourceLists scans sourceDir for authoritative file lists
	// and bulk-upserts one item per discovered entry.
	InitFromSourceLists(ctx context.Context, sourceDir string) (*InitReport, error)

	// Summary aggregates registry coverage for the status report.
	Summary(ctx context.Context, focus models.Pipeline) (models.SummaryStats, error)

	// ExportMissing returns the records still missing the pipeline, in
	// deterministic (partition_key, id) order.
	ExportMissing(ctx context.Context, pipeline models.Pipeline) ([]models.ItemRecord, error)

	// Count returns the total number of registered items.
	Count(ctx context.Context) (int, error)
}

// InitReport summarizes one init run.
type InitReport struct {
	ListsScanned int
	RowsRead     int
	Inserted     int
	Updated      int
	Skipped      int // rows with unparseable identifiers
}

// UpdaterService defines the primary port for ingesting pipeline output
// artifacts.
type UpdaterService interface {
	// Update scans the given artifact locations (files or directories)
	// for one pipeline's output and flips the corresponding flags.
	Update(ctx context.Context, pipeline models.Pipeline, locations []string) (*UpdateReport, error)
}

// UpdateReport summarizes one ingestion run. A low Matched/Found ratio
// signals a provenance or partitioning mismatch and is surfaced loudly.
type UpdateReport struct {
	ArtifactsScanned int
	ArtifactsSkipped int // schema mismatch: no recognized id column
	Found            int // distinct canonical ids in the artifacts
	Matched          int // ids present in the registry
	Flipped          int // flags actually transitioned false -> true
	Enriched         int
	InvalidIDs       int
	LowMatchRate     bool
}
