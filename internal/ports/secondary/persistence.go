// Package secondary defines the secondary ports (driven adapters) for the
// application: the interfaces through which it drives external systems.
package secondary

import (
	"context"

	"github.com/example/requeue/internal/models"
)

// RegistryStore defines the secondary port for registry persistence.
//
// Concurrency contract: single writer, multiple readers. Implementations
// must serialize Init/MarkComplete/SetEnrichment against other writer
// processes (an enforced advisory lock, not an assumption). Missing and
// Summary may run concurrently with each other.
type RegistryStore interface {
	// Init bulk-upserts item records. Idempotent: re-running with
	// different provenance refreshes provenance and enrichment fields but
	// never clears a pipeline flag and never changes partition_key.
	Init(ctx context.Context, records []models.ItemRecord) (InitResult, error)

	// MarkComplete sets the pipeline flag and completion timestamp for
	// the given ids, in one transaction. Flags are monotonic: ids whose
	// flag is already set keep their original timestamp. Ids not present
	// in the store are ignored and surface only through Matched.
	MarkComplete(ctx context.Context, pipeline models.Pipeline, ids []string) (MarkResult, error)

	// SetEnrichment writes one enrichment field (classification or
	// license_class) for the given id -> value pairs. Returns the number
	// of rows updated.
	SetEnrichment(ctx context.Context, field EnrichmentField, values map[string]string) (int, error)

	// Missing returns all records whose flag for the pipeline is false,
	// ordered by partition_key then id so batching is deterministic.
	Missing(ctx context.Context, pipeline models.Pipeline) ([]models.ItemRecord, error)

	// Summary aggregates coverage: total count, per-pipeline completed
	// counts, and the per-partition breakdown for the focus pipeline.
	Summary(ctx context.Context, focus models.Pipeline) (models.SummaryStats, error)

	// Count returns the total number of registered items.
	Count(ctx context.Context) (int, error)
}

// EnrichmentField names a column a pipeline is allowed to enrich.
type EnrichmentField string

const (
	EnrichClassification EnrichmentField = "classification"
	EnrichLicenseClass   EnrichmentField = "license_class"
)

// InitResult reports what a bulk upsert did.
type InitResult struct {
	Inserted int
	Updated  int
}

// MarkResult reports what a MarkComplete call did. Matched counts ids
// present in the registry; Flipped counts flags that actually transitioned
// false -> true (re-runs flip nothing).
type MarkResult struct {
	Matched int
	Flipped int
}
