// Package models contains the domain types shared across ports, adapters,
// and services.
package models

import "time"

// Pipeline identifies one downstream process tracked by the registry.
// The set is closed: adding a pipeline is a schema migration, never an
// ad hoc column.
type Pipeline string

const (
	PipelineXML      Pipeline = "xml"
	PipelineMetadata Pipeline = "metadata"
	PipelineOddpub   Pipeline = "oddpub"
	PipelineFunders  Pipeline = "funders"
	PipelineLicenses Pipeline = "licenses"
)

// Pipelines lists every tracked pipeline in display order.
var Pipelines = []Pipeline{
	PipelineXML,
	PipelineMetadata,
	PipelineOddpub,
	PipelineFunders,
	PipelineLicenses,
}

// ParsePipeline validates a user-supplied pipeline name.
func ParsePipeline(s string) (Pipeline, error) {
	for _, p := range Pipelines {
		if string(p) == s {
			return p, nil
		}
	}
	return "", Errorf(ErrUnknownPipeline, "pipeline %q (known: %v)", s, Pipelines)
}

// ItemRecord is one corpus item tracked through all pipelines.
type ItemRecord struct {
	ID             string // canonical accession id (PMC<digits>)
	PartitionKey   string // coarse shard, derived once at creation
	SourcePath     string // path of the item inside its archive
	SourceArchive  string
	SourceManifest string

	// Done holds the per-pipeline completion flags. Flags only ever
	// transition false -> true.
	Done        map[Pipeline]bool
	CompletedAt map[Pipeline]*time.Time

	Classification string // set by the oddpub pipeline, empty if unknown
	LicenseClass   string // set at init or by the licenses pipeline
}

// PipelineStat is the completion count for one pipeline.
type PipelineStat struct {
	Pipeline Pipeline
	Done     int
	Percent  float64
}

// PartitionStat is the per-partition breakdown for the focus pipeline.
type PartitionStat struct {
	PartitionKey string
	Total        int
	Done         int
	Percent      float64
}

// SummaryStats aggregates registry coverage for the status report.
type SummaryStats struct {
	Total      int
	Pipelines  []PipelineStat
	Focus      Pipeline
	Partitions []PartitionStat
}
