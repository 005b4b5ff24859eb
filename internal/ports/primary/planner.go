package primary

import (
	"context"

	"github.com/example/requeue/internal/models"
)

// ReconcilerService defines the primary port for querying the external
// queue for work already in flight.
type ReconcilerService interface {
	// InFlight returns the canonical ids the user's queued or running
	// jobs are already processing. Best effort: scheduler unavailability
	// degrades to an empty set (with Degraded set) rather than blocking
	// planning. Queue state may be stale by submission time; the race only
	// risks redundant work, never incorrect registry state.
	InFlight(ctx context.Context, user string) (*InFlightSet, error)
}

// InFlightSet is the reconciler's view of the live queue.
type InFlightSet struct {
	IDs        map[string]struct{}
	Jobs       int // jobs inspected
	OpaqueJobs int // jobs whose command referenced no discoverable manifest
	Degraded   bool
}

// Contains reports whether id is believed in flight.
func (s *InFlightSet) Contains(id string) bool {
	_, ok := s.IDs[id]
	return ok
}

// PlannerService defines the primary port for retry batch planning.
type PlannerService interface {
	// PlanRetry computes missing-minus-in-flight work for the pipeline,
	// chunks it into batches, and (unless DryRun) writes one manifest per
	// batch plus a submission file. Side-effect free until planning has
	// fully succeeded.
	PlanRetry(ctx context.Context, req PlanRequest) (*PlanReport, error)
}

// PlanRequest carries the planner inputs.
type PlanRequest struct {
	Pipeline    models.Pipeline
	BatchSize   int
	Parallelism int
	OutputDir   string // per-run directory is created underneath
	DryRun      bool
}

// PlanReport summarizes one planning run.
type PlanReport struct {
	Missing         int
	InFlight        int // candidates excluded because already queued
	Candidates      int
	Batches         int
	SubmissionLines int
	Degraded        bool // in-flight set obtained in degraded (empty) mode

	// Empty in dry-run mode.
	RunDir         string
	ManifestPaths  []string
	SubmissionPath string
}

// NothingToDo reports whether the run required no writes.
func (r *PlanReport) NothingToDo() bool {
	return r.Candidates == 0
}
