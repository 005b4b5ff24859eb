package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/ports/primary"
	"github.com/example/requeue/internal/ports/secondary"
)

// PlannerServiceImpl implements the PlannerService interface.
type PlannerServiceImpl struct {
	store        secondary.RegistryStore
	reconciler   primary.ReconcilerService
	user         string
	workerCmd    string
	manifestFlag string
	log          *zap.SugaredLogger
}

var _ primary.PlannerService = (*PlannerServiceImpl)(nil)

// NewPlannerService creates a PlannerService with injected dependencies.
// Submission lines reference manifests through manifestFlag, the same flag
// the reconciler later looks for when recovering the in-flight set.
func NewPlannerService(
	store secondary.RegistryStore,
	reconciler primary.ReconcilerService,
	user string,
	workerCmd string,
	manifestFlag string,
	log *zap.SugaredLogger,
) *PlannerServiceImpl {
	return &PlannerServiceImpl{
		store:        store,
		reconciler:   reconciler,
		user:         user,
		workerCmd:    workerCmd,
		manifestFlag: manifestFlag,
		log:          log,
	}
}

// PlanRetry computes the minimal de-duplicated resubmission for one
// pipeline: missing minus in-flight, chunked into batches of at most
// BatchSize, packed into submission lines of at most Parallelism
// manifests. Side-effect free until planning has fully succeeded; DryRun
// stops before any write.
func (s *PlannerServiceImpl) PlanRetry(ctx context.Context, req primary.PlanRequest) (*primary.PlanReport, error) {
	if req.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", req.BatchSize)
	}
	if req.Parallelism <= 0 {
		return nil, fmt.Errorf("parallelism must be positive, got %d", req.Parallelism)
	}

	report := &primary.PlanReport{}

	missing, err := s.store.Missing(ctx, req.Pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to query missing items: %w", err)
	}
	report.Missing = len(missing)
	if len(missing) == 0 {
		s.log.Infow("nothing to do", "pipeline", req.Pipeline)
		return report, nil
	}

	inflight, err := s.reconciler.InFlight(ctx, s.user)
	if err != nil {
		// The reconciler degrades internally; an error here is unexpected
		// but still must not block planning.
		s.log.Warnw("reconciler failed, planning without in-flight exclusion", "error", err)
		inflight = &primary.InFlightSet{IDs: map[string]struct{}{}, Degraded: true}
	}
	report.Degraded = inflight.Degraded

	// Set difference, preserving the store's deterministic order so
	// re-planning after a partial failure yields overlapping-but-stable
	// batches.
	candidates := missing[:0:0]
	for _, rec := range missing {
		if inflight.Contains(rec.ID) {
			report.InFlight++
			continue
		}
		candidates = append(candidates, rec)
	}
	report.Candidates = len(candidates)
	if len(candidates) == 0 {
		s.log.Infow("all missing work already in flight", "pipeline", req.Pipeline, "in_flight", report.InFlight)
		return report, nil
	}

	var batches [][]models.ItemRecord
	for start := 0; start < len(candidates); start += req.BatchSize {
		batches = append(batches, candidates[start:min(start+req.BatchSize, len(candidates))])
	}
	report.Batches = len(batches)
	report.SubmissionLines = (len(batches) + req.Parallelism - 1) / req.Parallelism

	if req.DryRun {
		s.log.Infow("dry run, no files written",
			"pipeline", req.Pipeline,
			"candidates", report.Candidates,
			"batches", report.Batches,
			"submission_lines", report.SubmissionLines,
		)
		return report, nil
	}

	runID := strings.Split(uuid.NewString(), "-")[0]
	runDir := filepath.Join(req.OutputDir, fmt.Sprintf("retry_%s_%s", req.Pipeline, runID))
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, models.Errorf(models.ErrStoreIO, "create run directory %s: %v", runDir, err)
	}
	report.RunDir = runDir

	for i, batch := range batches {
		path := filepath.Join(runDir, fmt.Sprintf("retry_%s_batch_%04d.txt", req.Pipeline, i+1))
		var b strings.Builder
		for _, rec := range batch {
			// Manifest lines are source locations; the worker re-extracts
			// from there. Items registered without a path fall back to id.
			line := rec.SourcePath
			if line == "" {
				line = rec.ID
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
		if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
			return nil, models.Errorf(models.ErrStoreIO, "write manifest %s: %v", path, err)
		}
		report.ManifestPaths = append(report.ManifestPaths, path)
	}

	submission := filepath.Join(runDir, fmt.Sprintf("submit_%s.sh", req.Pipeline))
	var b strings.Builder
	for start := 0; start < len(report.ManifestPaths); start += req.Parallelism {
		line := report.ManifestPaths[start:min(start+req.Parallelism, len(report.ManifestPaths))]
		parts := make([]string, len(line))
		for j, m := range line {
			parts[j] = fmt.Sprintf("%s %s %s", s.workerCmd, s.manifestFlag, m)
		}
		// Each line forks its workers and joins on wait, so line
		// completion is gated on all of them finishing.
		b.WriteString(strings.Join(parts, " & "))
		b.WriteString(" & wait\n")
	}
	if err := os.WriteFile(submission, []byte(b.String()), 0755); err != nil {
		return nil, models.Errorf(models.ErrStoreIO, "write submission file %s: %v", submission, err)
	}
	report.SubmissionPath = submission

	s.log.Infow("retry plan written",
		"pipeline", req.Pipeline,
		"run_dir", runDir,
		"batches", report.Batches,
		"submission_lines", report.SubmissionLines,
		"excluded_in_flight", report.InFlight,
	)
	return report, nil
}
