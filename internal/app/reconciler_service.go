package app

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/example/requeue/internal/ident"
	"github.com/example/requeue/internal/ports/primary"
	"github.com/example/requeue/internal/ports/secondary"
)

// manifestNamePattern recognizes work manifests referenced positionally in
// a job command (no flag), by the planner's naming convention.
var manifestNamePattern = regexp.MustCompile(`^retry_[A-Za-z0-9]+_batch_\d+\.txt$`)

// ReconcilerServiceImpl implements the ReconcilerService interface.
type ReconcilerServiceImpl struct {
	sched        secondary.SchedulerClient
	manifestFlag string
	log          *zap.SugaredLogger
}

var _ primary.ReconcilerService = (*ReconcilerServiceImpl)(nil)

// NewReconcilerService creates a ReconcilerService with injected
// dependencies. manifestFlag is the flag jobs use to reference their work
// manifest (the same flag the planner writes into submission lines).
func NewReconcilerService(sched secondary.SchedulerClient, manifestFlag string, log *zap.SugaredLogger) *ReconcilerServiceImpl {
	return &ReconcilerServiceImpl{sched: sched, manifestFlag: manifestFlag, log: log}
}

// InFlight returns the canonical ids already queued or running for the
// user. Best effort: a missing or timed-out scheduler CLI degrades to an
// empty set with a warning, trading possible duplicate submission for not
// hanging. Jobs submitted through a convention that references no
// discoverable manifest are treated as not in flight and counted.
func (s *ReconcilerServiceImpl) InFlight(ctx context.Context, user string) (*primary.InFlightSet, error) {
	set := &primary.InFlightSet{IDs: make(map[string]struct{})}

	jobs, err := s.sched.ListJobs(ctx, user)
	if err != nil {
		s.log.Warnw("scheduler unavailable, assuming empty in-flight set (already-queued work may be resubmitted)",
			"user", user, "error", err)
		set.Degraded = true
		return set, nil
	}

	for _, job := range jobs {
		set.Jobs++
		cmd, err := s.sched.JobCommand(ctx, job.ID)
		if err != nil {
			s.log.Warnw("cannot introspect job, treating as opaque", "job", job.ID, "error", err)
			set.OpaqueJobs++
			continue
		}

		manifests := s.manifestPaths(cmd)
		if len(manifests) == 0 {
			set.OpaqueJobs++
			continue
		}
		for _, m := range manifests {
			s.readManifest(m, set)
		}
	}

	if set.OpaqueJobs > 0 {
		s.log.Warnw("jobs without discoverable manifests treated as not in flight",
			"opaque_jobs", set.OpaqueJobs, "jobs", set.Jobs)
	}
	s.log.Infow("reconciled live queue", "jobs", set.Jobs, "in_flight_ids", len(set.IDs))
	return set, nil
}

// manifestPaths extracts work-manifest paths from a submitted command
// line: the argument after the manifest flag (or its --flag=value form),
// plus any token matching the planner's manifest naming convention.
func (s *ReconcilerServiceImpl) manifestPaths(cmd string) []string {
	split, err := shellquote.Split(cmd)
	if err != nil {
		// Unbalanced quoting in the stored command; fall back to fields.
		split = strings.Fields(cmd)
	}
	// Wrapper invocations (sh -c '...') hide the real command inside one
	// argument; flatten those so their tokens are inspected too.
	var args []string
	for _, arg := range split {
		if strings.ContainsAny(arg, " \t") {
			args = append(args, strings.Fields(arg)...)
			continue
		}
		args = append(args, arg)
	}

	var paths []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if p == "" {
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		paths = append(paths, p)
	}

	for i, arg := range args {
		if arg == s.manifestFlag && i+1 < len(args) {
			add(args[i+1])
			continue
		}
		if rest, ok := strings.CutPrefix(arg, s.manifestFlag+"="); ok {
			add(rest)
			continue
		}
		if manifestNamePattern.MatchString(filepath.Base(arg)) {
			add(arg)
		}
	}
	return paths
}

// readManifest folds one manifest's ids into the set. Vanished manifests
// are skipped: the job may have cleaned up after itself.
func (s *ReconcilerServiceImpl) readManifest(path string, set *primary.InFlightSet) {
	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Debugw("manifest unreadable, skipping", "path", path, "error", err)
		return
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, err := ident.Normalize(line)
		if err != nil {
			continue
		}
		set.IDs[id] = struct{}{}
	}
}
