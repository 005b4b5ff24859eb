// Package slurm implements the SchedulerClient port by scraping the host
// batch scheduler's CLI. The command runner is injectable so the parsing
// is testable without a scheduler; swapping the whole adapter for a REST
// client later only touches this package.
package slurm

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/ports/secondary"
)

// Runner executes one external command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func defaultRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Client scrapes squeue/scontrol. Read-only: it never submits or cancels.
type Client struct {
	queueBin      string
	introspectBin string
	timeout       time.Duration
	run           Runner
}

var _ secondary.SchedulerClient = (*Client)(nil)

// NewClient creates a scheduler client around the configured CLI binaries.
func NewClient(queueBin, introspectBin string, timeout time.Duration) *Client {
	return &Client{
		queueBin:      queueBin,
		introspectBin: introspectBin,
		timeout:       timeout,
		run:           defaultRunner,
	}
}

// ListJobs returns the user's running and queued jobs.
// Equivalent of: squeue -u <user> -h -o "%i|%j"
func (c *Client) ListJobs(ctx context.Context, user string) ([]secondary.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.run(ctx, c.queueBin, "-u", user, "-h", "-o", "%i|%j")
	if err != nil {
		return nil, models.Errorf(models.ErrSchedulerUnavailable, "%s: %v", c.queueBin, err)
	}

	var jobs []secondary.Job
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		id, name, _ := strings.Cut(line, "|")
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		jobs = append(jobs, secondary.Job{ID: id, Name: strings.TrimSpace(name)})
	}
	return jobs, nil
}

// JobCommand returns the command line the job was submitted with.
// Equivalent of: scontrol show job <id>, reading the Command= field.
func (c *Client) JobCommand(ctx context.Context, jobID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.run(ctx, c.introspectBin, "show", "job", jobID)
	if err != nil {
		return "", models.Errorf(models.ErrSchedulerUnavailable, "%s show job %s: %v", c.introspectBin, jobID, err)
	}
	return parseCommandField(string(out)), nil
}

// parseCommandField pulls the Command= value out of scontrol's key=value
// dump. Command occupies the rest of its line (the value itself may
// contain spaces and further flags).
func parseCommandField(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, "Command="); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
