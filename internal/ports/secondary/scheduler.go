package secondary

import "context"

// SchedulerClient defines the secondary port for the external batch
// scheduler. The production adapter scrapes the scheduler CLI; tests use a
// fake. The client is read-only: this system never cancels or modifies
// jobs it did not submit.
type SchedulerClient interface {
	// ListJobs returns the ids of the user's currently running or queued
	// jobs.
	ListJobs(ctx context.Context, user string) ([]Job, error)

	// JobCommand returns the command line the job was submitted with.
	JobCommand(ctx context.Context, jobID string) (string, error)
}

// Job is one entry in the external queue.
type Job struct {
	ID   string
	Name string
}
