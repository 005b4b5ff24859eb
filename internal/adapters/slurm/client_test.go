package slurm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/requeue/internal/models"
)

func fakeRunner(outputs map[string]string, err error) Runner {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		if err != nil {
			return nil, err
		}
		key := name
		for _, a := range args {
			key += " " + a
		}
		return []byte(outputs[key]), nil
	}
}

func TestListJobs(t *testing.T) {
	c := NewClient("squeue", "scontrol", time.Second)
	c.run = fakeRunner(map[string]string{
		`squeue -u alice -h -o %i|%j`: "1001|retry_oddpub\n1002|other\n\n",
	}, nil)

	jobs, err := c.ListJobs(context.Background(), "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(jobs))
	}
	if jobs[0].ID != "1001" || jobs[0].Name != "retry_oddpub" {
		t.Errorf("jobs[0] = %+v", jobs[0])
	}
}

func TestListJobsUnavailable(t *testing.T) {
	c := NewClient("squeue", "scontrol", time.Second)
	c.run = fakeRunner(nil, errors.New("executable file not found"))

	_, err := c.ListJobs(context.Background(), "alice")
	if !errors.Is(err, models.ErrSchedulerUnavailable) {
		t.Errorf("error = %v, want ErrSchedulerUnavailable", err)
	}
}

func TestJobCommand(t *testing.T) {
	out := `JobId=1001 JobName=retry_oddpub
   UserId=alice(1000) GroupId=alice(1000)
   Command=/home/alice/worker.sh --manifest /scratch/retry_oddpub_batch_0001.txt
   WorkDir=/home/alice
`
	c := NewClient("squeue", "scontrol", time.Second)
	c.run = fakeRunner(map[string]string{
		"scontrol show job 1001": out,
	}, nil)

	cmd, err := c.JobCommand(context.Background(), "1001")
	if err != nil {
		t.Fatal(err)
	}
	want := "/home/alice/worker.sh --manifest /scratch/retry_oddpub_batch_0001.txt"
	if cmd != want {
		t.Errorf("command = %q, want %q", cmd, want)
	}
}

func TestJobCommandMissingField(t *testing.T) {
	c := NewClient("squeue", "scontrol", time.Second)
	c.run = fakeRunner(map[string]string{
		"scontrol show job 1001": "JobId=1001 JobName=x\n",
	}, nil)

	cmd, err := c.JobCommand(context.Background(), "1001")
	if err != nil {
		t.Fatal(err)
	}
	if cmd != "" {
		t.Errorf("command = %q, want empty", cmd)
	}
}
