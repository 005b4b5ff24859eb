package app

import (
	"context"
	"sort"
	"time"

	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/ports/primary"
	"github.com/example/requeue/internal/ports/secondary"
)

// Ensure the mocks implement the ports.
var (
	_ secondary.RegistryStore   = (*mockRegistryStore)(nil)
	_ secondary.SchedulerClient = (*mockSchedulerClient)(nil)
	_ primary.ReconcilerService = (*mockReconciler)(nil)
)

// mockRegistryStore implements secondary.RegistryStore in memory.
type mockRegistryStore struct {
	records map[string]*models.ItemRecord

	initErr    error
	markErr    error
	missingErr error

	markCalls [][]string
	enriched  map[secondary.EnrichmentField]map[string]string
}

func newMockRegistryStore() *mockRegistryStore {
	return &mockRegistryStore{
		records:  make(map[string]*models.ItemRecord),
		enriched: make(map[secondary.EnrichmentField]map[string]string),
	}
}

func (m *mockRegistryStore) seed(id, partition, path string, done ...models.Pipeline) {
	rec := &models.ItemRecord{
		ID:           id,
		PartitionKey: partition,
		SourcePath:   path,
		Done:         make(map[models.Pipeline]bool),
		CompletedAt:  make(map[models.Pipeline]*time.Time),
	}
	for _, p := range done {
		rec.Done[p] = true
	}
	m.records[id] = rec
}

func (m *mockRegistryStore) Init(ctx context.Context, records []models.ItemRecord) (secondary.InitResult, error) {
	if m.initErr != nil {
		return secondary.InitResult{}, m.initErr
	}
	var res secondary.InitResult
	for _, rec := range records {
		if existing, ok := m.records[rec.ID]; ok {
			existing.SourcePath = rec.SourcePath
			existing.SourceArchive = rec.SourceArchive
			existing.SourceManifest = rec.SourceManifest
			res.Updated++
			continue
		}
		r := rec
		if r.Done == nil {
			r.Done = make(map[models.Pipeline]bool)
		}
		m.records[r.ID] = &r
		res.Inserted++
	}
	return res, nil
}

func (m *mockRegistryStore) MarkComplete(ctx context.Context, pipeline models.Pipeline, ids []string) (secondary.MarkResult, error) {
	if m.markErr != nil {
		return secondary.MarkResult{}, m.markErr
	}
	m.markCalls = append(m.markCalls, ids)
	var res secondary.MarkResult
	for _, id := range ids {
		rec, ok := m.records[id]
		if !ok {
			continue
		}
		res.Matched++
		if !rec.Done[pipeline] {
			rec.Done[pipeline] = true
			res.Flipped++
		}
	}
	return res, nil
}

func (m *mockRegistryStore) SetEnrichment(ctx context.Context, field secondary.EnrichmentField, values map[string]string) (int, error) {
	if m.enriched[field] == nil {
		m.enriched[field] = make(map[string]string)
	}
	n := 0
	for id, v := range values {
		if _, ok := m.records[id]; ok {
			m.enriched[field][id] = v
			n++
		}
	}
	return n, nil
}

func (m *mockRegistryStore) Missing(ctx context.Context, pipeline models.Pipeline) ([]models.ItemRecord, error) {
	if m.missingErr != nil {
		return nil, m.missingErr
	}
	var out []models.ItemRecord
	for _, rec := range m.records {
		if !rec.Done[pipeline] {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PartitionKey != out[j].PartitionKey {
			return out[i].PartitionKey < out[j].PartitionKey
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *mockRegistryStore) Summary(ctx context.Context, focus models.Pipeline) (models.SummaryStats, error) {
	stats := models.SummaryStats{Total: len(m.records), Focus: focus}
	for _, p := range models.Pipelines {
		done := 0
		for _, rec := range m.records {
			if rec.Done[p] {
				done++
			}
		}
		stats.Pipelines = append(stats.Pipelines, models.PipelineStat{Pipeline: p, Done: done})
	}
	return stats, nil
}

func (m *mockRegistryStore) Count(ctx context.Context) (int, error) {
	return len(m.records), nil
}

// mockSchedulerClient implements secondary.SchedulerClient.
type mockSchedulerClient struct {
	jobs     []secondary.Job
	commands map[string]string

	listErr    error
	commandErr error
}

func (m *mockSchedulerClient) ListJobs(ctx context.Context, user string) ([]secondary.Job, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.jobs, nil
}

func (m *mockSchedulerClient) JobCommand(ctx context.Context, jobID string) (string, error) {
	if m.commandErr != nil {
		return "", m.commandErr
	}
	return m.commands[jobID], nil
}

// mockReconciler implements primary.ReconcilerService with a fixed set.
type mockReconciler struct {
	set *primary.InFlightSet
	err error
}

func (m *mockReconciler) InFlight(ctx context.Context, user string) (*primary.InFlightSet, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.set == nil {
		return &primary.InFlightSet{IDs: map[string]struct{}{}}, nil
	}
	return m.set, nil
}
