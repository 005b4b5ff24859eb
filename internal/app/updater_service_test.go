package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/requeue/internal/logging"
	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/ports/secondary"
)

func writeArtifact(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestUpdateFlipsFlags(t *testing.T) {
	store := newMockRegistryStore()
	store.seed("PMC1", "p0", "src/PMC1.xml")
	store.seed("PMC2", "p0", "src/PMC2.xml")
	store.seed("PMC3", "p0", "src/PMC3.xml")

	dir := t.TempDir()
	writeArtifact(t, dir, "out1.csv", "pmcid,score\nPMC1,0.9\nPMC2,0.1\n")
	writeArtifact(t, dir, "out2.csv", "pmcid,score\nPMC2,0.1\n") // duplicate across artifacts

	svc := NewUpdaterService(store, logging.Nop())
	report, err := svc.Update(context.Background(), models.PipelineFunders, []string{dir})
	if err != nil {
		t.Fatal(err)
	}

	if report.Found != 2 || report.Matched != 2 || report.Flipped != 2 {
		t.Errorf("report = %+v, want found 2, matched 2, flipped 2", report)
	}
	if len(store.markCalls) != 1 {
		t.Fatalf("MarkComplete called %d times, want 1 (atomic per run)", len(store.markCalls))
	}
	if !store.records["PMC1"].Done[models.PipelineFunders] {
		t.Error("PMC1 funders flag not set")
	}
	if store.records["PMC3"].Done[models.PipelineFunders] {
		t.Error("PMC3 funders flag set without evidence")
	}
}

func TestUpdateMonotonicOnRerun(t *testing.T) {
	store := newMockRegistryStore()
	store.seed("PMC1", "p0", "src/PMC1.xml")

	dir := t.TempDir()
	writeArtifact(t, dir, "out.csv", "pmcid\nPMC1\n")
	svc := NewUpdaterService(store, logging.Nop())

	first, err := svc.Update(context.Background(), models.PipelineXML, []string{dir})
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Update(context.Background(), models.PipelineXML, []string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if first.Flipped != 1 || second.Flipped != 0 || second.Matched != 1 {
		t.Errorf("first = %+v, second = %+v; want flip then no-op", first, second)
	}
}

func TestUpdateSkipsSchemaMismatch(t *testing.T) {
	store := newMockRegistryStore()
	store.seed("PMC1", "p0", "src/PMC1.xml")

	dir := t.TempDir()
	writeArtifact(t, dir, "bad.csv", "foo,bar\n1,2\n")
	writeArtifact(t, dir, "good.csv", "pmcid\nPMC1\n")

	svc := NewUpdaterService(store, logging.Nop())
	report, err := svc.Update(context.Background(), models.PipelineMetadata, []string{dir})
	if err != nil {
		t.Fatalf("schema mismatch must not abort the scan: %v", err)
	}
	if report.ArtifactsSkipped != 1 || report.ArtifactsScanned != 1 {
		t.Errorf("report = %+v, want 1 scanned, 1 skipped", report)
	}
	if report.Flipped != 1 {
		t.Errorf("flipped = %d, want 1", report.Flipped)
	}
}

func TestUpdateNormalizesHeterogeneousIDs(t *testing.T) {
	store := newMockRegistryStore()
	store.seed("PMC1", "p0", "src/PMC1.xml")
	store.seed("PMC2", "p0", "src/PMC2.xml")

	dir := t.TempDir()
	writeArtifact(t, dir, "out.csv", "article\nPMC1.xml\npmc2\nnot-an-id\n")

	svc := NewUpdaterService(store, logging.Nop())
	report, err := svc.Update(context.Background(), models.PipelineXML, []string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if report.Found != 2 || report.Matched != 2 || report.InvalidIDs != 1 {
		t.Errorf("report = %+v, want found 2, matched 2, invalid 1", report)
	}
}

func TestUpdateLowMatchRateFlagged(t *testing.T) {
	store := newMockRegistryStore()
	store.seed("PMC1", "p0", "src/PMC1.xml")

	dir := t.TempDir()
	writeArtifact(t, dir, "out.csv", "pmcid\nPMC1\nPMC100\nPMC101\nPMC102\n")

	svc := NewUpdaterService(store, logging.Nop())
	report, err := svc.Update(context.Background(), models.PipelineOddpub, []string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if !report.LowMatchRate {
		t.Errorf("report = %+v, want low match rate flagged", report)
	}
}

func TestUpdateCarriesEnrichment(t *testing.T) {
	store := newMockRegistryStore()
	store.seed("PMC1", "p0", "src/PMC1.xml")
	store.seed("PMC2", "p0", "src/PMC2.xml")

	dir := t.TempDir()
	writeArtifact(t, dir, "oddpub.csv", "article,is_open_data\nPMC1.xml,TRUE\nPMC2.xml,FALSE\n")

	svc := NewUpdaterService(store, logging.Nop())
	report, err := svc.Update(context.Background(), models.PipelineOddpub, []string{dir})
	if err != nil {
		t.Fatal(err)
	}
	if report.Enriched != 2 {
		t.Errorf("enriched = %d, want 2", report.Enriched)
	}
	got := store.enriched[secondary.EnrichClassification]
	if got["PMC1"] != "TRUE" || got["PMC2"] != "FALSE" {
		t.Errorf("classification enrichment = %v", got)
	}
}

func TestUpdateZeroRowArtifact(t *testing.T) {
	store := newMockRegistryStore()
	dir := t.TempDir()
	writeArtifact(t, dir, "empty.csv", "pmcid\n")

	svc := NewUpdaterService(store, logging.Nop())
	report, err := svc.Update(context.Background(), models.PipelineXML, []string{dir})
	if err != nil {
		t.Fatalf("zero-row artifact must not fail: %v", err)
	}
	if report.Found != 0 || len(store.markCalls) != 0 {
		t.Errorf("report = %+v, markCalls = %v; want no work", report, store.markCalls)
	}
}

func TestUpdateStoreErrorIsFatal(t *testing.T) {
	store := newMockRegistryStore()
	store.seed("PMC1", "p0", "src/PMC1.xml")
	store.markErr = models.Errorf(models.ErrStoreIO, "locked")

	dir := t.TempDir()
	writeArtifact(t, dir, "out.csv", "pmcid\nPMC1\n")

	svc := NewUpdaterService(store, logging.Nop())
	if _, err := svc.Update(context.Background(), models.PipelineXML, []string{dir}); !errors.Is(err, models.ErrStoreIO) {
		t.Errorf("error = %v, want ErrStoreIO", err)
	}
}
