// Package sqlite contains the SQLite implementation of the registry store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/example/requeue/internal/models"
	"github.com/example/requeue/internal/ports/secondary"
)

// maxChunk keeps IN-list sizes under SQLite's bound-parameter limit.
const maxChunk = 500

// pipelineColumns is the closed mapping from pipeline to flag column. A
// pipeline absent here does not exist; adding one is a schema migration.
var pipelineColumns = map[models.Pipeline]string{
	models.PipelineXML:      "xml_done",
	models.PipelineMetadata: "metadata_done",
	models.PipelineOddpub:   "oddpub_done",
	models.PipelineFunders:  "funders_done",
	models.PipelineLicenses: "licenses_done",
}

func flagColumn(p models.Pipeline) (string, error) {
	col, ok := pipelineColumns[p]
	if !ok {
		return "", models.Errorf(models.ErrUnknownPipeline, "%q", p)
	}
	return col, nil
}

// RegistryRepository implements secondary.RegistryStore with SQLite.
//
// Writes take an advisory file lock next to the database file for the
// duration of the call, making the single-writer contract enforced rather
// than assumed: independently launched updater processes serialize here.
// Readers do not lock.
type RegistryRepository struct {
	db          *sql.DB
	lockPath    string
	lockTimeout time.Duration
}

var _ secondary.RegistryStore = (*RegistryRepository)(nil)

// NewRegistryRepository creates a registry store over an open database.
// dbPath is the database file location; the lock file lives beside it.
func NewRegistryRepository(db *sql.DB, dbPath string, lockTimeout time.Duration) *RegistryRepository {
	return &RegistryRepository{
		db:          db,
		lockPath:    dbPath + ".lock",
		lockTimeout: lockTimeout,
	}
}

// withWriteLock runs fn while holding the advisory write lock.
func (r *RegistryRepository) withWriteLock(ctx context.Context, fn func() error) error {
	lk := flock.New(r.lockPath)
	lockCtx, cancel := context.WithTimeout(ctx, r.lockTimeout)
	defer cancel()

	ok, err := lk.TryLockContext(lockCtx, 250*time.Millisecond)
	if err != nil {
		return models.Errorf(models.ErrStoreIO, "acquire write lock %s: %v", r.lockPath, err)
	}
	if !ok {
		return models.Errorf(models.ErrStoreIO, "write lock %s held by another process", r.lockPath)
	}
	defer lk.Unlock()

	return fn()
}

const itemSelectCols = "id, partition_key, source_path, source_archive, source_manifest, classification, license_class, " +
	"xml_done, xml_done_at, metadata_done, metadata_done_at, oddpub_done, oddpub_done_at, " +
	"funders_done, funders_done_at, licenses_done, licenses_done_at"

// scanItem scans one items row into an ItemRecord.
func scanItem(scanner interface {
	Scan(dest ...any) error
}) (models.ItemRecord, error) {
	var (
		classification sql.NullString
		licenseClass   sql.NullString
		flags          [5]bool
		doneAt         [5]sql.NullTime
	)

	rec := models.ItemRecord{}
	err := scanner.Scan(
		&rec.ID, &rec.PartitionKey, &rec.SourcePath, &rec.SourceArchive, &rec.SourceManifest,
		&classification, &licenseClass,
		&flags[0], &doneAt[0], &flags[1], &doneAt[1], &flags[2], &doneAt[2],
		&flags[3], &doneAt[3], &flags[4], &doneAt[4],
	)
	if err != nil {
		return rec, err
	}

	rec.Classification = classification.String
	rec.LicenseClass = licenseClass.String
	rec.Done = make(map[models.Pipeline]bool, len(models.Pipelines))
	rec.CompletedAt = make(map[models.Pipeline]*time.Time, len(models.Pipelines))
	for i, p := range models.Pipelines {
		rec.Done[p] = flags[i]
		if doneAt[i].Valid {
			t := doneAt[i].Time
			rec.CompletedAt[p] = &t
		}
	}
	return rec, nil
}

// Init bulk-upserts records in one transaction. Provenance and license
// enrichment refresh on conflict; flags, partition_key, and classification
// are never touched for existing rows.
func (r *RegistryRepository) Init(ctx context.Context, records []models.ItemRecord) (secondary.InitResult, error) {
	var result secondary.InitResult

	// Dedupe on id, last occurrence wins, so inserted/updated counts add up.
	seen := make(map[string]int, len(records))
	deduped := records[:0:0]
	for _, rec := range records {
		if i, ok := seen[rec.ID]; ok {
			deduped[i] = rec
			continue
		}
		seen[rec.ID] = len(deduped)
		deduped = append(deduped, rec)
	}

	err := r.withWriteLock(ctx, func() error {
		before, err := r.Count(ctx)
		if err != nil {
			return err
		}

		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return models.Errorf(models.ErrStoreIO, "begin init transaction: %v", err)
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO items (id, partition_key, source_path, source_archive, source_manifest, license_class)
			VALUES (?, ?, ?, ?, ?, NULLIF(?, ''))
			ON CONFLICT(id) DO UPDATE SET
				source_path = excluded.source_path,
				source_archive = excluded.source_archive,
				source_manifest = excluded.source_manifest,
				license_class = COALESCE(excluded.license_class, items.license_class),
				updated_at = CURRENT_TIMESTAMP`)
		if err != nil {
			return models.Errorf(models.ErrStoreIO, "prepare upsert: %v", err)
		}
		defer stmt.Close()

		for _, rec := range deduped {
			if _, err := stmt.ExecContext(ctx,
				rec.ID, rec.PartitionKey, rec.SourcePath, rec.SourceArchive, rec.SourceManifest, rec.LicenseClass,
			); err != nil {
				return models.Errorf(models.ErrStoreIO, "upsert %s: %v", rec.ID, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return models.Errorf(models.ErrStoreIO, "commit init: %v", err)
		}

		after, err := r.Count(ctx)
		if err != nil {
			return err
		}
		result.Inserted = after - before
		result.Updated = len(deduped) - result.Inserted
		return nil
	})
	return result, err
}

// MarkComplete flips the pipeline flag for the given ids in one
// transaction. The WHERE flag=0 guard makes the transition monotonic and
// keeps the original completion timestamp on re-runs.
func (r *RegistryRepository) MarkComplete(ctx context.Context, pipeline models.Pipeline, ids []string) (secondary.MarkResult, error) {
	var result secondary.MarkResult

	col, err := flagColumn(pipeline)
	if err != nil {
		return result, err
	}
	ids = dedupe(ids)
	if len(ids) == 0 {
		return result, nil
	}

	err = r.withWriteLock(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return models.Errorf(models.ErrStoreIO, "begin mark transaction: %v", err)
		}
		defer tx.Rollback()

		for start := 0; start < len(ids); start += maxChunk {
			chunk := ids[start:min(start+maxChunk, len(ids))]
			placeholders, args := inArgs(chunk)

			var matched int
			row := tx.QueryRowContext(ctx,
				"SELECT COUNT(*) FROM items WHERE id IN ("+placeholders+")", args...)
			if err := row.Scan(&matched); err != nil {
				return models.Errorf(models.ErrStoreIO, "count matched ids: %v", err)
			}
			result.Matched += matched

			res, err := tx.ExecContext(ctx,
				fmt.Sprintf(`UPDATE items
					SET %[1]s = 1, %[1]s_at = CURRENT_TIMESTAMP, updated_at = CURRENT_TIMESTAMP
					WHERE id IN (%[2]s) AND %[1]s = 0`, col, placeholders),
				args...)
			if err != nil {
				return models.Errorf(models.ErrStoreIO, "mark %s complete: %v", pipeline, err)
			}
			flipped, err := res.RowsAffected()
			if err != nil {
				return models.Errorf(models.ErrStoreIO, "rows affected: %v", err)
			}
			result.Flipped += int(flipped)
		}

		if err := tx.Commit(); err != nil {
			return models.Errorf(models.ErrStoreIO, "commit mark: %v", err)
		}
		return nil
	})
	return result, err
}

// SetEnrichment writes one enrichment column for the given id -> value
// pairs. The field is validated against the closed enrichment set before
// it is interpolated into SQL.
func (r *RegistryRepository) SetEnrichment(ctx context.Context, field secondary.EnrichmentField, values map[string]string) (int, error) {
	switch field {
	case secondary.EnrichClassification, secondary.EnrichLicenseClass:
	default:
		return 0, models.Errorf(models.ErrStoreIO, "unknown enrichment field %q", field)
	}
	if len(values) == 0 {
		return 0, nil
	}

	updated := 0
	err := r.withWriteLock(ctx, func() error {
		tx, err := r.db.BeginTx(ctx, nil)
		if err != nil {
			return models.Errorf(models.ErrStoreIO, "begin enrichment transaction: %v", err)
		}
		defer tx.Rollback()

		stmt, err := tx.PrepareContext(ctx,
			fmt.Sprintf("UPDATE items SET %s = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?", field))
		if err != nil {
			return models.Errorf(models.ErrStoreIO, "prepare enrichment: %v", err)
		}
		defer stmt.Close()

		for id, value := range values {
			res, err := stmt.ExecContext(ctx, value, id)
			if err != nil {
				return models.Errorf(models.ErrStoreIO, "enrich %s: %v", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return models.Errorf(models.ErrStoreIO, "rows affected: %v", err)
			}
			updated += int(n)
		}

		if err := tx.Commit(); err != nil {
			return models.Errorf(models.ErrStoreIO, "commit enrichment: %v", err)
		}
		return nil
	})
	return updated, err
}

// Missing returns the records whose pipeline flag is false, ordered by
// partition_key then id so batch contents are reproducible across
// re-planning runs against an unchanged registry.
func (r *RegistryRepository) Missing(ctx context.Context, pipeline models.Pipeline) ([]models.ItemRecord, error) {
	col, err := flagColumn(pipeline)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+itemSelectCols+" FROM items WHERE "+col+" = 0 ORDER BY partition_key, id")
	if err != nil {
		return nil, models.Errorf(models.ErrStoreIO, "query missing for %s: %v", pipeline, err)
	}
	defer rows.Close()

	var records []models.ItemRecord
	for rows.Next() {
		rec, err := scanItem(rows)
		if err != nil {
			return nil, models.Errorf(models.ErrStoreIO, "scan missing row: %v", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Errorf(models.ErrStoreIO, "iterate missing rows: %v", err)
	}
	return records, nil
}

// Summary aggregates total, per-pipeline, and per-partition coverage.
func (r *RegistryRepository) Summary(ctx context.Context, focus models.Pipeline) (models.SummaryStats, error) {
	stats := models.SummaryStats{Focus: focus}

	focusCol, err := flagColumn(focus)
	if err != nil {
		return stats, err
	}

	total, err := r.Count(ctx)
	if err != nil {
		return stats, err
	}
	stats.Total = total

	var sums strings.Builder
	for i, p := range models.Pipelines {
		if i > 0 {
			sums.WriteString(", ")
		}
		fmt.Fprintf(&sums, "COALESCE(SUM(%s), 0)", pipelineColumns[p])
	}
	row := r.db.QueryRowContext(ctx, "SELECT "+sums.String()+" FROM items")
	counts := make([]int, len(models.Pipelines))
	dests := make([]any, len(counts))
	for i := range counts {
		dests[i] = &counts[i]
	}
	if err := row.Scan(dests...); err != nil {
		return stats, models.Errorf(models.ErrStoreIO, "aggregate pipeline counts: %v", err)
	}
	for i, p := range models.Pipelines {
		stats.Pipelines = append(stats.Pipelines, models.PipelineStat{
			Pipeline: p,
			Done:     counts[i],
			Percent:  percent(counts[i], total),
		})
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT partition_key, COUNT(*), COALESCE(SUM("+focusCol+"), 0) FROM items GROUP BY partition_key ORDER BY partition_key")
	if err != nil {
		return stats, models.Errorf(models.ErrStoreIO, "aggregate partitions: %v", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ps models.PartitionStat
		if err := rows.Scan(&ps.PartitionKey, &ps.Total, &ps.Done); err != nil {
			return stats, models.Errorf(models.ErrStoreIO, "scan partition row: %v", err)
		}
		ps.Percent = percent(ps.Done, ps.Total)
		stats.Partitions = append(stats.Partitions, ps)
	}
	if err := rows.Err(); err != nil {
		return stats, models.Errorf(models.ErrStoreIO, "iterate partition rows: %v", err)
	}

	return stats, nil
}

// Count returns the total number of registered items.
func (r *RegistryRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&n); err != nil {
		return 0, models.Errorf(models.ErrStoreIO, "count items: %v", err)
	}
	return n, nil
}

func percent(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(done) / float64(total)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func inArgs(ids []string) (string, []any) {
	placeholders := strings.Repeat("?, ", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return placeholders, args
}
