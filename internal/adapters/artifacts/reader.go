// Package artifacts reads the columnar files this system consumes:
// pipeline output artifacts and authoritative source file lists. Producers
// disagree on column naming, so each reader maps the known variants onto
// one typed schema at load time; a file carrying none of the variants is a
// SchemaMismatch, not a silent nil.
package artifacts

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/example/requeue/internal/models"
)

// idColumnVariants are the identifier column names seen across pipeline
// producers, matched case-insensitively.
var idColumnVariants = []string{"pmcid", "pmc_id", "accessionid", "accession_id", "article", "id"}

// fileColumnVariants name the per-item source path column in file lists.
var fileColumnVariants = []string{"article file", "article_file", "file", "path"}

var shardToken = regexp.MustCompile(`PMC\d{3}xxxxxx`)

// Artifact is the typed view of one pipeline output file.
type Artifact struct {
	Path   string
	IDCol  string
	RawIDs []string
	// Enrich maps raw id -> enrichment value when the requested
	// enrichment column was present.
	Enrich map[string]string
}

// FileListRow is one entry of an authoritative source file list.
type FileListRow struct {
	RawID   string
	File    string
	License string
}

// FileList is the typed view of one authoritative list.
type FileList struct {
	Path string
	Rows []FileListRow
}

func delimiterFor(path string) rune {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".txt":
		return '\t'
	default:
		return ','
	}
}

// findColumn returns the index of the first header matching any variant,
// or -1.
func findColumn(header []string, variants []string) (int, string) {
	for _, v := range variants {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), v) {
				return i, v
			}
		}
	}
	return -1, ""
}

// ReadArtifact loads one pipeline output file, extracting the raw
// identifier column and, when enrichVariants is non-empty and one of the
// named columns exists, the enrichment value per row. Zero-row files
// return an empty artifact. A file with no recognized id column returns
// ErrSchemaMismatch.
func ReadArtifact(path string, enrichVariants []string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.Errorf(models.ErrStoreIO, "open artifact %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiterFor(path)
	r.FieldsPerRecord = -1 // producers pad rows inconsistently

	header, err := r.Read()
	if err == io.EOF {
		return nil, models.Errorf(models.ErrSchemaMismatch, "%s is empty", path)
	}
	if err != nil {
		return nil, models.Errorf(models.ErrSchemaMismatch, "read header of %s: %v", path, err)
	}

	idIdx, idCol := findColumn(header, idColumnVariants)
	if idIdx < 0 {
		return nil, models.Errorf(models.ErrSchemaMismatch,
			"%s has no identifier column (want one of %v, got %v)", path, idColumnVariants, header)
	}
	enrichIdx := -1
	if len(enrichVariants) > 0 {
		enrichIdx, _ = findColumn(header, enrichVariants)
	}

	art := &Artifact{Path: path, IDCol: idCol}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, models.Errorf(models.ErrSchemaMismatch, "read row of %s: %v", path, err)
		}
		if idIdx >= len(row) {
			continue
		}
		raw := strings.TrimSpace(row[idIdx])
		if raw == "" {
			continue
		}
		art.RawIDs = append(art.RawIDs, raw)
		if enrichIdx >= 0 && enrichIdx < len(row) {
			if v := strings.TrimSpace(row[enrichIdx]); v != "" {
				if art.Enrich == nil {
					art.Enrich = make(map[string]string)
				}
				art.Enrich[raw] = v
			}
		}
	}
	return art, nil
}

// ReadFileList loads one authoritative source file list.
func ReadFileList(path string) (*FileList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.Errorf(models.ErrStoreIO, "open file list %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delimiterFor(path)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return &FileList{Path: path}, nil
	}
	if err != nil {
		return nil, models.Errorf(models.ErrSchemaMismatch, "read header of %s: %v", path, err)
	}

	idIdx, _ := findColumn(header, idColumnVariants)
	if idIdx < 0 {
		return nil, models.Errorf(models.ErrSchemaMismatch,
			"%s has no accession id column (want one of %v, got %v)", path, idColumnVariants, header)
	}
	fileIdx, _ := findColumn(header, fileColumnVariants)
	licenseIdx, _ := findColumn(header, []string{"license"})

	list := &FileList{Path: path}
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, models.Errorf(models.ErrSchemaMismatch, "read row of %s: %v", path, err)
		}
		if idIdx >= len(row) {
			continue
		}
		entry := FileListRow{RawID: strings.TrimSpace(row[idIdx])}
		if entry.RawID == "" {
			continue
		}
		if fileIdx >= 0 && fileIdx < len(row) {
			entry.File = strings.TrimSpace(row[fileIdx])
		}
		if licenseIdx >= 0 && licenseIdx < len(row) {
			entry.License = strings.TrimSpace(row[licenseIdx])
		}
		list.Rows = append(list.Rows, entry)
	}
	return list, nil
}

// ShardToken extracts the partition shard token (PMC000xxxxxx style) from
// a file list name, or "" when the name carries none.
func ShardToken(name string) string {
	return shardToken.FindString(filepath.Base(name))
}

// ArchiveNameFor derives the bulk archive name from a file list name
// (strip the trailing ".filelist.csv" and re-suffix ".tar.gz"); returns ""
// when the name does not follow the convention.
func ArchiveNameFor(listName string) string {
	base := filepath.Base(listName)
	if !strings.HasSuffix(base, ".filelist.csv") {
		return ""
	}
	return strings.TrimSuffix(base, ".filelist.csv") + ".tar.gz"
}

// FindColumnar walks the given locations (files or directories) and
// returns every .csv/.tsv file found, sorted by path for a deterministic
// scan order.
func FindColumnar(locations []string) ([]string, error) {
	var out []string
	for _, loc := range locations {
		info, err := os.Stat(loc)
		if err != nil {
			return nil, models.Errorf(models.ErrStoreIO, "stat %s: %v", loc, err)
		}
		if !info.IsDir() {
			out = append(out, loc)
			continue
		}
		err = filepath.WalkDir(loc, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			switch strings.ToLower(filepath.Ext(path)) {
			case ".csv", ".tsv":
				out = append(out, path)
			}
			return nil
		})
		if err != nil {
			return nil, models.Errorf(models.ErrStoreIO, "walk %s: %v", loc, err)
		}
	}
	// WalkDir already yields lexical order per tree; sort across roots.
	sort.Strings(out)
	return out, nil
}
