// Package ident canonicalizes corpus item identifiers. Every component
// that reads or writes an id goes through Normalize so the registry,
// artifact scans, and in-flight manifests all agree on one key form.
package ident

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/example/requeue/internal/models"
)

// Raw identifiers arrive in several conventions:
//
//	4123456                      bare numeric
//	PMC4123456 / pmc4123456      prefixed
//	PMC4123456.xml               extension suffix
//	PMC4123456_PMC4123456.tar.gz id embedded twice in a wrapper filename
//	oa_package/c1/PMC4123456.xml full path
//
// The canonical form is always "PMC" + digits, no leading zeros stripped.
var idPattern = regexp.MustCompile(`(?i)(?:pmc)?(\d+)`)

// multi-part extensions first so ".tar.gz" is not left half-trimmed
var knownExts = []string{".tar.gz", ".tar", ".gz", ".xml", ".txt", ".csv", ".tsv", ".json", ".nxml"}

// Normalize returns the canonical form of a raw identifier, filename, or
// path. It is referentially transparent: same input, same output.
func Normalize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", models.Errorf(models.ErrInvalidIdentifier, "empty identifier")
	}

	s = filepath.Base(s)
	for _, ext := range knownExts {
		if strings.HasSuffix(strings.ToLower(s), ext) {
			s = s[:len(s)-len(ext)]
			break
		}
	}

	// Wrapper filenames embed the id twice ("PMC123_PMC123"); any single
	// underscore-separated part carrying an id is accepted as long as all
	// parts that carry one agree.
	parts := strings.Split(s, "_")
	canonical := ""
	for _, part := range parts {
		m := idPattern.FindStringSubmatch(part)
		if m == nil {
			continue
		}
		c := "PMC" + m[1]
		if canonical != "" && canonical != c {
			return "", models.Errorf(models.ErrInvalidIdentifier, "conflicting ids in %q", raw)
		}
		canonical = c
	}
	if canonical == "" {
		return "", models.Errorf(models.ErrInvalidIdentifier, "no numeric payload in %q", raw)
	}
	return canonical, nil
}

// PartitionFor derives the partition key for a canonical id when no shard
// token is available from provenance: the id's millions bucket, matching
// the naming of the bulk corpus packages (PMC002xxxxxx holds PMC2000000
// through PMC2999999).
func PartitionFor(id string) string {
	digits := strings.TrimPrefix(id, "PMC")
	bucket := 0
	if len(digits) > 6 {
		fmt.Sscanf(digits[:len(digits)-6], "%d", &bucket)
	}
	return fmt.Sprintf("PMC%03dxxxxxx", bucket)
}
