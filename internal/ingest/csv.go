package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// headerAliases lists accepted spellings per Record field, most specific
// first. Spellings are compared after normalizeHeader.
var headerAliases = []struct {
	field   string
	aliases []string
}{
	{"id", []string{"taskid", "task id", "unique id", "uid", "id"}},
	{"name", []string{"task name", "rtask name", "name"}},
	{"duration", []string{"base duration", "duration", "duration days", "task duration"}},
	{"predecessors", []string{"predecessors ids", "predecessor ids", "predecessors", "predecessor"}},
	{"types", []string{"dependency type", "dependency types", "relation type", "type"}},
	{"lags", []string{"lag", "lags", "lag days"}},
	{"constraint_type", []string{"constraint type", "constraint"}},
	{"constraint_date", []string{"constraint date"}},
	{"start", []string{"baseline start", "original start", "start"}},
	{"finish", []string{"baseline finish", "original finish", "finish"}},
	{"level", []string{"task level", "outline level", "level"}},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalizeHeader lower-cases h and collapses punctuation and spaces, so
// "Duration (days)" and "duration_days" both become "duration days".
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(h), " "))
}

// resolveHeaders maps Record fields to column indexes.
func resolveHeaders(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		n := normalizeHeader(h)
		if _, dup := index[n]; !dup && n != "" {
			index[n] = i
		}
	}
	columns := make(map[string]int, len(headerAliases))
	for _, fa := range headerAliases {
		for _, alias := range fa.aliases {
			if i, ok := index[alias]; ok {
				columns[fa.field] = i
				break
			}
		}
	}
	if _, ok := columns["id"]; !ok {
		return nil, fmt.Errorf("%w: task id (one of %s)", ErrMissingColumn, strings.Join(headerAliases[0].aliases, ", "))
	}
	return columns, nil
}

// ReadCSV reads task records from CSV with a header row. Alternate header
// spellings are resolved once here; unknown columns are ignored and
// blank rows are skipped.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ingest: reading header: %w", err)
	}
	columns, err := resolveHeaders(header)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}

	var records []Record
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ingest: reading row: %w", err)
		}
		if blank(row) {
			continue
		}
		get := func(field string) string {
			i, ok := columns[field]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}
		records = append(records, Record{
			ID:              get("id"),
			Name:            get("name"),
			Duration:        get("duration"),
			Predecessors:    get("predecessors"),
			DependencyTypes: get("types"),
			Lags:            get("lags"),
			ConstraintType:  get("constraint_type"),
			ConstraintDate:  get("constraint_date"),
			BaselineStart:   get("start"),
			BaselineFinish:  get("finish"),
			Level:           get("level"),
		})
	}
	return records, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
