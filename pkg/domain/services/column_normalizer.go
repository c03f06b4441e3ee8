package services

import (
	"strings"

	"github.com/vsinha/medorder/pkg/domain/entities"
)

// NormalizeHeader lowercases a column header and replaces spaces with
// underscores. It is idempotent.
func NormalizeHeader(header string) string {
	return strings.ReplaceAll(strings.ToLower(header), " ", "_")
}

// NormalizeColumns rewrites the table's headers and row keys to their
// normalized form. When two headers collapse to the same name the later
// column wins for row values; the header list keeps a single entry.
func NormalizeColumns(table *entities.Table) {
	original := table.Headers
	headers := make([]string, 0, len(table.Headers))
	seen := make(map[string]bool, len(table.Headers))
	for _, h := range table.Headers {
		n := NormalizeHeader(h)
		if seen[n] {
			continue
		}
		seen[n] = true
		headers = append(headers, n)
	}
	table.Headers = headers

	for i, row := range table.Rows {
		normalized := make(entities.RawRow, len(row))
		for col, v := range row {
			if _, ok := normalized[NormalizeHeader(col)]; !ok {
				normalized[NormalizeHeader(col)] = v
			}
		}
		// header order decides collisions
		for _, h := range original {
			if v, ok := row[h]; ok {
				normalized[NormalizeHeader(h)] = v
			}
		}
		table.Rows[i] = normalized
	}
}
