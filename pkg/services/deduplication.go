package services

import (
	"fmt"
	"time"

	"github.com/ekaya-inc/haulflow/pkg/jsonutil"
	"github.com/ekaya-inc/haulflow/pkg/models"
)

// DedupResult holds the surviving rows and a warning for every row that was dropped or
// kept without a usable timestamp.
type DedupResult struct {
	Rows     []models.Row
	Warnings []string
}

type dedupSlot struct {
	row   models.Row
	ts    time.Time
	hasTS bool
}

// DedupeRows collapses rows sharing idField to a single row, last write wins:
//   - a row without an id is dropped with a warning;
//   - a row without a parseable updatedAtField is kept only when it is the first seen
//     for its id, and a later row carrying a timestamp replaces it;
//   - among timestamped rows the latest wins, ties going to the row processed last.
//
// Output follows first-seen id order, not input order.
func DedupeRows(rows []models.Row, idField, updatedAtField string) DedupResult {
	order := make([]string, 0, len(rows))
	slots := make(map[string]*dedupSlot, len(rows))
	var warnings []string

	for i, row := range rows {
		id, ok := jsonutil.TrimmedString(row[idField])
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Row %d: missing %s, row dropped", i+1, idField))
			continue
		}

		ts, hasTS := ParseTimestamp(row[updatedAtField])
		existing, seen := slots[id]

		if !seen {
			order = append(order, id)
			slots[id] = &dedupSlot{row: row, ts: ts, hasTS: hasTS}
			if !hasTS {
				warnings = append(warnings, fmt.Sprintf("Row %d (%s %s): missing %s, kept as first occurrence", i+1, idField, id, updatedAtField))
			}
			continue
		}

		if !hasTS {
			warnings = append(warnings, fmt.Sprintf("Row %d (%s %s): missing %s, ignored in favour of earlier row", i+1, idField, id, updatedAtField))
			continue
		}

		if !existing.hasTS || !ts.Before(existing.ts) {
			slots[id] = &dedupSlot{row: row, ts: ts, hasTS: true}
		}
	}

	out := make([]models.Row, 0, len(order))
	for _, id := range order {
		out = append(out, slots[id].row.Clone())
	}
	return DedupResult{Rows: out, Warnings: warnings}
}
