// Package aggregate groups enriched records into dense bucket × category
// pivot tables.
package aggregate

import (
	"cmp"
	"slices"
	"time"

	"github.com/crimson-sun/worktally/internal/model"
)

// Table is a dense pivot of summed hours. Rows are the buckets present after
// filtering, ascending; Columns are the categories present, sorted by label.
// Every (row, column) pair has a cell, zero when no record contributed.
type Table[K comparable] struct {
	Rows    []K
	Columns []model.Category
	cells   map[K]map[model.Category]float64
}

// Cell returns the summed hours for bucket k and category c.
func (t *Table[K]) Cell(k K, c model.Category) float64 {
	return t.cells[k][c]
}

// Row returns bucket k's cells in Columns order.
func (t *Table[K]) Row(k K) []float64 {
	out := make([]float64, len(t.Columns))
	for j, c := range t.Columns {
		out[j] = t.cells[k][c]
	}
	return out
}

// RowTotal returns the hours summed over every category of bucket k.
func (t *Table[K]) RowTotal(k K) float64 {
	var sum float64
	for _, c := range t.Columns {
		sum += t.cells[k][c]
	}
	return sum
}

// Shares returns bucket k's cells as percentages of its row total.
// A row with zero total yields all zeros.
func (t *Table[K]) Shares(k K) []float64 {
	row := t.Row(k)
	total := t.RowTotal(k)
	if total == 0 {
		return make([]float64, len(row))
	}
	for j := range row {
		row[j] = row[j] / total * 100
	}
	return row
}

// Len returns the number of rows.
func (t *Table[K]) Len() int {
	return len(t.Rows)
}

// ByMonth aggregates records whose calendar month lies in [start, end].
func ByMonth(records []model.EnrichedRecord, start, end time.Month) *Table[time.Month] {
	return pivot(records, monthOf, cmp.Compare[time.Month], start, end)
}

// ByDate aggregates records whose calendar date lies in [start, end].
func ByDate(records []model.EnrichedRecord, start, end model.Date) *Table[model.Date] {
	return pivot(records, dateOf, model.Date.Compare, start, end)
}

func monthOf(r model.EnrichedRecord) time.Month { return r.Month }
func dateOf(r model.EnrichedRecord) model.Date { return r.Date }

// pivot filters records to the inclusive bucket range, sums hours per
// (bucket, category) and densifies the result over the observed rows and
// columns. Both granularities share it and differ only in bucket and compare.
func pivot[K comparable](
	records []model.EnrichedRecord,
	bucket func(model.EnrichedRecord) K,
	compare func(a, b K) int,
	start, end K,
) *Table[K] {
	sums := make(map[K]map[model.Category]float64)
	columns := make(map[model.Category]struct{})

	for _, r := range records {
		k := bucket(r)
		if compare(k, start) < 0 || compare(k, end) > 0 {
			continue
		}
		row, ok := sums[k]
		if !ok {
			row = make(map[model.Category]float64)
			sums[k] = row
		}
		row[r.Category] += r.Hours
		columns[r.Category] = struct{}{}
	}

	t := &Table[K]{
		Rows:    make([]K, 0, len(sums)),
		Columns: make([]model.Category, 0, len(columns)),
		cells:   sums,
	}
	for k := range sums {
		t.Rows = append(t.Rows, k)
	}
	slices.SortFunc(t.Rows, compare)
	for c := range columns {
		t.Columns = append(t.Columns, c)
	}
	slices.Sort(t.Columns)

	for _, k := range t.Rows {
		row := sums[k]
		for _, c := range t.Columns {
			if _, ok := row[c]; !ok {
				row[c] = 0
			}
		}
	}
	return t
}

// MonthBounds returns the earliest and latest month present in records.
// ok is false for an empty batch.
func MonthBounds(records []model.EnrichedRecord) (lo, hi time.Month, ok bool) {
	return bounds(records, monthOf, cmp.Compare[time.Month])
}

// DateBounds returns the earliest and latest date present in records.
// ok is false for an empty batch.
func DateBounds(records []model.EnrichedRecord) (lo, hi model.Date, ok bool) {
	return bounds(records, dateOf, model.Date.Compare)
}

func bounds[K any](records []model.EnrichedRecord, bucket func(model.EnrichedRecord) K, compare func(a, b K) int) (lo, hi K, ok bool) {
	for i, r := range records {
		k := bucket(r)
		if i == 0 || compare(k, lo) < 0 {
			lo = k
		}
		if i == 0 || compare(k, hi) > 0 {
			hi = k
		}
	}
	return lo, hi, len(records) > 0
}
