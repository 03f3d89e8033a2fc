// Package csvfile reads activity records from a calendar CSV export.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/japanese"
	xunicode "golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/crimson-sun/worktally/internal/connector"
	"github.com/crimson-sun/worktally/internal/model"
)

func init() {
	connector.Register("csv", func() connector.Connector { return &Connector{} })
}

// Supported encodings.
const (
	UTF8     = "utf-8"
	ShiftJIS = "shift_jis"
)

// MissingColumnError reports a required header that is not present.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("csvfile: missing column %q", e.Column)
}

// Connector reads a CSV file from disk.
type Connector struct{}

// Stdin is the path that reads from standard input.
const Stdin = "-"

// Query opens cfg.Path (standard input for "-") and reads every row as a
// RawRecord.
func (c *Connector) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.RawRecord, error) {
	opts := Options{Encoding: cfg.Encoding, Columns: cfg.Columns, Limit: params.Limit}
	if cfg.Path == Stdin {
		return Read(ctx, os.Stdin, opts)
	}
	f, err := os.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("csvfile: %w", err)
	}
	defer f.Close()
	return Read(ctx, f, opts)
}

// Options controls Read.
type Options struct {
	Encoding string
	Columns  connector.Columns
	Limit    int // 0 means no limit
}

// Read decodes CSV from r. The first row is the header. Only the five
// logical columns are used; others are ignored. An empty subject cell
// becomes a nil Subject. Each record carries the line its row starts on.
func Read(ctx context.Context, r io.Reader, opts Options) ([]model.RawRecord, error) {
	dec, err := decoder(r, opts.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(dec)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("csvfile: header: %w", err)
	}

	idx, err := columnIndex(header, opts.Columns.WithDefaults())
	if err != nil {
		return nil, err
	}

	var records []model.RawRecord
	for {
		if opts.Limit > 0 && len(records) >= opts.Limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvfile: %w", err)
		}
		if blank(row) {
			continue
		}
		rec := idx.record(row)
		rec.Line, _ = cr.FieldPos(0)
		records = append(records, rec)
	}
	return records, nil
}

func decoder(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(encoding, "-", "_")) {
	case "", "utf_8", "utf8":
		return transform.NewReader(r, xunicode.UTF8BOM.NewDecoder()), nil
	case "shift_jis", "sjis", "cp932":
		return transform.NewReader(r, japanese.ShiftJIS.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("csvfile: unsupported encoding %q", encoding)
	}
}

type index struct {
	subject, startDate, startTime, endDate, endTime int
}

func columnIndex(header []string, cols connector.Columns) (index, error) {
	pos := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if _, dup := pos[h]; !dup {
			pos[h] = i
		}
	}
	var idx index
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{cols.Subject, &idx.subject},
		{cols.StartDate, &idx.startDate},
		{cols.StartTime, &idx.startTime},
		{cols.EndDate, &idx.endDate},
		{cols.EndTime, &idx.endTime},
	} {
		i, ok := pos[f.name]
		if !ok {
			return index{}, &MissingColumnError{Column: f.name}
		}
		*f.dst = i
	}
	return idx, nil
}

func (idx index) record(row []string) model.RawRecord {
	cell := func(i int) string {
		if i < len(row) {
			return row[i]
		}
		return ""
	}
	rec := model.RawRecord{
		StartDate: cell(idx.startDate),
		StartTime: cell(idx.startTime),
		EndDate:   cell(idx.endDate),
		EndTime:   cell(idx.endTime),
	}
	if s := cell(idx.subject); s != "" {
		rec.Subject = &s
	}
	return rec
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
