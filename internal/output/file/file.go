package file

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/crimson-sun/worktally/internal/model"
	"github.com/crimson-sun/worktally/internal/output"
)

const (
	defaultBufSize = 64 * 1024
	defaultKeep    = 10
)

// Option configures a file Output.
type Option func(*Output)

// WithMaxSize sets the file size (bytes) at which rotation triggers.
// 0 (default) disables rotation.
func WithMaxSize(bytes int64) Option {
	return func(o *Output) { o.maxSize = bytes }
}

// WithKeep sets how many rotated files ({path}.1 … {path}.N) are kept. Default: 10.
func WithKeep(n int) Option {
	return func(o *Output) { o.keep = n }
}

// WithFormat selects JSON lines (default) or text tables.
func WithFormat(f output.Format) Option {
	return func(o *Output) { o.format = f }
}

// Output appends reports to a file, one JSON document per line or one text
// table per block, with buffered I/O and optional size-based rotation.
type Output struct {
	mu      sync.Mutex
	path    string
	f       *os.File
	w       *bufio.Writer
	format  output.Format
	maxSize int64 // 0 = no rotation
	keep    int
	written int64
}

// New opens (or creates) path for appending.
func New(path string, opts ...Option) (*Output, error) {
	o := &Output{
		path:   path,
		format: output.FormatJSON,
		keep:   defaultKeep,
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.open(); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *Output) encode(report model.Report) ([]byte, error) {
	if o.format == output.FormatTable {
		return []byte(output.RenderTable(report) + "\n"), nil
	}
	data, err := json.Marshal(report)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write appends one report.
func (o *Output) Write(_ context.Context, report model.Report) error {
	data, err := o.encode(report)
	if err != nil {
		return fmt.Errorf("file output: marshal: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.maxSize > 0 && o.written > 0 && o.written+int64(len(data)) > o.maxSize {
		if err := o.rotate(); err != nil {
			return fmt.Errorf("file output: rotate: %w", err)
		}
	}

	n, err := o.w.Write(data)
	o.written += int64(n)
	if err != nil {
		return fmt.Errorf("file output: write: %w", err)
	}
	return nil
}

// Close flushes the buffer and closes the file.
func (o *Output) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.w.Flush(); err != nil {
		o.f.Close()
		return fmt.Errorf("file output: flush: %w", err)
	}
	return o.f.Close()
}

func (o *Output) open() error {
	f, err := os.OpenFile(o.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("file output: open %s: %w", o.path, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("file output: stat %s: %w", o.path, err)
	}
	o.f = f
	o.w = bufio.NewWriterSize(f, defaultBufSize)
	o.written = info.Size()
	return nil
}

// rotate shifts {path}.N-1 → {path}.N down to the current file → {path}.1,
// dropping anything beyond keep, then reopens path.
func (o *Output) rotate() error {
	if err := o.w.Flush(); err != nil {
		return err
	}
	if err := o.f.Close(); err != nil {
		return err
	}

	os.Remove(fmt.Sprintf("%s.%d", o.path, o.keep))
	for i := o.keep - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", o.path, i), fmt.Sprintf("%s.%d", o.path, i+1)) // may not exist
	}
	if err := os.Rename(o.path, o.path+".1"); err != nil {
		return err
	}
	return o.open()
}
