package multi

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/crimson-sun/worktally/internal/model"
	"github.com/crimson-sun/worktally/internal/output"
)

// Multi fans out reports to multiple output.Output implementations.
// Each Write delivers the report to every wrapped output concurrently.
// If one output fails, the others still receive the report.
type Multi struct {
	outputs []output.Output
	limit   int
}

// New creates a Multi that fans out to the given outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs, limit: -1}
}

// WithLimit caps the number of outputs written concurrently. n <= 0 means no cap.
func (m *Multi) WithLimit(n int) *Multi {
	if n <= 0 {
		n = -1
	}
	m.limit = n
	return m
}

// Len returns the number of wrapped outputs.
func (m *Multi) Len() int {
	return len(m.outputs)
}

// Write delivers the report to every wrapped output and joins their errors.
func (m *Multi) Write(ctx context.Context, report model.Report) error {
	errs := make([]error, len(m.outputs))
	var g errgroup.Group
	g.SetLimit(m.limit)
	for i, o := range m.outputs {
		g.Go(func() error {
			errs[i] = o.Write(ctx, report)
			return nil
		})
	}
	g.Wait()
	return errors.Join(errs...)
}

// Close calls Close on every wrapped output, collecting errors.
func (m *Multi) Close() error {
	var errs []error
	for _, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
