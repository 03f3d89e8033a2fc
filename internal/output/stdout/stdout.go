package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/crimson-sun/worktally/internal/model"
	"github.com/crimson-sun/worktally/internal/output"
)

// Output writes reports to stdout, as an aligned table or as JSON.
type Output struct {
	w      io.Writer
	enc    *json.Encoder
	format output.Format
}

// New creates a stdout Output. pretty indents JSON; it has no effect on
// table output.
func New(format output.Format, pretty bool) *Output {
	return NewWriter(os.Stdout, format, pretty)
}

// NewWriter is New with an explicit destination.
func NewWriter(w io.Writer, format output.Format, pretty bool) *Output {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{w: w, enc: enc, format: format}
}

func (o *Output) Write(_ context.Context, report model.Report) error {
	if o.format == output.FormatJSON {
		if err := o.enc.Encode(report); err != nil {
			return fmt.Errorf("stdout output: %w", err)
		}
		return nil
	}
	if _, err := io.WriteString(o.w, output.RenderTable(report)+"\n"); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
