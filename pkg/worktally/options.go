package worktally

import "context"

type options struct {
	modelDir   string
	classifier func(ctx context.Context, text string) (string, error)
	layout     string
}

// Option configures a Worktally instance.
type Option func(*options)

// WithModelDir loads the ONNX classifier from dir.
// Expects: model.onnx, vocab.txt, labels.txt, libonnxruntime.so.
func WithModelDir(dir string) Option {
	return func(o *options) {
		o.modelDir = dir
	}
}

// WithClassifier sets a custom primary classifier. Any error it returns
// falls back to keyword rules. Takes precedence over WithModelDir.
func WithClassifier(f func(ctx context.Context, text string) (string, error)) Option {
	return func(o *options) {
		o.classifier = f
	}
}

// WithLayout sets the time layout for the joined "date time" string.
// Default: "2006-01-02 15:04".
func WithLayout(layout string) Option {
	return func(o *options) {
		o.layout = layout
	}
}
