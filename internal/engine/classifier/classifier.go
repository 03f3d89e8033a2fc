package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/worktally/internal/model"
)

// Classifier maps free-text subjects to a category label.
type Classifier interface {
	Classify(ctx context.Context, text string) (model.Category, error)
}

// Func adapts an ordinary function to the Classifier interface.
type Func func(ctx context.Context, text string) (model.Category, error)

func (f Func) Classify(ctx context.Context, text string) (model.Category, error) {
	return f(ctx, text)
}

// ErrUnavailable is returned by a classifier that has no model loaded.
var ErrUnavailable = errors.New("classifier: model unavailable")

// Unavailable is a Classifier that always fails. It stands in for the
// learned model when none is configured or loading failed, so every
// subject goes through the rule fallback.
type Unavailable struct {
	Reason error // optional; wrapped into every returned error
}

func (u Unavailable) Classify(context.Context, string) (model.Category, error) {
	if u.Reason != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, u.Reason)
	}
	return "", ErrUnavailable
}

// ClassificationError wraps a failure of the primary classifier.
// The resolver absorbs it; it is exposed so hooks and logs can inspect it.
type ClassificationError struct {
	Subject string
	Err     error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %q: %v", e.Subject, e.Err)
}

func (e *ClassificationError) Unwrap() error {
	return e.Err
}
