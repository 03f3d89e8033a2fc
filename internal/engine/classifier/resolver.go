package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/crimson-sun/worktally/internal/model"
)

// Resolution is the outcome of resolving one subject.
type Resolution struct {
	Category model.Category
	Source   model.Source
}

// Resolver composes a learned classifier with the keyword fallback.
// It holds no mutable state and is safe for concurrent use.
type Resolver struct {
	primary  Classifier
	fallback *Rules
	onError  func(*ClassificationError)
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRules replaces the default fallback rule table.
func WithRules(rules []Rule) Option {
	return func(r *Resolver) { r.fallback = NewRules(rules) }
}

// WithOnError sets a hook invoked whenever the primary classifier fails.
// Default: logs at debug level via slog.
func WithOnError(f func(*ClassificationError)) Option {
	return func(r *Resolver) { r.onError = f }
}

// NewResolver creates a Resolver that tries primary first. A nil primary
// behaves like Unavailable.
func NewResolver(primary Classifier, opts ...Option) *Resolver {
	if primary == nil {
		primary = Unavailable{}
	}
	r := &Resolver{
		primary:  primary,
		fallback: NewRules(DefaultRules()),
		onError: func(err *ClassificationError) {
			slog.Debug("classifier fallback", "subject", err.Subject, "error", err.Err)
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve classifies subject. Empty subjects are Unknown without consulting
// any classifier. A primary result is returned verbatim, even when it is
// outside the known category set. Any primary error falls through to the
// keyword rules; Resolve itself never fails.
func (r *Resolver) Resolve(ctx context.Context, subject string) Resolution {
	if strings.TrimSpace(subject) == "" {
		return Resolution{Category: model.Unknown, Source: model.SourceNone}
	}

	cat, err := r.classifyPrimary(ctx, subject)
	if err == nil {
		return Resolution{Category: cat, Source: model.SourceModel}
	}

	r.onError(&ClassificationError{Subject: subject, Err: err})
	return Resolution{Category: r.fallback.Match(subject), Source: model.SourceRule}
}

// Category is shorthand for Resolve(ctx, subject).Category.
func (r *Resolver) Category(ctx context.Context, subject string) model.Category {
	return r.Resolve(ctx, subject).Category
}

// classifyPrimary calls the primary classifier, converting a panic into an
// error so a misbehaving model cannot take down the batch.
func (r *Resolver) classifyPrimary(ctx context.Context, subject string) (cat model.Category, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p}
		}
	}()
	return r.primary.Classify(ctx, subject)
}

type panicError struct{ value any }

func (e *panicError) Error() string {
	return fmt.Sprintf("classifier panicked: %v", e.value)
}
