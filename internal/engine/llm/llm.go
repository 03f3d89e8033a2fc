// Package llm classifies subjects by asking an Anthropic model to pick a
// label. It implements classifier.Classifier.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/crimson-sun/worktally/internal/model"
)

const (
	defaultModel   = "claude-3-5-haiku-latest"
	defaultTimeout = 15 * time.Second
	maxTokens      = 16
)

// ErrEmptyResponse is returned when the model answers with no text.
var ErrEmptyResponse = errors.New("llm: no text content in response")

// Option configures a Classifier.
type Option func(*Classifier)

// WithModel sets the model name. Default: claude-3-5-haiku-latest.
func WithModel(name string) Option {
	return func(c *Classifier) { c.model = name }
}

// WithTimeout bounds each classification request. Zero disables the limit.
// Default: 15s.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) { c.timeout = d }
}

// WithLabels sets the labels the model may choose from.
// Default: the known categories except Unknown.
func WithLabels(labels []model.Category) Option {
	return func(c *Classifier) { c.labels = labels }
}

// WithClientOptions passes extra options to the Anthropic client
// (base URL, retries, HTTP client).
func WithClientOptions(opts ...option.RequestOption) Option {
	return func(c *Classifier) { c.clientOpts = append(c.clientOpts, opts...) }
}

// Classifier asks an Anthropic model for a label. The label it returns is
// trusted verbatim; failures surface as errors so the caller can fall back.
type Classifier struct {
	client     anthropic.Client
	model      string
	timeout    time.Duration
	labels     []model.Category
	clientOpts []option.RequestOption
	system     string
}

// New creates a Classifier authenticated with apiKey.
func New(apiKey string, opts ...Option) *Classifier {
	c := &Classifier{
		model:   defaultModel,
		timeout: defaultTimeout,
		labels:  []model.Category{model.Meeting, model.Training, model.Development, model.Vacation, model.Other},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.client = anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, c.clientOpts...)...)
	c.system = systemPrompt(c.labels)
	return c
}

func systemPrompt(labels []model.Category) string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l)
	}
	return "You categorize calendar entries from a Japanese workplace by their subject line.\n" +
		"Answer with exactly one of these labels and nothing else: " + strings.Join(names, ", ") + "."
}

// Classify sends one subject to the model and returns its trimmed answer.
func (c *Classifier) Classify(ctx context.Context, text string) (model.Category, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: c.system, CacheControl: anthropic.NewCacheControlEphemeralParam()},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: anthropic: %w", err)
	}

	for _, block := range message.Content {
		if block.Type != "text" {
			continue
		}
		if label := strings.TrimSpace(block.Text); label != "" {
			return model.Category(label), nil
		}
	}
	return "", ErrEmptyResponse
}
