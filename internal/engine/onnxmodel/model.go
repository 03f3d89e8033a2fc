// Package onnxmodel runs a pre-trained bag-of-words text classifier exported
// to ONNX. It implements classifier.Classifier.
package onnxmodel

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/crimson-sun/worktally/internal/model"
)

// File names expected inside a model directory.
const (
	ModelFile  = "model.onnx"
	VocabFile  = "vocab.txt"
	LabelsFile = "labels.txt"
	LibFile    = "libonnxruntime.so"
)

// ErrNoFeatures is returned when a subject shares no terms with the
// vocabulary, so the model has nothing to score.
var ErrNoFeatures = errors.New("onnxmodel: no known terms in text")

// Model is a loaded classifier. Safe for concurrent use.
type Model struct {
	session *session
	vec     *vectorizer
	labels  []model.Category
}

// Load reads model.onnx, vocab.txt and labels.txt from dir. The ONNX
// Runtime shared library is expected alongside them.
func Load(dir string) (*Model, error) {
	terms, err := readLines(filepath.Join(dir, VocabFile))
	if err != nil {
		return nil, fmt.Errorf("onnxmodel: vocab: %w", err)
	}
	names, err := readLines(filepath.Join(dir, LabelsFile))
	if err != nil {
		return nil, fmt.Errorf("onnxmodel: labels: %w", err)
	}

	sess, err := newSession(filepath.Join(dir, LibFile), filepath.Join(dir, ModelFile), len(terms), len(names))
	if err != nil {
		return nil, fmt.Errorf("onnxmodel: %w", err)
	}

	labels := make([]model.Category, len(names))
	for i, n := range names {
		labels[i] = model.Category(n)
	}
	return &Model{session: sess, vec: newVectorizer(terms), labels: labels}, nil
}

// Labels returns the label set the model was trained on.
func (m *Model) Labels() []model.Category {
	return append([]model.Category(nil), m.labels...)
}

// Classify scores text and returns the highest-scoring label.
func (m *Model) Classify(ctx context.Context, text string) (model.Category, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	features, hits := m.vec.transform(text)
	if hits == 0 {
		return "", ErrNoFeatures
	}
	scores, err := m.session.scores(features)
	if err != nil {
		return "", fmt.Errorf("onnxmodel: %w", err)
	}
	return m.labels[argmax(scores)], nil
}

// Close releases ONNX Runtime resources.
func (m *Model) Close() error {
	if m.session != nil {
		return m.session.close()
	}
	return nil
}

// argmax returns the index of the largest score; ties go to the lowest index.
func argmax(scores []float32) int {
	best := 0
	for i, s := range scores {
		if s > scores[best] {
			best = i
		}
	}
	return best
}
