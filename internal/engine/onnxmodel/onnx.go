package onnxmodel

import (
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ortEnv manages global ONNX Runtime initialization (process-wide singleton).
var ortEnv struct {
	once sync.Once
	err  error
}

// initORT initializes the ONNX Runtime environment. Only the first call has
// any effect; later calls return the first call's result.
func initORT(libPath string) error {
	ortEnv.once.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		ortEnv.err = ort.InitializeEnvironment()
	})
	return ortEnv.err
}

// session wraps a DynamicAdvancedSession for a bag-of-words text classifier:
// one float input of shape [batch, features], one float output of shape
// [batch, classes].
type session struct {
	mu         sync.Mutex
	sess       *ort.DynamicAdvancedSession
	inputName  string
	outputName string
	features   int64
	classes    int64
}

// newSession loads the model and checks its tensor shapes against the
// vocabulary and label counts.
func newSession(libPath, modelPath string, features, classes int) (*session, error) {
	if err := initORT(libPath); err != nil {
		return nil, fmt.Errorf("onnx: failed to initialize runtime: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to read model info: %w", err)
	}
	if len(inputs) != 1 {
		return nil, fmt.Errorf("onnx: expected 1 input, model has %d", len(inputs))
	}
	if len(outputs) == 0 {
		return nil, fmt.Errorf("onnx: model has no outputs")
	}

	in, out := inputs[0], outputs[0]
	if err := checkDims("input", in.Dimensions, int64(features)); err != nil {
		return nil, err
	}
	if err := checkDims("output", out.Dimensions, int64(classes)); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session options: %w", err)
	}
	defer opts.Destroy()
	opts.SetIntraOpNumThreads(1)
	opts.SetInterOpNumThreads(1)

	sess, err := ort.NewDynamicAdvancedSession(modelPath, []string{in.Name}, []string{out.Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create session: %w", err)
	}

	return &session{
		sess:       sess,
		inputName:  in.Name,
		outputName: out.Name,
		features:   int64(features),
		classes:    int64(classes),
	}, nil
}

// checkDims expects a 2D [batch, want] tensor; a dynamic batch dim (-1) is fine.
func checkDims(kind string, dims ort.Shape, want int64) error {
	if len(dims) != 2 {
		return fmt.Errorf("onnx: expected 2D %s tensor, got %v", kind, dims)
	}
	if dims[1] != want {
		return fmt.Errorf("onnx: %s width %d != expected %d", kind, dims[1], want)
	}
	return nil
}

// scores runs inference for a single feature vector and returns one score
// per class.
func (s *session) scores(features []float32) ([]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tIn, err := ort.NewTensor(ort.NewShape(1, s.features), features)
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create input tensor: %w", err)
	}
	defer tIn.Destroy()

	tOut, err := ort.NewEmptyTensor[float32](ort.NewShape(1, s.classes))
	if err != nil {
		return nil, fmt.Errorf("onnx: failed to create output tensor: %w", err)
	}
	defer tOut.Destroy()

	if err := s.sess.Run([]ort.Value{tIn}, []ort.Value{tOut}); err != nil {
		return nil, fmt.Errorf("onnx: inference failed: %w", err)
	}

	// Copy data out before tensor is destroyed.
	src := tOut.GetData()
	result := make([]float32, len(src))
	copy(result, src)
	return result, nil
}

func (s *session) close() error {
	return s.sess.Destroy()
}
