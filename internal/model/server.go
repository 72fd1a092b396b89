package model

import (
	"fmt"
	"os"
	"slices"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Options locate the artifact and describe what the caller expects from it.
type Options struct {
	ModelPath         string
	MetadataPath      string
	SharedLibraryPath string
	Categories        []string
	ImageSize         int
}

// Server is an ONNX Runtime session bound to a single input and output
// tensor. Calls to Predict are serialized since they share those tensors.
type Server struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	Metadata     Metadata
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	closed       bool
}

// NewServer loads the artifact. Any problem with the model file, its
// metadata or the runtime is reported as ErrLoadFailure.
func NewServer(opts Options) (*Server, error) {
	metadata, err := LoadMetadata(opts.MetadataPath)
	if err != nil {
		return nil, err
	}
	if err := metadata.Normalize(opts.Categories, opts.ImageSize); err != nil {
		return nil, err
	}

	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("%w: model artifact: %w", ErrLoadFailure, err)
	}

	if err := ortEnvironment.acquire(opts.SharedLibraryPath); err != nil {
		return nil, fmt.Errorf("%w: failed to initialize ONNX environment: %w", ErrLoadFailure, err)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		ortEnvironment.release()
		return nil, fmt.Errorf("%w: failed to create input tensor: %w", ErrLoadFailure, err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		ortEnvironment.release()
		return nil, fmt.Errorf("%w: failed to create output tensor: %w", ErrLoadFailure, err)
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		ortEnvironment.release()
		return nil, fmt.Errorf("%w: failed to create ONNX session: %w", ErrLoadFailure, err)
	}

	return &Server{
		session:      session,
		Metadata:     metadata,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (s *Server) Categories() []string {
	return slices.Clone(s.Metadata.Classes)
}

// Predict runs one CHW tensor through the model.
func (s *Server) Predict(inputData []float32) (*Prediction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("%w: server closed", ErrInferenceFailure)
	}
	dst := s.inputTensor.GetData()
	if len(inputData) != len(dst) {
		return nil, fmt.Errorf("%w: %w: expected %d values, got %d",
			ErrInferenceFailure, ErrInvalidInput, len(dst), len(inputData))
	}
	copy(dst, inputData)

	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInferenceFailure, err)
	}

	dist, err := NewDistribution(s.Metadata.Classes, s.outputTensor.GetData(), s.Metadata.Activation)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInferenceFailure, err)
	}
	return dist.Prediction(), nil
}

// Close releases the session and tensors. Only the first call has an effect.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
	}
	if s.session != nil {
		s.session.Destroy()
	}
	ortEnvironment.release()
}
