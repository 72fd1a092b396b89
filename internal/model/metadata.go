package model

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
)

const (
	defaultInputName  = "input"
	defaultOutputName = "output"
	channels          = 3
)

// LoadMetadata reads the metadata sidecar of a model artifact.
func LoadMetadata(path string) (Metadata, error) {
	metaFile, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: failed to read metadata: %w", ErrLoadFailure, err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metaFile, &metadata); err != nil {
		return Metadata{}, fmt.Errorf("%w: failed to parse metadata: %w", ErrLoadFailure, err)
	}
	return metadata, nil
}

// Normalize fills the fields an export may omit and checks the metadata
// against the categories and square image size the service was configured
// with.
func (m *Metadata) Normalize(categories []string, imageSize int) error {
	if len(categories) == 0 {
		return fmt.Errorf("%w: no categories configured", ErrLoadFailure)
	}
	if len(m.Classes) == 0 {
		m.Classes = slices.Clone(categories)
	}
	if !slices.Equal(m.Classes, categories) {
		return fmt.Errorf("%w: model classes %v do not match categories %v", ErrLoadFailure, m.Classes, categories)
	}

	if m.ImageSize == 0 {
		m.ImageSize = imageSize
	}
	if m.ImageSize != imageSize {
		return fmt.Errorf("%w: model expects %dx%d images, configured for %dx%d",
			ErrLoadFailure, m.ImageSize, m.ImageSize, imageSize, imageSize)
	}

	if len(m.InputShape) == 0 {
		m.InputShape = []int64{1, channels, int64(imageSize), int64(imageSize)}
	}
	if got, want := shapeSize(m.InputShape), channels*imageSize*imageSize; got != want {
		return fmt.Errorf("%w: input shape %v holds %d values, want %d", ErrLoadFailure, m.InputShape, got, want)
	}

	if len(m.OutputShape) == 0 {
		m.OutputShape = []int64{1, int64(len(categories))}
	}
	if got := shapeSize(m.OutputShape); got != len(categories) {
		return fmt.Errorf("%w: output shape %v holds %d values for %d categories", ErrLoadFailure, m.OutputShape, got, len(categories))
	}

	if (len(m.Mean) != 0 && len(m.Mean) != channels) || (len(m.Std) != 0 && len(m.Std) != channels) {
		return fmt.Errorf("%w: mean and std need %d channel values", ErrLoadFailure, channels)
	}
	for _, s := range m.Std {
		if s == 0 {
			return fmt.Errorf("%w: std contains zero", ErrLoadFailure)
		}
	}

	switch m.Activation {
	case "", "none", ActivationSoftmax:
	default:
		return fmt.Errorf("%w: unknown activation %q", ErrLoadFailure, m.Activation)
	}

	if m.InputName == "" {
		m.InputName = defaultInputName
	}
	if m.OutputName == "" {
		m.OutputName = defaultOutputName
	}
	return nil
}

// InputSize is the number of float32 values one input tensor holds.
func (m Metadata) InputSize() int {
	return shapeSize(m.InputShape)
}

func shapeSize(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	size := 1
	for _, dim := range shape {
		size *= int(dim)
	}
	return size
}
