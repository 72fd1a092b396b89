package classifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"slices"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"

	"github.com/Brownie44l1/bear-classifier/internal/model"
)

var ErrInvalidImage = errors.New("invalid image")

var supportedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/bmp", "image/tiff"}

type Options struct {
	ImageSize     int
	Method        ResizeMethod
	Normalization Normalization
}

// Classifier adapts a loaded model to images. It holds no state besides the
// predictor handle and is safe for concurrent use if the predictor is.
type Classifier struct {
	predictor model.Predictor
	opts      Options
	log       *slog.Logger
}

func New(predictor model.Predictor, opts Options, log *slog.Logger) *Classifier {
	if opts.Method == "" {
		opts.Method = ResizeCrop
	}
	return &Classifier{
		predictor: predictor,
		opts:      opts,
		log:       log,
	}
}

func (c *Classifier) Categories() []string {
	return c.predictor.Categories()
}

func (c *Classifier) ImageSize() int {
	return c.opts.ImageSize
}

// Classify returns the distribution over categories for img.
func (c *Classifier) Classify(ctx context.Context, img image.Image) (model.Distribution, error) {
	p, err := c.PredictImage(ctx, img)
	if err != nil {
		return nil, err
	}
	return p.Predictions, nil
}

func (c *Classifier) PredictImage(ctx context.Context, img image.Image) (*model.Prediction, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %w: empty image", model.ErrInferenceFailure, ErrInvalidImage)
	}
	input := Preprocess(img, c.opts.ImageSize, c.opts.Method, c.opts.Normalization)
	return c.PredictTensor(ctx, input)
}

// PredictTensor runs an already preprocessed CHW tensor through the model.
func (c *Classifier) PredictTensor(ctx context.Context, input []float32) (*model.Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInferenceFailure, err)
	}

	p, err := c.predictor.Predict(input)
	if err != nil {
		if !errors.Is(err, model.ErrInferenceFailure) {
			err = fmt.Errorf("%w: %w", model.ErrInferenceFailure, err)
		}
		return nil, err
	}

	if !slices.Equal(p.Predictions.Labels(), c.predictor.Categories()) {
		return nil, fmt.Errorf("%w: predictor returned labels %v", model.ErrInferenceFailure, p.Predictions.Labels())
	}

	c.log.Debug("prediction",
		slog.String("class", p.Class),
		slog.Float64("confidence", p.Confidence))
	return p, nil
}

// PredictReader decodes an encoded image and classifies it.
func (c *Classifier) PredictReader(ctx context.Context, r io.Reader) (*model.Prediction, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: reading image: %w", model.ErrInferenceFailure, err)
	}

	detected := mimetype.Detect(data)
	if !lo.SomeBy(supportedTypes, detected.Is) {
		return nil, fmt.Errorf("%w: %w: unsupported content type %s", model.ErrInferenceFailure, ErrInvalidImage, detected.String())
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %w", model.ErrInferenceFailure, ErrInvalidImage, err)
	}

	c.log.Debug("decoded image",
		slog.String("type", detected.String()),
		slog.Int("width", img.Bounds().Dx()),
		slog.Int("height", img.Bounds().Dy()))

	return c.PredictImage(ctx, img)
}

func (c *Classifier) PredictFile(ctx context.Context, path string) (*model.Prediction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInferenceFailure, err)
	}
	defer f.Close()
	return c.PredictReader(ctx, f)
}
