package classifier

import (
	"image"

	"github.com/disintegration/imaging"
	"github.com/nfnt/resize"
)

type ResizeMethod string

const (
	// ResizeCrop scales the shorter side to size and crops the center.
	ResizeCrop ResizeMethod = "crop"
	// ResizeSquish scales both sides to size, ignoring the aspect ratio.
	ResizeSquish ResizeMethod = "squish"
)

// Normalization holds per channel RGB statistics applied after scaling
// pixels to [0,1].
type Normalization struct {
	Mean [3]float32
	Std  [3]float32
}

// Identity leaves pixel values in [0,1].
var Identity = Normalization{
	Mean: [3]float32{0, 0, 0},
	Std:  [3]float32{1, 1, 1},
}

// NewNormalization falls back to Identity for missing statistics.
func NewNormalization(mean, std []float32) Normalization {
	n := Identity
	if len(mean) == 3 {
		copy(n.Mean[:], mean)
	}
	if len(std) == 3 {
		copy(n.Std[:], std)
	}
	return n
}

func squareResize(img image.Image, size int, method ResizeMethod) image.Image {
	if method == ResizeSquish {
		return resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	}
	return imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)
}

// Preprocess converts an image to the planar CHW float32 layout expected by
// the model.
func Preprocess(img image.Image, size int, method ResizeMethod, norm Normalization) []float32 {
	resized := squareResize(img, size, method)

	bounds := resized.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height

	inputData := make([]float32, 3*plane)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := resized.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()

			pixelIndex := y*width + x
			inputData[pixelIndex] = (float32(r)/65535.0 - norm.Mean[0]) / norm.Std[0]
			inputData[plane+pixelIndex] = (float32(g)/65535.0 - norm.Mean[1]) / norm.Std[1]
			inputData[2*plane+pixelIndex] = (float32(b)/65535.0 - norm.Mean[2]) / norm.Std[2]
		}
	}
	return inputData
}
