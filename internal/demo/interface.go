package demo

import (
	"github.com/Brownie44l1/bear-classifier/internal/examples"
)

// Interface describes what the demo page shows: an image input of a fixed
// square size, a label distribution output and a set of example inputs.
type Interface struct {
	Title       string
	Description string
	ImageSize   int
	Categories  []string
	Examples    *examples.Set
}

type pageData struct {
	Title       string
	Description string
	ImageSize   int
	Categories  []string
	Examples    []string
	MaxUpload   int64
}
