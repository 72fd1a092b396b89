package model

// Metadata describes the exported classifier graph. It is read from the JSON
// file shipped next to the ONNX artifact.
type Metadata struct {
	InputShape  []int64   `json:"input_shape"`
	OutputShape []int64   `json:"output_shape"`
	Classes     []string  `json:"classes"`
	ImageSize   int       `json:"image_size"`
	InputName   string    `json:"input_name"`
	OutputName  string    `json:"output_name"`
	Mean        []float32 `json:"mean"`
	Std         []float32 `json:"std"`
	Activation  string    `json:"activation"`
}

// PredictionRequest carries an already preprocessed CHW tensor.
type PredictionRequest struct {
	Image []float32 `json:"image"`
}

// ExampleRequest asks for one of the bundled example images to be classified.
type ExampleRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// Prediction is the label, index and per category distribution produced for
// one image.
type Prediction struct {
	Class       string       `json:"class"`
	Index       int          `json:"index"`
	Confidence  float64      `json:"confidence"`
	Predictions Distribution `json:"predictions"`
}

// Predictor is the loaded model as seen by the prediction adapter.
type Predictor interface {
	Predict(input []float32) (*Prediction, error)
	Categories() []string
}
