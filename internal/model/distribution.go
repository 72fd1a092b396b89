package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/samber/lo"
)

const ActivationSoftmax = "softmax"

// Score is the probability of a single category.
type Score struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
}

// Distribution holds one Score per category, in category order. It encodes
// as a JSON object whose keys keep that order.
type Distribution []Score

// NewDistribution pairs raw model scores with categories. With the softmax
// activation the scores are treated as logits. Values are not renormalized.
func NewDistribution(categories []string, scores []float32, activation string) (Distribution, error) {
	if len(scores) != len(categories) {
		return nil, fmt.Errorf("model returned %d scores for %d categories", len(scores), len(categories))
	}

	values := lo.Map(scores, func(v float32, _ int) float64 { return float64(v) })
	switch activation {
	case "", "none":
	case ActivationSoftmax:
		values = softmax(values)
	default:
		return nil, fmt.Errorf("unknown activation %q", activation)
	}

	dist := make(Distribution, len(categories))
	for i, label := range categories {
		v := values[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("non finite score %v for %q", v, label)
		}
		dist[i] = Score{Label: label, Probability: v}
	}
	return dist, nil
}

func softmax(logits []float64) []float64 {
	maxLogit := lo.Max(logits)
	out := make([]float64, len(logits))
	var total float64
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		total += out[i]
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// Top returns the index and score of the most probable category. Ties go to
// the earliest category.
func (d Distribution) Top() (int, Score) {
	if len(d) == 0 {
		return -1, Score{}
	}
	best := 0
	for i, s := range d {
		if s.Probability > d[best].Probability {
			best = i
		}
	}
	return best, d[best]
}

func (d Distribution) Labels() []string {
	return lo.Map(d, func(s Score, _ int) string { return s.Label })
}

func (d Distribution) Sum() float64 {
	return lo.SumBy(d, func(s Score) float64 { return s.Probability })
}

func (d Distribution) Map() map[string]float64 {
	return lo.SliceToMap(d, func(s Score) (string, float64) { return s.Label, s.Probability })
}

// Prediction builds the full prediction around the distribution.
func (d Distribution) Prediction() *Prediction {
	idx, top := d.Top()
	return &Prediction{
		Class:       top.Label,
		Index:       idx,
		Confidence:  top.Probability,
		Predictions: d,
	}
}

func (d Distribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(s.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.Probability)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Distribution) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("distribution: expected object, got %v", tok)
	}

	out := Distribution{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("distribution: expected key, got %v", tok)
		}
		var p float64
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("distribution: value for %q: %w", label, err)
		}
		out = append(out, Score{Label: label, Probability: p})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}
