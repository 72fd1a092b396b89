package predlog

import (
	"encoding/json"
	"io"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Brownie44l1/bear-classifier/internal/model"
)

// Entry is one line of the prediction log.
type Entry struct {
	Time        time.Time          `json:"time"`
	RequestID   string             `json:"requestId"`
	Source      string             `json:"source"`
	Class       string             `json:"class"`
	Confidence  float64            `json:"confidence"`
	Predictions model.Distribution `json:"predictions"`
}

// Writer appends JSON lines. The zero value and a nil Writer drop entries.
type Writer struct {
	mu  sync.Mutex
	out io.WriteCloser
	enc *json.Encoder
}

// New opens a size rotated log at path. An empty path disables logging.
func New(path string) *Writer {
	if path == "" {
		return &Writer{}
	}
	return NewWithWriter(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     7,    // days
		Compress:   true, // compress old logs
	})
}

func NewWithWriter(out io.WriteCloser) *Writer {
	return &Writer{out: out, enc: json.NewEncoder(out)}
}

func (w *Writer) Enabled() bool {
	return w != nil && w.out != nil
}

func (w *Writer) Record(requestID, source string, p *model.Prediction) error {
	if !w.Enabled() || p == nil {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.enc.Encode(Entry{
		Time:        time.Now().UTC(),
		RequestID:   requestID,
		Source:      source,
		Class:       p.Class,
		Confidence:  p.Confidence,
		Predictions: p.Predictions,
	})
}

func (w *Writer) Close() error {
	if !w.Enabled() {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Close()
}
