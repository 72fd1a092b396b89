package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/bear-classifier/internal/classifier"
	"github.com/Brownie44l1/bear-classifier/internal/examples"
	"github.com/Brownie44l1/bear-classifier/internal/lgr"
	"github.com/Brownie44l1/bear-classifier/internal/model"
	"github.com/Brownie44l1/bear-classifier/internal/predlog"
)

var bears = []string{"black", "grizzly", "teddy"}

type fakeClassifier struct {
	err    error
	paths  []string
	bodies [][]byte
}

func (f *fakeClassifier) Categories() []string { return bears }

func (f *fakeClassifier) result() (*model.Prediction, error) {
	if f.err != nil {
		return nil, f.err
	}
	dist, err := model.NewDistribution(bears, []float32{0.05, 0.15, 0.8}, "")
	if err != nil {
		return nil, err
	}
	return dist.Prediction(), nil
}

func (f *fakeClassifier) PredictReader(_ context.Context, r io.Reader) (*model.Prediction, error) {
	data, _ := io.ReadAll(r)
	f.bodies = append(f.bodies, data)
	return f.result()
}

func (f *fakeClassifier) PredictFile(_ context.Context, path string) (*model.Prediction, error) {
	f.paths = append(f.paths, path)
	return f.result()
}

func (f *fakeClassifier) PredictTensor(_ context.Context, input []float32) (*model.Prediction, error) {
	if len(input) != 12 {
		return nil, fmt.Errorf("%w: %w", model.ErrInferenceFailure, model.ErrInvalidInput)
	}
	return f.result()
}

func newTestHandler(t *testing.T, c Classifier) (*Handler, string) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "bear_teddy.jpg")
	require.NoError(t, os.WriteFile(path, []byte("jpeg bytes"), 0o644))

	ex := examples.NewSet(examples.Example{Name: "bear_teddy.jpg", Path: path})
	logPath := filepath.Join(dir, "predictions.log")
	w := predlog.New(logPath)
	t.Cleanup(func() { w.Close() })

	return NewHandler(c, ex, w, 1<<20, lgr.Discard()), logPath
}

func multipartBody(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, "bear.png")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &body, mw.FormDataContentType()
}

func decodePrediction(t *testing.T, rec *httptest.ResponseRecorder) model.Prediction {
	t.Helper()
	var p model.Prediction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	return p
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t, &fakeClassifier{})
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","categories":["black","grizzly","teddy"],"examples":["bear_teddy.jpg"]}`, rec.Body.String())
}

func TestPredictFromImage(t *testing.T) {
	c := &fakeClassifier{}
	h, logPath := newTestHandler(t, c)

	body, contentType := multipartBody(t, "image", []byte("png bytes"))
	req := httptest.NewRequest(http.MethodPost, "/predict/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.PredictFromImage(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	p := decodePrediction(t, rec)
	assert.Equal(t, "teddy", p.Class)
	assert.Equal(t, bears, p.Predictions.Labels())
	assert.Equal(t, [][]byte{[]byte("png bytes")}, c.bodies)

	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), `"source":"upload"`)
}

func TestPredictFromImageMissingField(t *testing.T) {
	h, _ := newTestHandler(t, &fakeClassifier{})

	body, contentType := multipartBody(t, "file", []byte("png bytes"))
	req := httptest.NewRequest(http.MethodPost, "/predict/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.PredictFromImage(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "'image'")
}

func TestPredictFromImageNotMultipart(t *testing.T) {
	h, _ := newTestHandler(t, &fakeClassifier{})
	rec := httptest.NewRecorder()
	h.PredictFromImage(rec, httptest.NewRequest(http.MethodPost, "/predict/image", strings.NewReader("raw")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPredictionErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"Invalid image", fmt.Errorf("%w: %w", model.ErrInferenceFailure, classifier.ErrInvalidImage), http.StatusBadRequest},
		{"Runtime failure", fmt.Errorf("%w: session crashed", model.ErrInferenceFailure), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(t, &fakeClassifier{err: tt.err})

			body, contentType := multipartBody(t, "image", []byte("png bytes"))
			req := httptest.NewRequest(http.MethodPost, "/predict/image", body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()
			h.PredictFromImage(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Contains(t, resp.Error, "inference failure")
		})
	}
}

func TestPredictTensor(t *testing.T) {
	h, _ := newTestHandler(t, &fakeClassifier{})

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"Valid tensor", `{"image":[0,0,0,0,0,0,0,0,0,0,0,0]}`, http.StatusOK},
		{"Wrong shape", `{"image":[0,0,0]}`, http.StatusBadRequest},
		{"Missing tensor", `{}`, http.StatusBadRequest},
		{"Invalid JSON", `{"image":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Predict(rec, httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestPredictExample(t *testing.T) {
	c := &fakeClassifier{}
	h, _ := newTestHandler(t, c)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"Known example", `{"name":"bear_teddy.jpg"}`, http.StatusOK},
		{"Unknown example", `{"name":"bear_panda.jpg"}`, http.StatusNotFound},
		{"Traversal", `{"name":"../../etc/passwd"}`, http.StatusNotFound},
		{"Missing name", `{}`, http.StatusBadRequest},
		{"Invalid JSON", `name=bear`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.PredictExample(rec, httptest.NewRequest(http.MethodPost, "/predict/example", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
	require.Len(t, c.paths, 1)
	assert.Equal(t, "bear_teddy.jpg", filepath.Base(c.paths[0]))
}

func TestExampleImage(t *testing.T) {
	h, _ := newTestHandler(t, &fakeClassifier{})
	mux := http.NewServeMux()
	mux.HandleFunc("GET /examples/{name}", h.ExampleImage)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/examples/bear_teddy.jpg", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jpeg bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/examples/bear_black.jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWithRequestID(t *testing.T) {
	var seen string
	handler := WithRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	_, err := uuid.Parse(seen)
	require.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, incoming, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "<script>")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.NotEqual(t, "<script>", seen)
}

func TestEnableCORSPreflight(t *testing.T) {
	called := false
	handler := EnableCORS(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/predict/image", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.False(t, called)
}
