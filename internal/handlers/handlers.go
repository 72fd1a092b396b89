package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Brownie44l1/bear-classifier/internal/classifier"
	"github.com/Brownie44l1/bear-classifier/internal/examples"
	"github.com/Brownie44l1/bear-classifier/internal/model"
	"github.com/Brownie44l1/bear-classifier/internal/predlog"
)

type Classifier interface {
	Categories() []string
	PredictReader(ctx context.Context, r io.Reader) (*model.Prediction, error)
	PredictFile(ctx context.Context, path string) (*model.Prediction, error)
	PredictTensor(ctx context.Context, input []float32) (*model.Prediction, error)
}

type Handler struct {
	classifier     Classifier
	examples       *examples.Set
	predictions    *predlog.Writer
	validate       *validator.Validate
	maxUploadBytes int64
	log            *slog.Logger
}

func NewHandler(c Classifier, ex *examples.Set, predictions *predlog.Writer, maxUploadBytes int64, log *slog.Logger) *Handler {
	return &Handler{
		classifier:     c,
		examples:       ex,
		predictions:    predictions,
		validate:       validator.New(),
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, RequestID: RequestID(r.Context())})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"categories": h.classifier.Categories(),
		"examples":   h.examples.Names(),
	})
}

// Predict classifies a raw, already preprocessed CHW tensor.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req model.PredictionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Image) == 0 {
		writeError(w, r, http.StatusBadRequest, "Missing image tensor")
		return
	}

	result, err := h.classifier.PredictTensor(r.Context(), req.Image)
	h.respond(w, r, "tensor", result, err)
}

func (h *Handler) PredictFromImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "Failed to parse form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "No image file provided. Use 'image' as the form field name")
		return
	}
	defer file.Close()

	h.log.Debug("received file",
		slog.String("requestId", RequestID(r.Context())),
		slog.String("filename", header.Filename),
		slog.Int64("size", header.Size))

	result, err := h.classifier.PredictReader(r.Context(), file)
	h.respond(w, r, "upload", result, err)
}

// PredictExample classifies one of the bundled example images by name.
func (h *Handler) PredictExample(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<10)

	var req model.ExampleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ex, ok := h.examples.Lookup(req.Name)
	if !ok {
		writeError(w, r, http.StatusNotFound, "Unknown example "+req.Name)
		return
	}

	result, err := h.classifier.PredictFile(r.Context(), ex.Path)
	h.respond(w, r, "example:"+ex.Name, result, err)
}

func (h *Handler) ExampleImage(w http.ResponseWriter, r *http.Request) {
	ex, ok := h.examples.Lookup(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, ex.Path)
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, source string, result *model.Prediction, err error) {
	requestID := RequestID(r.Context())
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, classifier.ErrInvalidImage) || errors.Is(err, model.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		h.log.Error("prediction failed",
			slog.String("requestId", requestID),
			slog.String("source", source),
			slog.Any("error", err))
		writeError(w, r, status, err.Error())
		return
	}

	if err := h.predictions.Record(requestID, source, result); err != nil {
		h.log.Warn("failed to record prediction", slog.Any("error", err))
	}

	h.log.Info("prediction",
		slog.String("requestId", requestID),
		slog.String("source", source),
		slog.String("class", result.Class),
		slog.Float64("confidence", result.Confidence))
	writeJSON(w, http.StatusOK, result)
}
