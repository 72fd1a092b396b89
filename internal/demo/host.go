package demo

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/Brownie44l1/bear-classifier/internal/handlers"
)

//go:embed templates/*.html
var templates embed.FS

var ErrAlreadyLaunched = errors.New("demo host already launched")

type Options struct {
	Addr            string
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// Host serves one Interface backed by one handler set. It runs as a
// standalone HTTP server and can be launched once.
type Host struct {
	iface    Interface
	handler  *handlers.Handler
	opts     Options
	log      *slog.Logger
	page     *template.Template
	launched atomic.Bool
	ready    chan struct{}
	addr     string
}

func NewHost(iface Interface, handler *handlers.Handler, opts Options, log *slog.Logger) (*Host, error) {
	page, err := template.ParseFS(templates, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}
	return &Host{
		iface:   iface,
		handler: handler,
		opts:    opts,
		log:     log,
		page:    page,
		ready:   make(chan struct{}),
	}, nil
}

// Handler registers every route of the demo host.
func (h *Host) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.index)
	mux.HandleFunc("GET /health", h.handler.Health)
	mux.HandleFunc("POST /predict", h.handler.Predict)
	mux.HandleFunc("POST /predict/image", h.handler.PredictFromImage)
	mux.HandleFunc("POST /predict/example", h.handler.PredictExample)
	mux.HandleFunc("GET /examples/{name}", h.handler.ExampleImage)

	return handlers.WithRequestID(handlers.AccessLog(h.log, handlers.EnableCORS(mux)))
}

func (h *Host) index(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:       h.iface.Title,
		Description: h.iface.Description,
		ImageSize:   h.iface.ImageSize,
		Categories:  h.iface.Categories,
		Examples:    h.iface.Examples.Names(),
		MaxUpload:   h.opts.MaxUploadBytes,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.page.Execute(w, data); err != nil {
		h.log.Error("rendering page", slog.Any("error", err))
	}
}

// Ready is closed once Launch is listening.
func (h *Host) Ready() <-chan struct{} {
	return h.ready
}

// Addr is the bound listen address. Valid after Ready is closed.
func (h *Host) Addr() string {
	return h.addr
}

// Launch listens and serves until ctx is cancelled, then shuts down within
// the configured timeout. A host can only be launched once.
func (h *Host) Launch(ctx context.Context) error {
	if !h.launched.CompareAndSwap(false, true) {
		return ErrAlreadyLaunched
	}

	listener, err := net.Listen("tcp", h.opts.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.opts.Addr, err)
	}

	srv := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	h.addr = listener.Addr().String()
	close(h.ready)
	h.log.Info("demo host listening", slog.String("addr", h.addr))

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)

	case <-ctx.Done():
		h.log.Info("demo host shutting down", slog.Duration("timeout", h.opts.ShutdownTimeout))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
