package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"golang.org/x/xerrors"

	"github.com/Brownie44l1/bear-classifier/internal/classifier"
	"github.com/Brownie44l1/bear-classifier/internal/config"
	"github.com/Brownie44l1/bear-classifier/internal/demo"
	"github.com/Brownie44l1/bear-classifier/internal/examples"
	"github.com/Brownie44l1/bear-classifier/internal/handlers"
	"github.com/Brownie44l1/bear-classifier/internal/lgr"
	"github.com/Brownie44l1/bear-classifier/internal/model"
	"github.com/Brownie44l1/bear-classifier/internal/predlog"
)

// Categories must be listed in the order the exported model emits them.
var categories = []string{"black", "grizzly", "teddy"}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %+v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return xerrors.Errorf("configuration: %w", err)
	}
	log := lgr.New(cfg.LogLevel, os.Stderr)

	assets, err := config.ResolveAssets(cfg.AssetMode, cfg.AssetDir)
	if err != nil {
		return xerrors.Errorf("assets: %w", err)
	}

	modelPath := assets.Path(cfg.ModelFile)
	log.Info("loading model",
		slog.String("path", modelPath),
		slog.String("assetMode", cfg.AssetMode),
		slog.String("baseDir", assets.BaseDir))

	modelServer, err := model.NewServer(model.Options{
		ModelPath:         modelPath,
		MetadataPath:      assets.Path(cfg.MetadataFile),
		SharedLibraryPath: cfg.OnnxRuntimeLib,
		Categories:        categories,
		ImageSize:         cfg.ImageSize,
	})
	if err != nil {
		return xerrors.Errorf("failed to initialize model server: %w", err)
	}
	defer modelServer.Close()

	bearClassifier := classifier.New(modelServer, classifier.Options{
		ImageSize:     cfg.ImageSize,
		Method:        classifier.ResizeMethod(cfg.ResizeMethod),
		Normalization: classifier.NewNormalization(modelServer.Metadata.Mean, modelServer.Metadata.Std),
	}, log)

	exampleSet, missing := examples.Resolve(assets, examples.Default)
	for _, name := range missing {
		log.Warn("example image not found, skipping", slog.String("name", name))
	}

	predictions := predlog.New(cfg.PredictionLog)
	defer predictions.Close()

	handler := handlers.NewHandler(bearClassifier, exampleSet, predictions, int64(cfg.MaxUploadBytes), log)
	host, err := demo.NewHost(demo.Interface{
		Title:       "Bear classifier",
		Description: "Upload a bear photo to find out whether it is a black, grizzly or teddy bear.",
		ImageSize:   cfg.ImageSize,
		Categories:  modelServer.Categories(),
		Examples:    exampleSet,
	}, handler, demo.Options{
		Addr:            cfg.Addr(),
		ShutdownTimeout: cfg.ShutdownTimeout,
		MaxUploadBytes:  int64(cfg.MaxUploadBytes),
	}, log)
	if err != nil {
		return xerrors.Errorf("demo host: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		select {
		case <-host.Ready():
			printBanner(host.Addr(), modelServer.Categories(), exampleSet.Names())
		case <-ctx.Done():
		}
	}()

	if err := host.Launch(ctx); err != nil {
		return xerrors.Errorf("demo host: %w", err)
	}
	log.Info("demo host stopped")
	return nil
}

func printBanner(addr string, classes, exampleNames []string) {
	title := color.New(color.FgHiGreen, color.Bold)
	route := color.New(color.FgCyan)

	title.Printf("Bear classifier running on http://%s\n", addr)
	fmt.Printf("Classes: %v\n", classes)
	fmt.Printf("Examples: %v\n", exampleNames)
	fmt.Println("Endpoints:")
	route.Println("  GET  /                 - Demo page")
	route.Println("  GET  /health           - Health check")
	route.Println("  POST /predict          - Raw tensor prediction")
	route.Println("  POST /predict/image    - Predict from image upload")
	route.Println("  POST /predict/example  - Predict a bundled example")
	route.Println("  GET  /examples/{name}  - Example image")
	fmt.Printf("Upload test: curl -X POST -F \"image=@bear.jpg\" http://%s/predict/image\n\n", addr)
}
