package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config is read from the environment. Every field has a default, so the
// service starts with no configuration at all.
type Config struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT,default=7860" validate:"min=0,max=65535"`
	AssetMode       string        `env:"ASSET_MODE,default=executable" validate:"oneof=executable workdir"`
	AssetDir        string        `env:"ASSET_DIR"`
	ModelFile       string        `env:"MODEL_FILE,default=class_bears.onnx" validate:"required"`
	MetadataFile    string        `env:"METADATA_FILE,default=class_bears.json" validate:"required"`
	OnnxRuntimeLib  string        `env:"ONNXRUNTIME_LIB"`
	ImageSize       int           `env:"IMAGE_SIZE,default=192" validate:"min=1,max=4096"`
	ResizeMethod    string        `env:"RESIZE_METHOD,default=crop" validate:"oneof=crop squish"`
	MaxUploadBytes  int           `env:"MAX_UPLOAD_BYTES,default=10485760" validate:"min=1"`
	LogLevel        string        `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	PredictionLog   string        `env:"PREDICTION_LOG"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s" validate:"min=0"`
}

// Addr is the listen address of the demo host.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load reads an optional .env file from the working directory, then the
// process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	es, err := env.EnvironToEnvSet(os.Environ())
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return Parse(es)
}

// Parse builds and validates a Config from an explicit variable set.
func Parse(es env.EnvSet) (*Config, error) {
	var cfg Config
	if err := env.Unmarshal(es, &cfg); err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
