package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
)

// Backend names accepted by ModelConfig.Backend.
const (
	BackendOpenCV      = "opencv"
	BackendONNXRuntime = "onnxruntime"
)

type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

type ModelConfig struct {
	Path              string  `koanf:"path"`
	LabelsPath        string  `koanf:"labels"`
	Backend           string  `koanf:"backend"`
	Workers           int     `koanf:"workers"`   // Number of model instances loaded at startup
	InputSize         int     `koanf:"inputsize"` // Square network input in pixels
	ConfThreshold     float64 `koanf:"confthreshold"`
	IoUThreshold      float64 `koanf:"iouthreshold"`
	MaxDetections     int     `koanf:"maxdetections"`
	SharedLibraryPath string  `koanf:"sharedlibrary"` // onnxruntime only
}

type AnnotateConfig struct {
	FontPath string  `koanf:"fontpath"`
	FontSize float64 `koanf:"fontsize"`
}

type LogConfig struct {
	Directory string `koanf:"dir"`
	Level     string `koanf:"level"`
}

type UploadConfig struct {
	MaxBytes  int64 `koanf:"maxbytes"`
	MaxPixels int64 `koanf:"maxpixels"` // Decoded width*height limit
}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Model    ModelConfig    `koanf:"model"`
	Annotate AnnotateConfig `koanf:"annotate"`
	Log      LogConfig      `koanf:"log"`
	Upload   UploadConfig   `koanf:"upload"`
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

var defaults = map[string]any{
	"server.host":         "0.0.0.0",
	"server.port":         5001,
	"model.path":          filepath.Join(".", "models", "best.onnx"),
	"model.labels":        filepath.Join(".", "models", "metadata.yaml"),
	"model.backend":       BackendOpenCV,
	"model.workers":       1,
	"model.inputsize":     640,
	"model.confthreshold": 0.25,
	"model.iouthreshold":  0.7,
	"model.maxdetections": 300,
	"annotate.fontpath":   "arial.ttf",
	"annotate.fontsize":   20.0,
	"log.dir":             filepath.Join(".", "logs"),
	"log.level":           "info",
	"upload.maxbytes":     int64(32 << 20),
	"upload.maxpixels":    int64(178956970),
}

// envKeys maps environment variables to configuration keys. Variables not
// listed here are ignored.
var envKeys = map[string]string{
	"HOST":                 "server.host",
	"PORT":                 "server.port",
	"MODEL_PATH":           "model.path",
	"MODEL_LABELS":         "model.labels",
	"MODEL_BACKEND":        "model.backend",
	"MODEL_WORKERS":        "model.workers",
	"MODEL_INPUT_SIZE":     "model.inputsize",
	"MODEL_CONF_THRESHOLD": "model.confthreshold",
	"MODEL_IOU_THRESHOLD":  "model.iouthreshold",
	"MODEL_MAX_DETECTIONS": "model.maxdetections",
	"ONNXRUNTIME_LIB":      "model.sharedlibrary",
	"FONT_PATH":            "annotate.fontpath",
	"FONT_SIZE":            "annotate.fontsize",
	"LOG_DIR":              "log.dir",
	"LOG_LEVEL":            "log.level",
	"UPLOAD_MAX_BYTES":     "upload.maxbytes",
	"UPLOAD_MAX_PIXELS":    "upload.maxpixels",
}

// Load reads .env (if present), then layers defaults, an optional YAML file
// named by CONFIG_FILE (default config.yaml) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configFile := getEnv("CONFIG_FILE", "config.yaml")
	if _, err := os.Stat(configFile); err == nil {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return envKeys[strings.ToUpper(s)]
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	switch c.Model.Backend {
	case BackendOpenCV, BackendONNXRuntime:
	default:
		return fmt.Errorf("unknown model backend %q", c.Model.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Model.Workers < 1 {
		return fmt.Errorf("model workers must be at least 1, got %d", c.Model.Workers)
	}
	if c.Model.InputSize < 32 || c.Model.InputSize%32 != 0 {
		return fmt.Errorf("model input size must be a positive multiple of 32, got %d", c.Model.InputSize)
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("upload max bytes must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.MaxPixels <= 0 {
		return fmt.Errorf("upload max pixels must be positive, got %d", c.Upload.MaxPixels)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
