package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Gallery layouts.
const (
	LayoutDir  = "dir"  // one subdirectory per identity, many photos each
	LayoutFlat = "flat" // one photo per identity in a single directory
)

// Embedding backends.
const (
	BackendHTTP = "http"
	BackendDlib = "dlib"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

type Config struct {
	Gallery   GalleryConfig   `yaml:"gallery"`
	Matching  MatchingConfig  `yaml:"matching"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Database  DatabaseConfig  `yaml:"database"`
	Geo       GeoConfig       `yaml:"geo"`
	Capture   CaptureConfig   `yaml:"capture"`
	Image     ImageConfig     `yaml:"image"`
	Log       LogConfig       `yaml:"log"`
}

type GalleryConfig struct {
	Dir     string `yaml:"dir"`      // enrollment root, one subdirectory per identity
	FlatDir string `yaml:"flat_dir"` // flat reference photo store
	Layout  string `yaml:"layout"`   // "dir" or "flat"
}

// Root returns the directory the configured layout reads from.
func (g *GalleryConfig) Root() string {
	if g.Layout == LayoutFlat {
		return g.FlatDir
	}
	return g.Dir
}

type MatchingConfig struct {
	Tolerance float64 `yaml:"tolerance"` // maximum euclidean distance accepted as a match
}

type EmbeddingConfig struct {
	Backend  string `yaml:"backend"`   // "http" or "dlib"
	URL      string `yaml:"url"`       // defaults to http://localhost:8000
	ModelDir string `yaml:"model_dir"` // dlib model files
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // sqlite, mysql or postgres
	URL          string `yaml:"url"`    // file path for sqlite, DSN otherwise
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type GeoConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"` // 0 disables caching
}

type CaptureConfig struct {
	Device      int           `yaml:"device"`       // camera index (gocv builds only)
	FramesDir   string        `yaml:"frames_dir"`   // replay frames from a directory instead of a camera
	PreviewPath string        `yaml:"preview_path"` // annotated frame written here when no window is available
	SnapshotDir string        `yaml:"snapshot_dir"` // frames saved on every attendance mark (optional)
	Interval    time.Duration `yaml:"interval"`     // delay between replayed frames
}

type ImageConfig struct {
	MaxPixels int `yaml:"max_pixels"` // larger photos and uploads are rejected before decoding
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Gallery: GalleryConfig{
			Dir:     "data",
			FlatDir: "faces",
			Layout:  LayoutDir,
		},
		Matching: MatchingConfig{
			Tolerance: 0.6,
		},
		Embedding: EmbeddingConfig{
			Backend:  BackendHTTP,
			ModelDir: "models",
		},
		Database: DatabaseConfig{
			Driver:       DriverSQLite,
			URL:          "database/attendance.db",
			MaxOpenConns: 25,
			MaxIdleConns: 5,
		},
		Geo: GeoConfig{
			URL:      "http://ip-api.com/json/",
			Timeout:  10 * time.Second,
			CacheTTL: 5 * time.Minute,
		},
		Capture: CaptureConfig{
			PreviewPath: "preview.jpg",
		},
		Image: ImageConfig{
			MaxPixels: 40_000_000,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envIndex is envInt for values where zero is meaningful (device indexes).
func envIndex(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	return defaultVal
}

func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// Load builds the configuration from defaults, the optional YAML file named by
// GEOFACE_CONFIG, and environment variables, in that order of precedence.
func Load() (*Config, error) {
	cfg := Defaults()

	if path := os.Getenv("GEOFACE_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Gallery.Dir = envString("GEOFACE_GALLERY_DIR", c.Gallery.Dir)
	c.Gallery.FlatDir = envString("GEOFACE_FLAT_DIR", c.Gallery.FlatDir)
	c.Gallery.Layout = strings.ToLower(envString("GEOFACE_GALLERY_LAYOUT", c.Gallery.Layout))

	c.Matching.Tolerance = envFloat("GEOFACE_TOLERANCE", c.Matching.Tolerance)

	c.Embedding.Backend = strings.ToLower(envString("EMBEDDING_BACKEND", c.Embedding.Backend))
	c.Embedding.URL = envString("EMBEDDING_URL", c.Embedding.URL)
	c.Embedding.ModelDir = envString("EMBEDDING_MODEL_DIR", c.Embedding.ModelDir)

	c.Database.Driver = strings.ToLower(envString("DATABASE_DRIVER", c.Database.Driver))
	c.Database.URL = envString("DATABASE_URL", c.Database.URL)
	c.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", c.Database.MaxOpenConns)
	c.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", c.Database.MaxIdleConns)

	c.Geo.URL = envString("GEO_URL", c.Geo.URL)
	c.Geo.Timeout = envDuration("GEO_TIMEOUT", c.Geo.Timeout)
	c.Geo.CacheTTL = envDuration("GEO_CACHE_TTL", c.Geo.CacheTTL)

	c.Capture.Device = envIndex("CAPTURE_DEVICE", c.Capture.Device)
	c.Capture.FramesDir = envString("CAPTURE_FRAMES_DIR", c.Capture.FramesDir)
	c.Capture.PreviewPath = envString("CAPTURE_PREVIEW_PATH", c.Capture.PreviewPath)
	c.Capture.SnapshotDir = envString("CAPTURE_SNAPSHOT_DIR", c.Capture.SnapshotDir)
	c.Capture.Interval = envDuration("CAPTURE_INTERVAL", c.Capture.Interval)

	c.Image.MaxPixels = envInt("IMAGE_MAX_PIXELS", c.Image.MaxPixels)

	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = envString("LOG_FORMAT", c.Log.Format)
}

// Validate rejects settings the rest of the program cannot work with.
func (c *Config) Validate() error {
	var errs []error
	if c.Matching.Tolerance <= 0 {
		errs = append(errs, fmt.Errorf("tolerance must be positive, got %v", c.Matching.Tolerance))
	}
	switch c.Gallery.Layout {
	case LayoutDir, LayoutFlat:
	default:
		errs = append(errs, fmt.Errorf("unknown gallery layout %q", c.Gallery.Layout))
	}
	switch c.Embedding.Backend {
	case BackendHTTP, BackendDlib:
	default:
		errs = append(errs, fmt.Errorf("unknown embedding backend %q", c.Embedding.Backend))
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.Database.URL == "" {
		errs = append(errs, errors.New("database URL is required"))
	}
	if c.Image.MaxPixels <= 0 {
		errs = append(errs, fmt.Errorf("image pixel limit must be positive, got %d", c.Image.MaxPixels))
	}
	return errors.Join(errs...)
}
