package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete library configuration: everything needed to open
// a database, run the discoverer and parser pipeline, and relay change
// notifications. Entry points (the filesystem roots to discover) are supplied
// at runtime through the facade, not here.
type Config struct {
	Database    DatabaseConfig    `yaml:"database" json:"database"`
	Parser      ParserConfig      `yaml:"parser" json:"parser"`
	Notifier    NotifierConfig    `yaml:"notifier" json:"notifier"`
	Thumbnail   ThumbnailConfig   `yaml:"thumbnail" json:"thumbnail"`
	Logging     LoggingConfig     `yaml:"logging" json:"logging"`
	Performance PerformanceConfig `yaml:"performance" json:"performance"`
}

// DatabaseConfig controls how the SQLite engine is opened.
type DatabaseConfig struct {
	Path            string        `yaml:"path" json:"path" env:"MEDIALIB_DB_PATH" default:"./medialib.db"`
	BusyTimeout     time.Duration `yaml:"busy_timeout" json:"busy_timeout" env:"MEDIALIB_DB_BUSY_TIMEOUT" default:"5s"`
	MaxRetries      int           `yaml:"max_retries" json:"max_retries" env:"MEDIALIB_DB_MAX_RETRIES" default:"3"`
	RetryBaseDelay  time.Duration `yaml:"retry_base_delay" json:"retry_base_delay" env:"MEDIALIB_DB_RETRY_BASE_DELAY" default:"50ms"`
	MaxOpenConns    int           `yaml:"max_open_conns" json:"max_open_conns" env:"MEDIALIB_DB_MAX_OPEN_CONNS" default:"1"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime" env:"MEDIALIB_DB_CONN_MAX_LIFETIME" default:"1h"`
}

// ParserConfig controls the parser pipeline's worker pools and retry policy.
type ParserConfig struct {
	DefaultWorkerCount   int           `yaml:"default_worker_count" json:"default_worker_count" env:"MEDIALIB_PARSER_WORKERS" default:"0"`
	MaxTemporaryRetries  int           `yaml:"max_temporary_retries" json:"max_temporary_retries" env:"MEDIALIB_PARSER_MAX_RETRIES" default:"5"`
	RetryBackoff         time.Duration `yaml:"retry_backoff" json:"retry_backoff" env:"MEDIALIB_PARSER_RETRY_BACKOFF" default:"2s"`
	ThumbnailServiceName string        `yaml:"thumbnail_service_name" json:"thumbnail_service_name" env:"" default:"thumbnail"`
}

// NotifierConfig controls the debounced batch-notification window.
type NotifierConfig struct {
	DebounceWindow time.Duration `yaml:"debounce_window" json:"debounce_window" env:"MEDIALIB_NOTIFIER_DEBOUNCE" default:"500ms"`
}

// ThumbnailConfig controls where and how generated thumbnails are written.
type ThumbnailConfig struct {
	OutputDir string `yaml:"output_dir" json:"output_dir" env:"MEDIALIB_THUMBNAIL_DIR" default:"./thumbnails"`
	MaxWidth  int    `yaml:"max_width" json:"max_width" env:"MEDIALIB_THUMBNAIL_MAX_WIDTH" default:"320"`
	MaxHeight int    `yaml:"max_height" json:"max_height" env:"MEDIALIB_THUMBNAIL_MAX_HEIGHT" default:"180"`
	Quality   int    `yaml:"quality" json:"quality" env:"MEDIALIB_THUMBNAIL_QUALITY" default:"80"`
}

// LoggingConfig controls the ambient logger's verbosity and encoding.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"MEDIALIB_LOG_LEVEL" default:"info"`
	Format string `yaml:"format" json:"format" env:"MEDIALIB_LOG_FORMAT" default:"text"`
}

// PerformanceConfig controls adaptive throttling of parser workers based on
// system load, sampled via gopsutil.
type PerformanceConfig struct {
	EnableAdaptiveThrottling bool    `yaml:"enable_adaptive_throttling" json:"enable_adaptive_throttling" env:"MEDIALIB_ADAPTIVE_THROTTLING" default:"true"`
	CPUThreshold             float64 `yaml:"cpu_threshold" json:"cpu_threshold" env:"MEDIALIB_CPU_THRESHOLD" default:"85.0"`
	SampleInterval           time.Duration `yaml:"sample_interval" json:"sample_interval" env:"MEDIALIB_PERF_SAMPLE_INTERVAL" default:"5s"`
}

// Manager owns a loaded Config and supports hot-reload watchers, mirroring
// the teacher's ConfigManager.
type Manager struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	watchers []Watcher
}

// Watcher is invoked after a successful reload with the old and new config.
type Watcher func(old, new *Config)

// NewManager creates a Manager seeded with DefaultConfig.
func NewManager() *Manager {
	return &Manager{config: DefaultConfig()}
}

// DefaultConfig returns a Config with every default value populated.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "./medialib.db",
			BusyTimeout:     5 * time.Second,
			MaxRetries:      3,
			RetryBaseDelay:  50 * time.Millisecond,
			MaxOpenConns:    1,
			ConnMaxLifetime: time.Hour,
		},
		Parser: ParserConfig{
			DefaultWorkerCount:   0,
			MaxTemporaryRetries:  5,
			RetryBackoff:         2 * time.Second,
			ThumbnailServiceName: "thumbnail",
		},
		Notifier: NotifierConfig{
			DebounceWindow: 500 * time.Millisecond,
		},
		Thumbnail: ThumbnailConfig{
			OutputDir: "./thumbnails",
			MaxWidth:  320,
			MaxHeight: 180,
			Quality:   80,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Performance: PerformanceConfig{
			EnableAdaptiveThrottling: true,
			CPUThreshold:             85.0,
			SampleInterval:           5 * time.Second,
		},
	}
}

// Load reads configuration from path (YAML or JSON, detected by extension)
// if it exists, then applies environment-variable overrides, then validates
// the result.
func (m *Manager) Load(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := *m.config
	m.path = path

	cfg := DefaultConfig()

	if path != "" && fileExists(path) {
		if err := loadFromFile(path, cfg); err != nil {
			return fmt.Errorf("load config file: %w", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem()); err != nil {
		return fmt.Errorf("load config env: %w", err)
	}

	if err := validate(cfg); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	applyDerived(cfg)

	m.config = cfg
	for _, w := range m.watchers {
		go w(&old, cfg)
	}
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := *m.config
	return &cp
}

// AddWatcher registers a callback fired after each successful Load.
func (m *Manager) AddWatcher(w Watcher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, w)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	case ".json":
		return json.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file extension: %s", filepath.Ext(path))
	}
}

func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		ft := t.Field(i)
		if !field.CanSet() {
			continue
		}
		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}
		envTag := ft.Tag.Get("env")
		if envTag == "" {
			continue
		}
		value := os.Getenv(envTag)
		if value == "" {
			continue
		}
		if err := setFieldValue(field, value); err != nil {
			return fmt.Errorf("field %s: %w", ft.Name, err)
		}
	}
	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
			return nil
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	default:
		return fmt.Errorf("unsupported field kind: %v", field.Kind())
	}
	return nil
}

func validate(cfg *Config) error {
	if cfg.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if cfg.Database.MaxRetries < 0 {
		return fmt.Errorf("database.max_retries must be >= 0")
	}
	if cfg.Notifier.DebounceWindow <= 0 {
		return fmt.Errorf("notifier.debounce_window must be positive")
	}
	if cfg.Performance.CPUThreshold <= 0 || cfg.Performance.CPUThreshold > 100 {
		return fmt.Errorf("performance.cpu_threshold must be in (0, 100]")
	}
	return nil
}

func applyDerived(cfg *Config) {
	if cfg.Parser.DefaultWorkerCount <= 0 {
		n := runtime.NumCPU()
		if n > 8 {
			n = 8
		}
		cfg.Parser.DefaultWorkerCount = n
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
