package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/certcheck/internal/common"
	"github.com/Veraticus/certcheck/internal/extract"
	"github.com/Veraticus/certcheck/internal/verify"
)

// Storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OCR engines.
const (
	EngineTesseract = "tesseract"
	EngineVision    = "vision"
)

// StorageConfig selects and locates the reference store.
type StorageConfig struct {
	Driver    string
	Path      string
	URL       string
	RedisAddr string
	CacheTTL  time.Duration
}

// OCRConfig selects the OCR engine.
type OCRConfig struct {
	Engine          string
	CredentialsFile string
	Languages       []string
	Preprocess      bool
}

// SetDefaults registers default values for every key this package reads.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("ocr.engine", EngineTesseract)
	v.SetDefault("ocr.preprocess", true)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("extraction.mode", extract.MergeReplace)
}

// LoadStorageConfig reads storage settings. It follows this precedence:
// 1. Viper configuration (config file or CERTCHECK_ env vars)
// 2. Conventional environment variables (DATABASE_URL, REDIS_ADDR)
// 3. Default values
func LoadStorageConfig(v *viper.Viper) (*StorageConfig, error) {
	cfg := &StorageConfig{
		Driver:    strings.ToLower(v.GetString("database.driver")),
		Path:      ExpandPath(v.GetString("database.path")),
		URL:       v.GetString("database.url"),
		RedisAddr: v.GetString("cache.redis_addr"),
		CacheTTL:  v.GetDuration("cache.ttl"),
	}

	if cfg.URL == "" {
		cfg.URL = os.Getenv("DATABASE_URL")
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverSQLite
	}

	switch cfg.Driver {
	case DriverSQLite:
		if cfg.Path == "" {
			cfg.Path = ExpandPath(DefaultDatabasePath())
		}
	case DriverPostgres:
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: database.url is required for the postgres driver", common.ErrMissingConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unknown database driver %q", common.ErrInvalidConfig, cfg.Driver)
	}
	if cfg.CacheTTL < 0 {
		return nil, fmt.Errorf("%w: cache.ttl must not be negative", common.ErrInvalidConfig)
	}

	return cfg, nil
}

// LoadOCRConfig reads OCR settings, falling back to
// GOOGLE_APPLICATION_CREDENTIALS for the Vision credentials file.
func LoadOCRConfig(v *viper.Viper) (*OCRConfig, error) {
	cfg := &OCRConfig{
		Engine:          strings.ToLower(v.GetString("ocr.engine")),
		CredentialsFile: ExpandPath(v.GetString("ocr.credentials_file")),
		Languages:       v.GetStringSlice("ocr.languages"),
		Preprocess:      v.GetBool("ocr.preprocess"),
	}
	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = ExpandPath(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if cfg.Engine == "" {
		cfg.Engine = EngineTesseract
	}

	switch cfg.Engine {
	case EngineTesseract, EngineVision:
	default:
		return nil, fmt.Errorf("%w: unknown ocr engine %q", common.ErrInvalidConfig, cfg.Engine)
	}
	return cfg, nil
}

// LoadVerifierConfig overlays the verification section onto the defaults and
// validates the result.
func LoadVerifierConfig(v *viper.Viper) (verify.Config, error) {
	cfg := verify.DefaultConfig()
	if v.IsSet("verification") {
		if err := v.UnmarshalKey("verification", &cfg); err != nil {
			return verify.Config{}, fmt.Errorf("%w: verification: %v", common.ErrInvalidConfig, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return verify.Config{}, err
	}
	return cfg, nil
}

// LoadExtractionRules returns the rule table to extract with. Rules come from
// extraction.rules_file (merged per the file's mode) or extraction.rules
// (merged per extraction.mode); with neither set the built-in table is used.
func LoadExtractionRules(v *viper.Viper) ([]extract.Rule, error) {
	defaults := extract.DefaultRules()

	if path := v.GetString("extraction.rules_file"); path != "" {
		rf, err := extract.LoadRuleFile(ExpandPath(path))
		if err != nil {
			return nil, err
		}
		return extract.MergeRules(rf.Rules, defaults, rf.Mode)
	}

	if !v.IsSet("extraction.rules") {
		return defaults, nil
	}
	var custom []extract.Rule
	if err := v.UnmarshalKey("extraction.rules", &custom); err != nil {
		return nil, fmt.Errorf("%w: extraction.rules: %v", common.ErrInvalidConfig, err)
	}
	return extract.MergeRules(custom, defaults, v.GetString("extraction.mode"))
}
