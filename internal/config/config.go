package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Scrub      ScrubConfig      `yaml:"scrub" mapstructure:"scrub"`
	Zone       ZoneConfig       `yaml:"zone" mapstructure:"zone"`
	Creeps     CreepsConfig     `yaml:"creeps" mapstructure:"creeps"`
	Encryption EncryptionConfig `yaml:"encryption" mapstructure:"encryption"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Report     ReportConfig     `yaml:"report" mapstructure:"report"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error dpanic panic fatal"`
	Format string `yaml:"format" mapstructure:"format" validate:"oneof=json console"`
}

// ScrubConfig configures scrubbed output.
type ScrubConfig struct {
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir" validate:"required"`
	// Filter is the path of a JSON or YAML blocklist file.
	Filter string `yaml:"filter" mapstructure:"filter"`
}

// ZoneConfig is the protected coordinate. Lat and Lon are nil until set in
// config.yaml, the environment, or on the command line.
type ZoneConfig struct {
	Lat   *float64 `yaml:"lat" mapstructure:"lat" validate:"omitnil,gte=-90,lte=90"`
	Lon   *float64 `yaml:"lon" mapstructure:"lon" validate:"omitnil,gte=-180,lte=180"`
	Delta float64  `yaml:"delta" mapstructure:"delta" validate:"gt=0"`
}

// Set reports whether both coordinates are configured.
func (z ZoneConfig) Set() bool { return z.Lat != nil && z.Lon != nil }

// CreepsConfig configures the multi-location detector.
type CreepsConfig struct {
	Tolerance    float64 `yaml:"tolerance" mapstructure:"tolerance" validate:"gt=0"`
	MinLocations int     `yaml:"min_locations" mapstructure:"min_locations" validate:"min=2"`
	// Top limits reported candidates; -1 reports all.
	Top int `yaml:"top" mapstructure:"top" validate:"gte=-1"`
}

// EncryptionConfig configures the encryption analyzer.
type EncryptionConfig struct {
	Unique bool `yaml:"unique" mapstructure:"unique"`
}

// PipelineConfig configures file processing.
type PipelineConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency" validate:"min=1,max=64"`
}

// ReportConfig configures report output.
type ReportConfig struct {
	Format    string `yaml:"format" mapstructure:"format" validate:"oneof=text json yaml xlsx"`
	Out       string `yaml:"out" mapstructure:"out"`
	Shapefile string `yaml:"shapefile" mapstructure:"shapefile" validate:"omitempty,endswith=.shp"`
}

// StoreConfig configures run persistence. An empty driver disables it.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver" validate:"omitempty,oneof=sqlite postgres"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url" validate:"required_if=Driver postgres"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns" validate:"gte=0"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns" validate:"gte=0"`
	// RetryAttempts bounds calls to the store on transient errors; 1 disables
	// retries.
	RetryAttempts int `yaml:"retry_attempts" mapstructure:"retry_attempts" validate:"min=1,max=10"`
}

// Enabled reports whether runs are persisted.
func (s StoreConfig) Enabled() bool { return s.Driver != "" }

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("WARDRIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("scrub.output_dir", "./Scrub")
	v.SetDefault("scrub.filter", "")
	v.SetDefault("zone.delta", 0.001)
	v.SetDefault("creeps.tolerance", 0.0005)
	v.SetDefault("creeps.min_locations", 2)
	v.SetDefault("creeps.top", 10)
	v.SetDefault("encryption.unique", false)
	v.SetDefault("pipeline.concurrency", 4)
	v.SetDefault("report.format", "text")
	v.SetDefault("report.out", "")
	v.SetDefault("report.shapefile", "")
	v.SetDefault("store.driver", "")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.max_conns", 0)
	v.SetDefault("store.min_conns", 0)
	v.SetDefault("store.retry_attempts", 3)

	// Zone coordinates have no default; bind them so env vars still apply.
	_ = v.BindEnv("zone.lat")
	_ = v.BindEnv("zone.lon")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks field ranges and enumerations. Flag overrides should be
// applied before calling it.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return eris.Wrap(err, "config: validate")
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return eris.Errorf("config: invalid configuration: %s", strings.Join(msgs, "; "))
}

// describe renders a field error as "zone.delta must be gt 0".
func describe(fe validator.FieldError) string {
	// Namespace is "Config.zone.delta"; drop the root type.
	_, field, _ := strings.Cut(fe.Namespace(), ".")
	if fe.Tag() == "required_if" {
		other, value, _ := strings.Cut(fe.Param(), " ")
		return fmt.Sprintf("%s is required when %s is %s", field, strings.ToLower(other), value)
	}
	if fe.Param() == "" {
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
	return fmt.Sprintf("%s must be %s %s (got %v)", field, fe.Tag(), fe.Param(), fe.Value())
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
