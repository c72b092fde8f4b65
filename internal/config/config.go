package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "bspub/internal/errors"
	"bspub/internal/validation"
	"bspub/internal/years"
)

// Config represents the complete application configuration
type Config struct {
	Logging     LoggingConfig               `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig                 `yaml:"paths" envconfig:"PATHS"`
	Publication PublicationConfig           `yaml:"publication" envconfig:"PUBLICATION"`
	Validation  ValidationConfig            `yaml:"validation" envconfig:"VALIDATION"`
	Feed        FeedConfig                  `yaml:"feed" envconfig:"FEED"`
	Telemetry   TelemetryConfig             `yaml:"telemetry" envconfig:"TELEMETRY"`
	Collections map[string]CollectionConfig `yaml:"collections" ignored:"true" validate:"dive"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// PathsConfig contains file system locations. Relative paths are resolved
// against BaseDir, which defaults to the executable directory.
type PathsConfig struct {
	BaseDir      string `yaml:"base_dir" envconfig:"BASE_DIR"`
	InputDir     string `yaml:"input_dir" envconfig:"INPUT_DIR" validate:"required"`
	TemplatesDir string `yaml:"templates_dir" envconfig:"TEMPLATES_DIR" validate:"required"`
	OutputDir    string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	LogsDir      string `yaml:"logs_dir" envconfig:"LOGS_DIR" validate:"required"`
	CatalogDir   string `yaml:"catalog_dir" envconfig:"CATALOG_DIR" validate:"required"`
	SDRFile      string `yaml:"sdr_file" envconfig:"SDR_FILE"`
	LAFile       string `yaml:"la_file" envconfig:"LA_FILE"`
	FootnoteFile string `yaml:"footnote_file" envconfig:"FOOTNOTE_FILE"`
}

// PublicationConfig holds the reporting year and the tokens written into
// published outputs.
type PublicationConfig struct {
	Year           string  `yaml:"year" envconfig:"YEAR" validate:"required,fyear"`
	NotApplicable  string  `yaml:"not_applicable" envconfig:"NOT_APPLICABLE"`
	CSVNotIncluded string  `yaml:"csv_not_included" envconfig:"CSV_NOT_INCLUDED"`
	LowNumerator   float64 `yaml:"low_numerator" envconfig:"LOW_NUMERATOR" validate:"gte=0"`
	LowFlag        string  `yaml:"low_flag" envconfig:"LOW_FLAG" validate:"required"`
}

// ValidationConfig holds the years compared by validation outputs and the
// breach thresholds of each measure family.
type ValidationConfig struct {
	ToYear       string           `yaml:"to_year" envconfig:"TO_YEAR" validate:"omitempty,fyear"`
	FromYear     string           `yaml:"from_year" envconfig:"FROM_YEAR" validate:"omitempty,fyear"`
	RollingYears int              `yaml:"rolling_years" envconfig:"ROLLING_YEARS" validate:"gte=1"`
	Thresholds   ThresholdsConfig `yaml:"thresholds" envconfig:"THRESHOLDS"`
}

// ThresholdsConfig holds breach limits per measure family. Coverage limits
// are percentage points; the others are percentage changes.
type ThresholdsConfig struct {
	Coverage         validation.Thresholds `yaml:"coverage" envconfig:"COVERAGE"`
	CancerRate       validation.Thresholds `yaml:"cancer_rate" envconfig:"CANCER_RATE"`
	EligibilityCount validation.Thresholds `yaml:"eligibility_count" envconfig:"ELIGIBILITY_COUNT"`
	ReferralCount    validation.Thresholds `yaml:"referral_count" envconfig:"REFERRAL_COUNT"`
}

// FeedConfig selects where screening records are read from.
type FeedConfig struct {
	Kind string `yaml:"kind" envconfig:"KIND" validate:"oneof=csv xlsx sql"`
	// Files maps a collection to its CSV or XLSX file.
	Files  map[string]string `yaml:"files" envconfig:"FILES"`
	Sheet  string            `yaml:"sheet" envconfig:"SHEET"`
	Driver string            `yaml:"driver" envconfig:"DRIVER" validate:"required_if=Kind sql"`
	DSN    string            `yaml:"dsn" envconfig:"DSN" validate:"required_if=Kind sql"`
	// Query takes the collection name as its only argument.
	Query string `yaml:"query" envconfig:"QUERY" validate:"required_if=Kind sql"`
}

// TelemetryConfig controls metrics and tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"ENABLED"`
	ServiceName string `yaml:"service_name" envconfig:"SERVICE_NAME"`
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
	TraceStdout bool   `yaml:"trace_stdout" envconfig:"TRACE_STDOUT"`
}

// Load builds the configuration from defaults, then the YAML file at path
// (or the first file found in the usual locations when path is empty),
// then BSPUB_* environment variables, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// loadFromFile overlays the YAML file onto c. A collection present in the
// file replaces the built-in lookups for that collection.
func (c *Config) loadFromFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return apperrors.NewNotFoundError(fmt.Sprintf("config file %s", filePath))
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return apperrors.NewParsingError("invalid config file", err).WithContext("file", filePath)
	}
	return nil
}

// fillDerived sets values that default to other settings.
func (c *Config) fillDerived() {
	if c.Validation.ToYear == "" {
		c.Validation.ToYear = c.Publication.Year
	}
	if c.Validation.FromYear == "" {
		if prev, err := years.Previous(c.Validation.ToYear); err == nil {
			c.Validation.FromYear = prev
		}
	}
}

// Validate checks struct constraints.
func (c *Config) Validate() error {
	v := validator.New()
	v.RegisterValidation("fyear", func(fl validator.FieldLevel) bool {
		_, err := years.Parse(fl.Field().String())
		return err == nil
	})
	if err := v.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return apperrors.NewConfigError("invalid configuration: "+strings.Join(fields, ", "), nil)
		}
		return apperrors.NewConfigError("invalid configuration", err)
	}

	if c.Feed.Kind == FeedSQL {
		drivers := []string{"pgx", "sqlite", "duckdb"}
		valid := false
		for _, d := range drivers {
			valid = valid || d == c.Feed.Driver
		}
		if !valid {
			return apperrors.NewInvalidValueError("feed driver", c.Feed.Driver, drivers)
		}
	} else {
		for _, name := range []string{KC62, KC63} {
			if _, ok := c.Feed.Files[name]; !ok {
				continue
			}
			if _, ok := c.Collections[name]; !ok {
				return apperrors.NewConfigError(fmt.Sprintf("feed file given for %s but the collection is not configured", name), nil)
			}
		}
	}
	return nil
}

// Collection returns the lookups for a collection.
func (c *Config) Collection(name string) (CollectionConfig, error) {
	cc, ok := c.Collections[name]
	if !ok {
		return CollectionConfig{}, apperrors.NewInvalidValueError("collection", name, c.collectionNames())
	}
	return cc, nil
}

func (c *Config) collectionNames() []string {
	names := make([]string, 0, len(c.Collections))
	for _, n := range []string{KC62, KC63} {
		if _, ok := c.Collections[n]; ok {
			names = append(names, n)
		}
	}
	return names
}

// ValidationEngineConfig converts the validation section for the engine.
func (c *Config) ValidationEngineConfig() validation.Config {
	t := c.Validation.Thresholds
	return validation.Config{
		ToYear:       c.Validation.ToYear,
		FromYear:     c.Validation.FromYear,
		RollingYears: c.Validation.RollingYears,
		Thresholds: map[validation.Family]validation.Thresholds{
			validation.Coverage:         t.Coverage,
			validation.CancerRate:       t.CancerRate,
			validation.EligibilityCount: t.EligibilityCount,
			validation.ReferralCount:    t.ReferralCount,
		},
	}
}

// NotApplicableFor returns the token that replaces nulls in a group.
func (c *Config) NotApplicableFor(groupToken string) string {
	if groupToken != "" {
		return groupToken
	}
	return c.Publication.NotApplicable
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"bspub.yaml",
		"configs/bspub.yaml",
		"../configs/bspub.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use defaults and env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "both",
			FilePath: "logs/bspub.log",
		},
		Paths: PathsConfig{
			InputDir:     DefaultInputDir,
			TemplatesDir: DefaultTemplatesDir,
			OutputDir:    DefaultOutputDir,
			LogsDir:      DefaultLogsDir,
			CatalogDir:   DefaultCatalogDir,
			SDRFile:      DefaultSDRFile,
			LAFile:       DefaultLAFile,
			FootnoteFile: DefaultFootnoteFile,
		},
		Publication: PublicationConfig{
			Year:           DefaultYear,
			NotApplicable:  NotApplicable,
			CSVNotIncluded: CSVNotIncluded,
			LowNumerator:   LowNumeratorBelow,
			LowFlag:        LowNumeratorFlag,
		},
		Validation: ValidationConfig{
			RollingYears: DefaultRollingYears,
			Thresholds: ThresholdsConfig{
				Coverage:         validation.Thresholds{YoY: 2, Avg: 2},
				CancerRate:       validation.Thresholds{YoY: 20, Avg: 20},
				EligibilityCount: validation.Thresholds{YoY: 5, Avg: 5},
				ReferralCount:    validation.Thresholds{YoY: 10, Avg: 10},
			},
		},
		Feed: FeedConfig{
			Kind: FeedCSV,
			Files: map[string]string{
				KC62: "inputs/kc62.csv",
				KC63: "inputs/kc63.csv",
			},
		},
		Telemetry: TelemetryConfig{
			ServiceName: AppName,
		},
		Collections: DefaultCollections(),
	}
}
