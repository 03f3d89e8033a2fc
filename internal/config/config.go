package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config holds all worktally configuration.
type Config struct {
	LogLevel   string           `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	Input      InputConfig      `yaml:"input"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Report     ReportConfig     `yaml:"report"`
	Output     OutputConfig     `yaml:"output"`
	Server     ServerConfig     `yaml:"server"`
	Schedule   string           `yaml:"schedule"` // 5-field cron; empty runs once
}

// InputConfig describes where raw records come from.
type InputConfig struct {
	Provider string        `yaml:"provider" validate:"oneof=csv http"`
	Path     string        `yaml:"path"`  // file path ("-" for stdin), or URL for the http provider
	Token    string        `yaml:"token"` // Bearer token for the http provider
	Encoding string        `yaml:"encoding" validate:"omitempty,oneof=utf-8 utf8 utf_8 shift_jis shift-jis sjis cp932"`
	Layout   string        `yaml:"layout" validate:"required"`
	Columns  ColumnsConfig `yaml:"columns"`
}

// ColumnsConfig overrides CSV header names. Empty names keep the defaults.
type ColumnsConfig struct {
	Subject   string `yaml:"subject"`
	StartDate string `yaml:"start_date"`
	StartTime string `yaml:"start_time"`
	EndDate   string `yaml:"end_date"`
	EndTime   string `yaml:"end_time"`
}

// ClassifierConfig selects the primary classifier.
type ClassifierConfig struct {
	Provider        string        `yaml:"provider" validate:"oneof=none onnx anthropic"`
	ModelDir        string        `yaml:"model_dir" validate:"required_if=Provider onnx"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key" validate:"required_if=Provider anthropic"`
	AnthropicModel  string        `yaml:"anthropic_model"`
	Timeout         time.Duration `yaml:"timeout" validate:"gte=0"` // 0 disables the per-call limit
}

// ReportConfig controls which tables are built.
type ReportConfig struct {
	Granularity string `yaml:"granularity" validate:"oneof=month date both"`
	Shares      bool   `yaml:"shares"`
}

// OutputConfig holds output destination settings. Every non-empty sink is used.
type OutputConfig struct {
	Format       string `yaml:"format" validate:"oneof=table json"`
	Pretty       bool   `yaml:"pretty"`
	FilePath     string `yaml:"file_path"`
	WebhookURL   string `yaml:"webhook_url" validate:"omitempty,url"`
	SQLitePath   string `yaml:"sqlite_path"`
	SlackToken   string `yaml:"slack_token" validate:"required_with=SlackChannel"`
	SlackChannel string `yaml:"slack_channel" validate:"required_with=SlackToken"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`
}

// Default returns the configuration used when neither a file nor env vars set a value.
func Default() Config {
	return Config{
		LogLevel: "info",
		Input: InputConfig{
			Provider: "csv",
			Encoding: "utf-8",
			Layout:   "2006-01-02 15:04",
		},
		Classifier: ClassifierConfig{
			Provider: "onnx",
			ModelDir: "models",
			Timeout:  15 * time.Second,
		},
		Report: ReportConfig{Granularity: "both"},
		Output: OutputConfig{Format: "table"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads the optional YAML file at path, then applies WORKTALLY_* environment
// overrides on top. A missing file is not an error; an unparsable one is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("config: %w", err)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LogLevel = getenv("WORKTALLY_LOG_LEVEL", cfg.LogLevel)

	cfg.Input.Provider = getenv("WORKTALLY_INPUT_PROVIDER", cfg.Input.Provider)
	cfg.Input.Path = getenv("WORKTALLY_INPUT", cfg.Input.Path)
	cfg.Input.Token = getenv("WORKTALLY_INPUT_TOKEN", cfg.Input.Token)
	cfg.Input.Encoding = getenv("WORKTALLY_INPUT_ENCODING", cfg.Input.Encoding)
	cfg.Input.Layout = getenv("WORKTALLY_LAYOUT", cfg.Input.Layout)
	cfg.Input.Columns.Subject = getenv("WORKTALLY_COLUMN_SUBJECT", cfg.Input.Columns.Subject)
	cfg.Input.Columns.StartDate = getenv("WORKTALLY_COLUMN_START_DATE", cfg.Input.Columns.StartDate)
	cfg.Input.Columns.StartTime = getenv("WORKTALLY_COLUMN_START_TIME", cfg.Input.Columns.StartTime)
	cfg.Input.Columns.EndDate = getenv("WORKTALLY_COLUMN_END_DATE", cfg.Input.Columns.EndDate)
	cfg.Input.Columns.EndTime = getenv("WORKTALLY_COLUMN_END_TIME", cfg.Input.Columns.EndTime)

	cfg.Classifier.Provider = getenv("WORKTALLY_CLASSIFIER", cfg.Classifier.Provider)
	cfg.Classifier.ModelDir = getenv("WORKTALLY_MODEL_DIR", cfg.Classifier.ModelDir)
	cfg.Classifier.AnthropicAPIKey = getenv("ANTHROPIC_API_KEY", cfg.Classifier.AnthropicAPIKey)
	cfg.Classifier.AnthropicModel = getenv("WORKTALLY_ANTHROPIC_MODEL", cfg.Classifier.AnthropicModel)
	cfg.Classifier.Timeout = getenvDuration("WORKTALLY_CLASSIFIER_TIMEOUT", cfg.Classifier.Timeout)

	cfg.Report.Granularity = getenv("WORKTALLY_GRANULARITY", cfg.Report.Granularity)
	cfg.Report.Shares = getenvBool("WORKTALLY_SHARES", cfg.Report.Shares)

	cfg.Output.Format = getenv("WORKTALLY_OUTPUT", cfg.Output.Format)
	cfg.Output.Pretty = getenvBool("WORKTALLY_OUTPUT_PRETTY", cfg.Output.Pretty)
	cfg.Output.FilePath = getenv("WORKTALLY_OUTPUT_FILE", cfg.Output.FilePath)
	cfg.Output.WebhookURL = getenv("WORKTALLY_WEBHOOK_URL", cfg.Output.WebhookURL)
	cfg.Output.SQLitePath = getenv("WORKTALLY_SQLITE_PATH", cfg.Output.SQLitePath)
	cfg.Output.SlackToken = getenv("SLACK_BOT_TOKEN", cfg.Output.SlackToken)
	cfg.Output.SlackChannel = getenv("WORKTALLY_SLACK_CHANNEL", cfg.Output.SlackChannel)

	cfg.Server.Addr = getenv("WORKTALLY_ADDR", cfg.Server.Addr)
	cfg.Schedule = getenv("WORKTALLY_SCHEDULE", cfg.Schedule)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration for errors. All problems are reported
// together, each prefixed with its YAML key path.
func (c Config) Validate() error {
	var errs []error

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("config: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: failed %q check", fieldPath(fe.Namespace()), describe(fe)))
		}
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("schedule: %w", err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("config: %w", errors.Join(errs...))
}

// fieldPath drops the root struct name: "Config.input.layout" -> "input.layout".
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	if fe.Param() != "" {
		return fe.Tag() + "=" + fe.Param()
	}
	return fe.Tag()
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
