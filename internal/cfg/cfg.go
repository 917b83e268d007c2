package cfg

import (
	"errors"
	"flag"
	"fmt"
	"time"
)

// Config adds triage-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	PreprocessorArtifact  string
	EmbedderEndpoint      string
	EmbedderTimeout       time.Duration
	PredictorEndpoint     string
	PredictorTimeout      time.Duration
	PolicyFile            string
	DatabaseURL           string
	AuditLogPath          string
	SlackWebhookURL       string
	APIToken              string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.PreprocessorArtifact, "preprocessor-artifact", "", "path to the frozen numeric-transform JSON artifact")
	fs.StringVar(&c.EmbedderEndpoint, "embedder-endpoint", "", "URL of the sentence-embedding server")
	fs.DurationVar(&c.EmbedderTimeout, "embedder-timeout", 5*time.Second, "request timeout for the embedding server")
	fs.StringVar(&c.PredictorEndpoint, "predictor-endpoint", "", "URL of the outcome model server")
	fs.DurationVar(&c.PredictorTimeout, "predictor-timeout", 5*time.Second, "request timeout for the model server")
	fs.StringVar(&c.PolicyFile, "policy-file", "", "path to the triage policy YAML (empty = built-in defaults)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.AuditLogPath, "audit-log", "", "path to the CSV audit log (empty = audit logging disabled)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for critical-arrival notifications")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on the triage API (empty = no auth)")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// The numeric transform is frozen at training time; without its artifact
	// no feature vector can be produced.
	if c.PreprocessorArtifact == "" {
		errs = append(errs, errors.New("PREPROCESSOR_ARTIFACT is required"))
	}

	// Both model oracles are required for probability-based routing
	if c.EmbedderEndpoint == "" {
		errs = append(errs, errors.New("EMBEDDER_ENDPOINT is required"))
	}
	if c.PredictorEndpoint == "" {
		errs = append(errs, errors.New("PREDICTOR_ENDPOINT is required"))
	}

	if c.EmbedderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid EMBEDDER_TIMEOUT %s (must be positive)", c.EmbedderTimeout))
	}
	if c.PredictorTimeout <= 0 {
		errs = append(errs, fmt.Errorf("invalid PREDICTOR_TIMEOUT %s (must be positive)", c.PredictorTimeout))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
