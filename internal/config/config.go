package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Analysis   AnalysisConfig   `yaml:"analysis" mapstructure:"analysis"`
	Spectral   SpectralConfig   `yaml:"spectral" mapstructure:"spectral"`
	Sentinel   SentinelConfig   `yaml:"sentinel" mapstructure:"sentinel"`
	Resilience ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
	Regions    RegionsConfig    `yaml:"regions" mapstructure:"regions"`
	Progress   ProgressConfig   `yaml:"progress" mapstructure:"progress"`
	Geocode    GeocodeConfig    `yaml:"geocode" mapstructure:"geocode"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	ShutdownTimeoutS int      `yaml:"shutdown_timeout_secs" mapstructure:"shutdown_timeout_secs"`
}

// AnalysisConfig configures grid construction and year selection.
type AnalysisConfig struct {
	CellBudget            int     `yaml:"cell_budget" mapstructure:"cell_budget"`
	MinCellDeg            float64 `yaml:"min_cell_deg" mapstructure:"min_cell_deg"`
	MaxCellDeg            float64 `yaml:"max_cell_deg" mapstructure:"max_cell_deg"`
	GrowthFactor          float64 `yaml:"growth_factor" mapstructure:"growth_factor"`
	HistoricalStride      int     `yaml:"historical_stride" mapstructure:"historical_stride"`
	HistoricalStartOffset int     `yaml:"historical_start_offset" mapstructure:"historical_start_offset"`
	HistoricalEndOffset   int     `yaml:"historical_end_offset" mapstructure:"historical_end_offset"`
	YieldEvery            int     `yaml:"yield_every" mapstructure:"yield_every"`
	MaxConcurrent         int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// SpectralConfig selects the sample source and failure policy.
type SpectralConfig struct {
	Strategy         string  `yaml:"strategy" mapstructure:"strategy"`
	Strictness       string  `yaml:"strictness" mapstructure:"strictness"`
	EstimateFallback bool    `yaml:"estimate_fallback" mapstructure:"estimate_fallback"`
	Seed             uint64  `yaml:"seed" mapstructure:"seed"`
	SampleSize       int     `yaml:"sample_size" mapstructure:"sample_size"`
	UrbanReduction   float64 `yaml:"urban_reduction" mapstructure:"urban_reduction"`
}

// SentinelConfig holds Copernicus Data Space credentials and request limits.
type SentinelConfig struct {
	ClientID          string  `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret      string  `yaml:"client_secret" mapstructure:"client_secret"`
	TokenURL          string  `yaml:"token_url" mapstructure:"token_url"`
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	RefreshFraction   float64 `yaml:"refresh_fraction" mapstructure:"refresh_fraction"`
	MaxCloudCoverage  int     `yaml:"max_cloud_coverage" mapstructure:"max_cloud_coverage"`
	FirstYear         int     `yaml:"first_year" mapstructure:"first_year"`
}

// ResilienceConfig configures retries and the circuit breaker for imagery
// requests.
type ResilienceConfig struct {
	MaxAttempts      int `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeoutSecs int `yaml:"reset_timeout_secs" mapstructure:"reset_timeout_secs"`
}

// RegionsConfig points at an optional rule override file.
type RegionsConfig struct {
	RulesFile string `yaml:"rules_file" mapstructure:"rules_file"`
}

// ProgressConfig configures the progress channel.
type ProgressConfig struct {
	BufferSize            int `yaml:"buffer_size" mapstructure:"buffer_size"`
	TerminalRetentionSecs int `yaml:"terminal_retention_secs" mapstructure:"terminal_retention_secs"`
}

// GeocodeConfig configures the city boundary resolver.
type GeocodeConfig struct {
	BaseURL           string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent         string  `yaml:"user_agent" mapstructure:"user_agent"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("VERDANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_secs", 15)
	v.SetDefault("analysis.cell_budget", 100)
	v.SetDefault("analysis.min_cell_deg", 0.0045)
	v.SetDefault("analysis.max_cell_deg", 0.1)
	v.SetDefault("analysis.growth_factor", 1.5)
	v.SetDefault("analysis.historical_stride", 2)
	v.SetDefault("analysis.historical_start_offset", 6)
	v.SetDefault("analysis.historical_end_offset", 1)
	v.SetDefault("analysis.yield_every", 10)
	v.SetDefault("analysis.max_concurrent", 4)
	v.SetDefault("spectral.strategy", "estimate")
	v.SetDefault("spectral.strictness", "fail-closed")
	v.SetDefault("spectral.estimate_fallback", false)
	v.SetDefault("spectral.seed", 0)
	v.SetDefault("spectral.sample_size", 15)
	v.SetDefault("spectral.urban_reduction", 0.3)
	v.SetDefault("sentinel.client_id", "")
	v.SetDefault("sentinel.client_secret", "")
	v.SetDefault("sentinel.token_url", "https://identity.dataspace.copernicus.eu/auth/realms/CDSE/protocol/openid-connect/token")
	v.SetDefault("sentinel.base_url", "https://sh.dataspace.copernicus.eu")
	v.SetDefault("sentinel.requests_per_second", 5)
	v.SetDefault("sentinel.refresh_fraction", 0.9)
	v.SetDefault("sentinel.max_cloud_coverage", 30)
	v.SetDefault("sentinel.first_year", 2017)
	v.SetDefault("resilience.max_attempts", 3)
	v.SetDefault("resilience.initial_backoff_ms", 500)
	v.SetDefault("resilience.max_backoff_ms", 30000)
	v.SetDefault("resilience.failure_threshold", 5)
	v.SetDefault("resilience.reset_timeout_secs", 30)
	v.SetDefault("regions.rules_file", "")
	v.SetDefault("progress.buffer_size", 64)
	v.SetDefault("progress.terminal_retention_secs", 300)
	v.SetDefault("geocode.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocode.user_agent", "verdant/1.0")
	v.SetDefault("geocode.requests_per_second", 1)

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

// Validate checks the settings a command needs. mode is the command name:
// "serve" additionally requires a valid port.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch c.Spectral.Strategy {
	case "estimate":
	case "sentinel":
		if c.Sentinel.ClientID == "" {
			errs = append(errs, "sentinel.client_id is required for strategy sentinel")
		}
		if c.Sentinel.ClientSecret == "" {
			errs = append(errs, "sentinel.client_secret is required for strategy sentinel")
		}
	default:
		errs = append(errs, fmt.Sprintf("spectral.strategy %q must be estimate or sentinel", c.Spectral.Strategy))
	}

	switch c.Spectral.Strictness {
	case "fail-closed", "fail-open":
	default:
		errs = append(errs, fmt.Sprintf("spectral.strictness %q must be fail-closed or fail-open", c.Spectral.Strictness))
	}

	if c.Analysis.CellBudget <= 0 {
		errs = append(errs, "analysis.cell_budget must be positive")
	}
	if c.Analysis.MinCellDeg <= 0 || c.Analysis.MaxCellDeg < c.Analysis.MinCellDeg {
		errs = append(errs, "analysis.min_cell_deg must be positive and not above analysis.max_cell_deg")
	}
	if c.Analysis.GrowthFactor <= 1 {
		errs = append(errs, "analysis.growth_factor must be greater than 1")
	}
	if f := c.Sentinel.RefreshFraction; f <= 0 || f > 1 {
		errs = append(errs, "sentinel.refresh_fraction must be in (0, 1]")
	}

	if mode == "serve" && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
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
