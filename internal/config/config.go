// Package config loads gateway configuration from YAML with environment
// overrides.
//
// DESIGN: Config is plain data; Load applies, in order:
//   - hard-coded defaults (defaults.go)
//   - the YAML file, when present
//   - environment variables (PORT, AI_API_KEY, FRONTEND_URL, EMAIL_*, ...)
//
// Environment wins so that deployments can override a checked-in file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// EnvProduction is the Server.Env value that switches CORS to the single
// configured front-end origin.
const EnvProduction = "production"

// devAllowedOrigins is the CORS allow-list outside production.
var devAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
}

// Config is the root gateway configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	CORS      CORSConfig      `yaml:"cors"`
	Limits    LimitsConfig    `yaml:"limits"`
	Generator GeneratorConfig `yaml:"generator"`
	Email     EmailConfig     `yaml:"email"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	Env             string   `yaml:"env"`
	Debug           bool     `yaml:"debug"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// CORSConfig holds the cross-origin allow-list.
type CORSConfig struct {
	// FrontendOrigin is the single allowed origin in production.
	FrontendOrigin string `yaml:"frontend_origin"`
	// ExtraOrigins extends the allow-list in any environment.
	ExtraOrigins []string `yaml:"extra_origins"`
}

// LimitsConfig holds body and admission limits.
type LimitsConfig struct {
	BodyLimit    int64    `yaml:"body_limit"`
	SummarizeRPM int      `yaml:"summarize_rpm"`
	EmailRPM     int      `yaml:"email_rpm"`
	Window       Duration `yaml:"window"`
}

// GeneratorConfig holds upstream text-generation settings.
type GeneratorConfig struct {
	APIKey          string   `yaml:"api_key"`
	BaseURL         string   `yaml:"base_url"`
	Model           string   `yaml:"model"`
	Timeout         Duration `yaml:"timeout"`
	ProbeTimeout    Duration `yaml:"probe_timeout"`
	MaxRetries      int      `yaml:"max_retries"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	Temperature     float64  `yaml:"temperature"`
}

// EmailConfig holds SMTP dispatch settings. The gateway never validates
// these beyond presence; the health endpoint reports whether they are set.
type EmailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// Default returns a Config populated with defaults.go values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     Duration(DefaultServerReadTimeout),
			WriteTimeout:    Duration(DefaultServerWriteTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
		},
		Limits: LimitsConfig{
			BodyLimit:    MaxRequestBodySize,
			SummarizeRPM: DefaultSummarizeRPM,
			EmailRPM:     DefaultEmailRPM,
			Window:       Duration(DefaultRateLimitWindow),
		},
		Generator: GeneratorConfig{
			BaseURL:         DefaultGeneratorBaseURL,
			Model:           DefaultGeneratorModel,
			Timeout:         Duration(DefaultGenerateTimeout),
			ProbeTimeout:    Duration(DefaultProbeTimeout),
			MaxRetries:      DefaultMaxRetries,
			MaxOutputTokens: DefaultMaxOutputTokens,
			Temperature:     DefaultTemperature,
		},
	}
}

// Load reads the YAML file at path (optional) and applies environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("reading config %q: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %q: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromBytes parses YAML config data and applies environment overrides.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("NODE_ENV"); v != "" && c.Server.Env == "" {
		c.Server.Env = v
	}
	if v := os.Getenv("GATEWAY_ENV"); v != "" {
		c.Server.Env = v
	}
	if v := os.Getenv("AI_API_KEY"); v != "" {
		c.Generator.APIKey = v
	}
	if v := os.Getenv("AI_BASE_URL"); v != "" {
		c.Generator.BaseURL = v
	}
	if v := os.Getenv("FRONTEND_URL"); v != "" {
		c.CORS.FrontendOrigin = v
	}
	if v := os.Getenv("EMAIL_HOST"); v != "" {
		c.Email.Host = v
	}
	if v := os.Getenv("EMAIL_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Email.Port = p
		}
	}
	if v := os.Getenv("EMAIL_USER"); v != "" {
		c.Email.Username = v
	}
	if v := os.Getenv("EMAIL_PASS"); v != "" {
		c.Email.Password = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		c.Email.From = v
	}
}

// Validate rejects configurations the gateway cannot run with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	if c.Limits.SummarizeRPM <= 0 || c.Limits.EmailRPM <= 0 {
		return fmt.Errorf("rate limits must be positive")
	}
	if c.Limits.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive")
	}
	if c.Limits.BodyLimit <= 0 {
		return fmt.Errorf("body limit must be positive")
	}
	if c.Server.Env == EnvProduction && c.CORS.FrontendOrigin == "" {
		return fmt.Errorf("production requires a configured frontend origin")
	}
	return nil
}

// AllowedOrigins returns the effective CORS allow-list for this environment.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	if c.Server.Env == EnvProduction {
		if c.CORS.FrontendOrigin != "" {
			origins = append(origins, c.CORS.FrontendOrigin)
		}
	} else {
		origins = append(origins, devAllowedOrigins...)
		if c.CORS.FrontendOrigin != "" {
			origins = append(origins, c.CORS.FrontendOrigin)
		}
	}
	return append(origins, c.CORS.ExtraOrigins...)
}

// EmailConfigured reports whether SMTP credentials are present. Mirrors the
// health endpoint's "configured"/"not configured" check; no connection is
// attempted.
func (c *Config) EmailConfigured() bool {
	return c.Email.Username != "" && c.Email.Password != ""
}
