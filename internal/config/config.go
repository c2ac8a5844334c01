package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Default endpoints used when no override is configured.
const (
	DefaultAPIBaseURL = "https://api.zoom.us/v2"
	DefaultAuthURL    = "https://broker.zoomfetch.dev"
)

// Config holds resolved configuration for zoomfetch commands.
//
// Sources, in priority order: explicit config file, environment variables,
// a .env file in the working directory, built-in defaults.
type Config struct {
	// Server-to-Server OAuth credentials. Optional; when set, commands can
	// operate with account scope without an interactive login.
	ZoomAccountID    string `mapstructure:"zoom_account_id"`
	ZoomClientID     string `mapstructure:"zoom_client_id"`
	ZoomClientSecret string `mapstructure:"zoom_client_secret"`

	// DefaultUser is the subject used for user-scope queries with
	// Server-to-Server credentials when no --user flag is given.
	DefaultUser string `mapstructure:"zoom_default_user"`

	APIBaseURL string `mapstructure:"zoom_api_base_url"`
	AuthURL    string `mapstructure:"auth_url"`
	OutputDir  string `mapstructure:"output_dir"`
	LogLevel   string `mapstructure:"log_level"`
}

// Load reads configuration from the given config file (YAML or JSON; may be
// empty), the environment, and an optional .env file.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("zoom_api_base_url", DefaultAPIBaseURL)
	v.SetDefault("auth_url", DefaultAuthURL)
	v.SetDefault("output_dir", ".")
	v.SetDefault("log_level", "INFO")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		// Only consult .env when no explicit config file was given,
		// mirroring the priority order documented above.
		_ = godotenv.Load()
	}

	v.AutomaticEnv()
	bindings := map[string]string{
		"zoom_account_id":    "ZOOM_ACCOUNT_ID",
		"zoom_client_id":     "ZOOM_CLIENT_ID",
		"zoom_client_secret": "ZOOM_CLIENT_SECRET",
		"zoom_default_user":  "ZOOM_DEFAULT_USER",
		"zoom_api_base_url":  "ZOOM_API_BASE_URL",
		"auth_url":           "ZOOMFETCH_AUTH_URL",
		"output_dir":         "OUTPUT_DIR",
		"log_level":          "LOG_LEVEL",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.AuthURL = strings.TrimRight(cfg.AuthURL, "/")

	return &cfg, nil
}

// HasServiceCredentials reports whether a full Server-to-Server credential
// triple is configured.
func (c *Config) HasServiceCredentials() bool {
	return c.ZoomAccountID != "" && c.ZoomClientID != "" && c.ZoomClientSecret != ""
}

// ValidateServiceCredentials fails with the names of any missing
// Server-to-Server fields.
func (c *Config) ValidateServiceCredentials() error {
	var missing []string
	if c.ZoomAccountID == "" {
		missing = append(missing, "ZOOM_ACCOUNT_ID")
	}
	if c.ZoomClientID == "" {
		missing = append(missing, "ZOOM_CLIENT_ID")
	}
	if c.ZoomClientSecret == "" {
		missing = append(missing, "ZOOM_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// String excludes credential values so the config can be logged safely.
func (c *Config) String() string {
	creds := "missing"
	if c.HasServiceCredentials() {
		creds = "configured"
	}
	return fmt.Sprintf("Config(api_base_url=%s, auth_url=%s, output_dir=%s, credentials=%s)",
		c.APIBaseURL, c.AuthURL, c.OutputDir, creds)
}
