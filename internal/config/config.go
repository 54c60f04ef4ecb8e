// Package config loads server settings from environment variables and an
// optional YAML config file via viper.
package config

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Settings holds everything the server needs to reach the three external
// systems. Tokens arrive through the environment (PMBRIDGE_* variables)
// or a config file in $HOME/.pmbridge or the working directory.
type Settings struct {
	JiraBaseURL       string `mapstructure:"jira_base_url"`
	ConfluenceBaseURL string `mapstructure:"confluence_base_url"`
	AtlassianEmail    string `mapstructure:"atlassian_email"`
	AtlassianAPIToken string `mapstructure:"atlassian_api_token"`

	// GoogleCredentialsJSON is the service-account key, either the full
	// JSON structure inline or a path to the key file.
	GoogleCredentialsJSON string `mapstructure:"google_credentials_json"`

	// CalendarShareEmail, when set, is granted writer access to every
	// calendar the directory provisions.
	CalendarShareEmail string `mapstructure:"calendar_share_email"`

	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	// SnapshotLookbackDays bounds the event window folded by project
	// snapshots and index rebuilds.
	SnapshotLookbackDays int `mapstructure:"snapshot_lookback_days"`
}

// Load reads settings from the environment and config file.
func Load() (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("PMBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME/.pmbridge")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // config file is optional

	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("snapshot_lookback_days", 90)

	// AutomaticEnv does not surface env-only keys through Unmarshal
	// unless they are bound explicitly.
	for _, key := range []string{
		"jira_base_url", "confluence_base_url", "atlassian_email",
		"atlassian_api_token", "google_credentials_json",
		"calendar_share_email", "log_level", "log_format",
		"snapshot_lookback_days",
	} {
		_ = v.BindEnv(key)
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, errors.Wrap(err, "parsing configuration")
	}
	return &s, nil
}

// Validate checks that every credential the server needs is present.
func (s *Settings) Validate() error {
	switch {
	case s.JiraBaseURL == "":
		return errors.New("jira_base_url is required")
	case s.ConfluenceBaseURL == "":
		return errors.New("confluence_base_url is required")
	case s.AtlassianEmail == "":
		return errors.New("atlassian_email is required")
	case s.AtlassianAPIToken == "":
		return errors.New("atlassian_api_token is required")
	case s.GoogleCredentialsJSON == "":
		return errors.New("google_credentials_json is required")
	}
	return nil
}

// GoogleCredentials returns the raw service-account key bytes,
// dereferencing a file path when the setting is not inline JSON.
func (s *Settings) GoogleCredentials() ([]byte, error) {
	raw := strings.TrimSpace(s.GoogleCredentialsJSON)
	if strings.HasPrefix(raw, "{") {
		return []byte(raw), nil
	}
	data, err := os.ReadFile(raw)
	if err != nil {
		return nil, errors.Wrap(err, "reading google credentials file")
	}
	return data, nil
}
