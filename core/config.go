package core

import (
	"fmt"
	"strings"
	"time"
)

// StateConfig controls state verification. Verification is on unless Disable
// is set; LegacyVerification additionally relaxes the cookie checks for
// callers that cannot carry browser cookies through the redirect.
type StateConfig struct {
	Secret             string `koanf:"secret" mapstructure:"secret"`
	TTLSeconds         int    `koanf:"ttl_seconds" mapstructure:"ttl_seconds"`
	Disable            bool   `koanf:"disable" mapstructure:"disable"`
	LegacyVerification bool   `koanf:"legacy_verification" mapstructure:"legacy_verification"`
}

func (c StateConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return DefaultStateTTL
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

type Config struct {
	ServiceName      string            `koanf:"service_name" mapstructure:"service_name"`
	ClientID         string            `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret     string            `koanf:"client_secret" mapstructure:"client_secret"`
	AuthVersion      AuthVersion       `koanf:"auth_version" mapstructure:"auth_version"`
	AuthorizeBaseURL string            `koanf:"authorize_base_url" mapstructure:"authorize_base_url"`
	DirectInstall    bool              `koanf:"direct_install" mapstructure:"direct_install"`
	State            StateConfig       `koanf:"state" mapstructure:"state"`
	InstallOptions   InstallURLOptions `koanf:"install_options" mapstructure:"install_options"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:      "install",
		AuthVersion:      AuthVersionV2,
		AuthorizeBaseURL: "https://slack.com",
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if err := c.AuthVersion.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.AuthorizeBaseURL) == "" {
		return fmt.Errorf("core: authorize_base_url is required")
	}
	return nil
}

func (c Config) stateVerificationEnabled() bool {
	return !c.State.Disable
}
