package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/circdesk/loanrules/internal/rules"
	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	v := viper.New()

	// Set defaults matching DefaultServiceConfig
	def := DefaultServiceConfig()
	v.SetDefault("service.host", def.Host)
	v.SetDefault("service.port", def.Port)
	v.SetDefault("service.request_timeout", def.RequestTimeout.String())
	v.SetDefault("service.max_rule_text_size", def.MaxRuleTextSize)
	v.SetDefault("service.metrics_addr", def.MetricsAddr)
	v.SetDefault("compiler.primary_priority", def.PrimaryPriority)
	v.SetDefault("compiler.secondary_priority", def.SecondaryPriority)
	v.SetDefault("compiler.line_priority", def.LinePriority)

	// Bind environment variables with LR_ prefix
	v.SetEnvPrefix("LR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &ServiceConfig{
		Host:              v.GetString("service.host"),
		Port:              v.GetInt("service.port"),
		RequestTimeout:    v.GetDuration("service.request_timeout"),
		MaxRuleTextSize:   v.GetInt("service.max_rule_text_size"),
		MetricsAddr:       v.GetString("service.metrics_addr"),
		PrimaryPriority:   v.GetString("compiler.primary_priority"),
		SecondaryPriority: v.GetString("compiler.secondary_priority"),
		LinePriority:      v.GetString("compiler.line_priority"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range, positive limits and the compiler
// default priorities.
func validateConfig(cfg *ServiceConfig) error {
	var errs []error
	if cfg.Port <= 0 || cfg.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port))
	}
	if cfg.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout))
	}
	if cfg.MaxRuleTextSize <= 0 {
		errs = append(errs, fmt.Errorf("max_rule_text_size must be positive, got %d", cfg.MaxRuleTextSize))
	}
	if _, err := rules.ParsePriorities(cfg.PrimaryPriority, cfg.SecondaryPriority, cfg.LinePriority); err != nil {
		errs = append(errs, fmt.Errorf("compiler priorities: %w", err))
	}
	return errors.Join(errs...)
}

// validateNoSecretsInConfig enforces environment-only secrets.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("hmac_secret") || v.IsSet("service.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use LR_HMAC_SECRET environment variable)")
	}
	return nil
}
