package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/circdesk/loanrules/internal/rules"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loanrules.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestConfigLayering covers file, environment and secret handling together.
func TestConfigLayering(t *testing.T) {
	t.Run("secret in config file rejected", func(t *testing.T) {
		path := writeConfigFile(t, `service:
  host: "localhost"
  port: 8080
  hmac_secret: "should_be_rejected"
`)

		_, err := LoadConfig(path)
		if err == nil {
			t.Fatal("expected error for secret in config file")
		}
		if err.Error() != "HMAC secrets not allowed in config files (use LR_HMAC_SECRET environment variable)" {
			t.Fatalf("wrong error message: %v", err)
		}
	})

	t.Run("file sets compiler priorities", func(t *testing.T) {
		path := writeConfigFile(t, `compiler:
  primary_priority: number-of-criteria
  secondary_priority: criterium
  line_priority: first-line
`)

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig error: %v", err)
		}
		opts, err := cfg.CompilerOptions()
		if err != nil {
			t.Fatalf("CompilerOptions error: %v", err)
		}
		want := rules.Priorities{
			Primary:   rules.PriorityNumberOfCriteria,
			Secondary: rules.PriorityCriterium,
			Line:      rules.PriorityFirstLine,
		}
		if opts.DefaultPriorities != want {
			t.Fatalf("expected %+v, got %+v", want, opts.DefaultPriorities)
		}
	})

	t.Run("environment overrides config file", func(t *testing.T) {
		os.Setenv("LR_SERVICE_PORT", "8080")
		defer os.Unsetenv("LR_SERVICE_PORT")

		path := writeConfigFile(t, `service:
  port: 9090
  metrics_addr: "127.0.0.1:9100"
`)

		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("LoadConfig error: %v", err)
		}
		if cfg.Port != 8080 {
			t.Fatalf("environment should override config file: expected 8080, got %d", cfg.Port)
		}
		if cfg.MetricsAddr != "127.0.0.1:9100" {
			t.Fatalf("expected metrics_addr from file, got %s", cfg.MetricsAddr)
		}
	})

	t.Run("invalid priorities in file", func(t *testing.T) {
		path := writeConfigFile(t, `compiler:
  line_priority: criterium
`)

		if _, err := LoadConfig(path); err == nil {
			t.Fatal("expected error for criterium as line priority")
		}
	})
}
