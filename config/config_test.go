package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kbukum/resilkit/resilience"
)

func TestEngineConfig_ApplyDefaults(t *testing.T) {
	t.Run("empty environment defaults to development", func(t *testing.T) {
		cfg := EngineConfig{Name: "svc"}
		cfg.ApplyDefaults()
		if cfg.Environment != "development" {
			t.Errorf("expected 'development', got %q", cfg.Environment)
		}
		if !cfg.Debug {
			t.Error("expected debug=true for development")
		}
		if cfg.Logging.Level != "info" {
			t.Errorf("expected default log level 'info', got %q", cfg.Logging.Level)
		}
	})

	t.Run("production environment keeps debug false", func(t *testing.T) {
		cfg := EngineConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		if cfg.Debug {
			t.Error("expected debug=false for production")
		}
	})

	t.Run("partial primitive configs are completed", func(t *testing.T) {
		cfg := EngineConfig{
			Name: "svc",
			Resilience: ResilienceConfig{
				CircuitBreakers: map[string]resilience.CircuitBreakerConfig{
					"db": {FailureThreshold: 2},
				},
				RetryPolicies: map[string]resilience.RetryConfig{
					"db": {MaxAttempts: 5},
				},
			},
		}
		cfg.ApplyDefaults()

		cb := cfg.Resilience.CircuitBreakers["db"]
		if cb.FailureThreshold != 2 {
			t.Errorf("expected explicit threshold 2, got %d", cb.FailureThreshold)
		}
		if cb.SuccessThreshold != 2 || cb.Timeout != 30*time.Second {
			t.Errorf("expected defaults for unset fields, got %+v", cb)
		}
		if cb.Name != "db" {
			t.Errorf("expected map key as name, got %q", cb.Name)
		}

		rp := cfg.Resilience.RetryPolicies["db"]
		if rp.MaxAttempts != 5 || rp.InitialDelay != 100*time.Millisecond {
			t.Errorf("unexpected retry config: %+v", rp)
		}
	})
}

func TestEngineConfig_Validate(t *testing.T) {
	valid := func() EngineConfig {
		cfg := EngineConfig{Name: "svc", Environment: "production"}
		cfg.ApplyDefaults()
		return cfg
	}

	t.Run("valid config passes", func(t *testing.T) {
		cfg := valid()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		cfg := valid()
		cfg.Name = ""
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "config.name") {
			t.Errorf("expected name error, got %v", err)
		}
	})

	t.Run("invalid environment", func(t *testing.T) {
		cfg := valid()
		cfg.Environment = "qa"
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "config.environment") {
			t.Errorf("expected environment error, got %v", err)
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := valid()
		cfg.Logging.Level = "verbose"
		if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "config.logging") {
			t.Errorf("expected logging error, got %v", err)
		}
	})

	t.Run("slo target out of range", func(t *testing.T) {
		cfg := valid()
		cfg.Resilience.ErrorBudgets = map[string]resilience.ErrorBudgetConfig{
			"api": {Name: "api", SLOTarget: 1.5, Window: time.Minute},
		}
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "resilience.error_budgets.api") {
			t.Errorf("expected budget error, got %v", err)
		}
	})

	t.Run("negative rate", func(t *testing.T) {
		cfg := valid()
		cfg.Resilience.RateLimiters = map[string]resilience.RateLimiterConfig{
			"api": {Name: "api", RequestsPerSecond: -1, BucketCapacity: 1},
		}
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), "resilience.rate_limiters.api") {
			t.Errorf("expected limiter error, got %v", err)
		}
	})
}

func TestLoad_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
name: payments
environment: production
logging:
  level: warn
  format: json
resilience:
  circuit_breakers:
    db:
      failure_threshold: 3
      success_threshold: 1
      timeout: 10s
  rate_limiters:
    api:
      requests_per_second: 50
      bucket_capacity: 100
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	var cfg EngineConfig
	if err := Load("payments", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Name != "payments" {
		t.Errorf("expected name 'payments', got %q", cfg.Name)
	}
	if cfg.Logging.Level != "warn" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging config: %+v", cfg.Logging)
	}

	cb, ok := cfg.Resilience.CircuitBreakers["db"]
	if !ok {
		t.Fatal("expected breaker config for 'db'")
	}
	if cb.FailureThreshold != 3 || cb.Timeout != 10*time.Second {
		t.Errorf("unexpected breaker config: %+v", cb)
	}

	rl := cfg.Resilience.RateLimiters["api"]
	if rl.RequestsPerSecond != 50 || rl.BucketCapacity != 100 {
		t.Errorf("unexpected limiter config: %+v", rl)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := `
name: payments
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOGGING_LEVEL", "debug")

	var cfg EngineConfig
	if err := Load("payments", &cfg, WithConfigFile(path)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Logging.Level != "debug" {
		t.Errorf("expected env to override file, got %q", cfg.Logging.Level)
	}
}

type fakeFileSystem struct {
	t     *testing.T
	files map[string]bool
	env   map[string]string
}

func (f *fakeFileSystem) Exists(path string) bool { return f.files[path] }

func (f *fakeFileSystem) LoadEnv(path string) error {
	for k, v := range f.env {
		f.t.Setenv(k, v)
	}
	return nil
}

func TestLoad_EnvFileValuesApply(t *testing.T) {
	fs := &fakeFileSystem{
		t:     t,
		files: map[string]bool{".env.payments": true},
		env:   map[string]string{"ENVIRONMENT": "staging"},
	}

	var cfg EngineConfig
	if err := Load("payments", &cfg, WithFileSystem(fs)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Environment != "staging" {
		t.Errorf("expected .env value to apply, got %q", cfg.Environment)
	}
}

func TestLoad_MissingExplicitConfigFileIsIgnored(t *testing.T) {
	var cfg EngineConfig
	err := Load("payments", &cfg, WithConfigFile(filepath.Join(t.TempDir(), "nope.yml")))
	// The explicit file does not exist, so nothing is read and no error is
	// raised; the config simply stays zero.
	if err != nil {
		t.Fatalf("expected no error for absent file, got %v", err)
	}
	if cfg.Name != "" {
		t.Errorf("expected zero config, got name %q", cfg.Name)
	}
}

func TestResilienceConfig_Defaults(t *testing.T) {
	rc := ResilienceConfig{
		CircuitBreakers: map[string]resilience.CircuitBreakerConfig{
			"db": {Name: "db", FailureThreshold: 1, SuccessThreshold: 1, Timeout: time.Second},
		},
		ErrorBudgets: map[string]resilience.ErrorBudgetConfig{
			"db": {Name: "db", SLOTarget: 0.9, Window: time.Minute},
		},
	}

	defaults := rc.Defaults()
	if _, ok := defaults.CircuitBreakers["db"]; !ok {
		t.Error("expected breaker defaults carried over")
	}
	if _, ok := defaults.ErrorBudgets["db"]; !ok {
		t.Error("expected budget defaults carried over")
	}

	reg := resilience.NewRegistry(resilience.WithDefaults(defaults))
	cb := reg.GetCircuitBreaker("db")
	_ = cb.Execute(func() error { return os.ErrDeadlineExceeded })
	if cb.State() != resilience.StateOpen {
		t.Errorf("expected configured threshold to apply, got %s", cb.State())
	}
}
