package config

import (
	"fmt"

	"github.com/kbukum/resilkit/logger"
	"github.com/kbukum/resilkit/resilience"
	"github.com/kbukum/resilkit/validation"
)

// EngineConfig is the top-level configuration for an application using the
// resilience engine.
type EngineConfig struct {
	Name        string           `yaml:"name" mapstructure:"name"`
	Environment string           `yaml:"environment" mapstructure:"environment"`
	Debug       bool             `yaml:"debug" mapstructure:"debug"`
	Logging     logger.Config    `yaml:"logging" mapstructure:"logging"`
	Resilience  ResilienceConfig `yaml:"resilience" mapstructure:"resilience"`
}

// ResilienceConfig holds named configurations for every primitive kind.
// The keys become registry names.
type ResilienceConfig struct {
	CircuitBreakers map[string]resilience.CircuitBreakerConfig `yaml:"circuit_breakers" mapstructure:"circuit_breakers"`
	RetryPolicies   map[string]resilience.RetryConfig          `yaml:"retry_policies" mapstructure:"retry_policies"`
	RateLimiters    map[string]resilience.RateLimiterConfig    `yaml:"rate_limiters" mapstructure:"rate_limiters"`
	ErrorBudgets    map[string]resilience.ErrorBudgetConfig    `yaml:"error_budgets" mapstructure:"error_budgets"`
	Bulkheads       map[string]resilience.BulkheadConfig       `yaml:"bulkheads" mapstructure:"bulkheads"`
}

// ApplyDefaults applies default values to the configuration.
func (c *EngineConfig) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	c.Logging.ApplyDefaults()
	c.Resilience.ApplyDefaults()
}

// Validate validates the configuration.
func (c *EngineConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("config.name is required")
	}
	validEnvs := []string{"development", "staging", "production"}
	found := false
	for _, env := range validEnvs {
		if c.Environment == env {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("config.environment must be one of %v (got: %s)", validEnvs, c.Environment)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config.logging: %w", err)
	}
	if err := c.Resilience.Validate(); err != nil {
		return err
	}
	return nil
}

// ApplyDefaults fills unset fields of every named primitive config with the
// primitive's defaults and stamps the map key in as the name.
func (c *ResilienceConfig) ApplyDefaults() {
	for name, cb := range c.CircuitBreakers {
		def := resilience.DefaultCircuitBreakerConfig(name)
		if cb.FailureThreshold == 0 {
			cb.FailureThreshold = def.FailureThreshold
		}
		if cb.SuccessThreshold == 0 {
			cb.SuccessThreshold = def.SuccessThreshold
		}
		if cb.Timeout == 0 {
			cb.Timeout = def.Timeout
		}
		cb.Name = name
		c.CircuitBreakers[name] = cb
	}

	for name, rp := range c.RetryPolicies {
		def := resilience.DefaultRetryConfig(name)
		if rp.MaxAttempts == 0 {
			rp.MaxAttempts = def.MaxAttempts
		}
		if rp.InitialDelay == 0 {
			rp.InitialDelay = def.InitialDelay
		}
		if rp.BackoffMultiplier == 0 {
			rp.BackoffMultiplier = def.BackoffMultiplier
		}
		if rp.MaxDelay == 0 {
			rp.MaxDelay = def.MaxDelay
		}
		rp.Name = name
		c.RetryPolicies[name] = rp
	}

	for name, rl := range c.RateLimiters {
		def := resilience.DefaultRateLimiterConfig(name)
		if rl.RequestsPerSecond == 0 {
			rl.RequestsPerSecond = def.RequestsPerSecond
		}
		if rl.BucketCapacity == 0 {
			rl.BucketCapacity = rl.RequestsPerSecond
		}
		rl.Name = name
		c.RateLimiters[name] = rl
	}

	for name, eb := range c.ErrorBudgets {
		def := resilience.DefaultErrorBudgetConfig(name)
		if eb.SLOTarget == 0 {
			eb.SLOTarget = def.SLOTarget
		}
		if eb.Window == 0 {
			eb.Window = def.Window
		}
		eb.Name = name
		c.ErrorBudgets[name] = eb
	}

	for name, bh := range c.Bulkheads {
		def := resilience.DefaultBulkheadConfig(name)
		if bh.MaxConcurrent == 0 {
			bh.MaxConcurrent = def.MaxConcurrent
		}
		bh.Name = name
		c.Bulkheads[name] = bh
	}
}

// Validate validates every named primitive configuration.
func (c *ResilienceConfig) Validate() error {
	for name, cb := range c.CircuitBreakers {
		if err := validation.Validate(cb); err != nil {
			return fmt.Errorf("resilience.circuit_breakers.%s: %w", name, err)
		}
	}
	for name, rp := range c.RetryPolicies {
		if err := validation.Validate(rp); err != nil {
			return fmt.Errorf("resilience.retry_policies.%s: %w", name, err)
		}
	}
	for name, rl := range c.RateLimiters {
		if err := validation.Validate(rl); err != nil {
			return fmt.Errorf("resilience.rate_limiters.%s: %w", name, err)
		}
	}
	for name, eb := range c.ErrorBudgets {
		if err := validation.Validate(eb); err != nil {
			return fmt.Errorf("resilience.error_budgets.%s: %w", name, err)
		}
	}
	for name, bh := range c.Bulkheads {
		if err := validation.Validate(bh); err != nil {
			return fmt.Errorf("resilience.bulkheads.%s: %w", name, err)
		}
	}
	return nil
}

// Defaults converts the configuration into registry defaults.
func (c *ResilienceConfig) Defaults() resilience.RegistryDefaults {
	return resilience.RegistryDefaults{
		CircuitBreakers: c.CircuitBreakers,
		RetryPolicies:   c.RetryPolicies,
		RateLimiters:    c.RateLimiters,
		ErrorBudgets:    c.ErrorBudgets,
		Bulkheads:       c.Bulkheads,
	}
}
