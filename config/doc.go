// Package config loads engine configuration from YAML files and the
// environment.
//
// Viper reads the config file, a .env file is loaded through godotenv, and
// environment variables override file values. The resulting EngineConfig
// carries logging settings plus named configurations for every resilience
// primitive, ready to seed a registry:
//
//	var cfg config.EngineConfig
//	if err := config.Load("payments", &cfg); err != nil {
//	    ...
//	}
//	reg := resilience.NewRegistry(resilience.WithDefaults(cfg.Resilience.Defaults()))
package config
