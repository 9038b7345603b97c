package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts file operations so tests can substitute their own.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// RealFileSystem implements FileSystem using actual file operations.
type RealFileSystem struct{}

func (rfs *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (rfs *RealFileSystem) LoadEnv(path string) error {
	return godotenv.Load(path)
}

// LoaderConfig holds dependencies and optional file overrides.
type LoaderConfig struct {
	FileSystem FileSystem
	ConfigFile string // Direct config file path (optional)
	EnvFile    string // Direct .env file path (optional)
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithFileSystem sets a custom filesystem for the loader.
func WithFileSystem(fs FileSystem) LoaderOption {
	return func(lc *LoaderConfig) { lc.FileSystem = fs }
}

// WithConfigFile sets an explicit config file path.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile sets an explicit .env file path.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load loads configuration for the named service into cfg. Without explicit
// paths it searches standard locations for config.yml and .env files, binds
// environment variables, and unmarshals the merged result.
func Load(serviceName string, cfg interface{}, opts ...LoaderOption) error {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}
	if lc.FileSystem == nil {
		lc.FileSystem = &RealFileSystem{}
	}

	configFile := lc.ConfigFile
	if configFile == "" {
		configFile = findFirst(lc.FileSystem, configSearchPaths(serviceName))
	}
	envFile := lc.EnvFile
	if envFile == "" {
		envFile = findFirst(lc.FileSystem, envSearchPaths(serviceName))
	}

	v := viper.New()

	// YAML config is the base layer
	if configFile != "" && lc.FileSystem.Exists(configFile) {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	// Environment overrides file values
	v.AutomaticEnv()
	bindEnvVars(v)

	if envFile != "" && lc.FileSystem.Exists(envFile) {
		if err := lc.FileSystem.LoadEnv(envFile); err != nil {
			return fmt.Errorf("config: load %s: %w", envFile, err)
		}
		// Re-bind to pick up variables the .env file introduced
		bindEnvVars(v)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("config: unmarshal for service %s: %w", serviceName, err)
	}

	return nil
}

func configSearchPaths(serviceName string) []string {
	return []string{
		fmt.Sprintf("./cmd/%s/config.yml", serviceName),
		fmt.Sprintf("../cmd/%s/config.yml", serviceName),
		"./config/config.yml",
		"../config/config.yml",
		"./config.yml",
	}
}

func envSearchPaths(serviceName string) []string {
	return []string{
		fmt.Sprintf(".env.%s", serviceName),
		fmt.Sprintf("./cmd/%s/.env", serviceName),
		fmt.Sprintf("../cmd/%s/.env", serviceName),
		"./.env",
		"../.env",
	}
}

func findFirst(fs FileSystem, paths []string) string {
	for _, path := range paths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// bindEnvVars maps UPPER_CASE_WITH_UNDERSCORES environment variables onto
// viper's nested keys so RESILIENCE_LOGGING_LEVEL reaches logging.level.
func bindEnvVars(v *viper.Viper) {
	for _, env := range os.Environ() {
		pair := strings.SplitN(env, "=", 2)
		if len(pair) != 2 {
			continue
		}
		for _, variant := range envKeyVariants(pair[0]) {
			v.Set(variant, pair[1])
		}
	}
}

// envKeyVariants generates the nested key interpretations of an environment
// variable name. LOGGING_NO_COLOR yields logging_no_color, logging.no.color,
// logging.no_color and logging_no.color, because viper cannot know which
// underscores separate sections and which are part of a field name.
func envKeyVariants(envKey string) []string {
	lowerKey := strings.ToLower(envKey)
	parts := strings.Split(lowerKey, "_")

	if len(parts) <= 1 {
		return []string{lowerKey}
	}

	variants := []string{
		lowerKey,
		strings.ReplaceAll(lowerKey, "_", "."),
	}
	for i := 1; i < len(parts); i++ {
		variants = append(variants, strings.Join(parts[:i], ".")+"."+strings.Join(parts[i:], "_"))
	}

	seen := make(map[string]bool, len(variants))
	result := variants[:0]
	for _, variant := range variants {
		if !seen[variant] {
			seen[variant] = true
			result = append(result, variant)
		}
	}
	return result
}
