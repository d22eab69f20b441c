package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "/etc/ormbundle"
	ConfigFileName    = "ormbundle.yml"

	// DefaultConnectionName names the datasource created from DATABASE_URL
	// when no default connection is configured.
	DefaultConnectionName = "default"
)

// ValidAdapters is the list of supported database adapters
var ValidAdapters = []string{"postgres", "mysql", "sqlite"}

// ValidProfilerStores is the list of profile stores; "none" disables the profiler
var ValidProfilerStores = []string{"memory", "redis", "none"}

// ErrNoDatasources is returned by Validate when no connection is configured.
var ErrNoDatasources = errors.New("no datasources configured")

// Datasource is one named database connection.
type Datasource struct {
	Name     string `yaml:"name" json:"name"`
	Adapter  string `yaml:"adapter" json:"adapter"`
	DSN      string `yaml:"dsn" json:"dsn"`
	User     string `yaml:"user" json:"user,omitempty"`
	Password string `yaml:"password" json:"-"`
	// Replicas are read-only DSNs used round robin for reads
	Replicas []string `yaml:"replicas" json:"replicas,omitempty"`
}

// Config holds all bundle configuration settings
type Config struct {
	// Datasources are the configured connections, in declaration order
	Datasources []Datasource `yaml:"datasources" json:"datasources"`

	// DefaultConnection names the datasource used when none is given
	DefaultConnection string `yaml:"default_connection" json:"default_connection"`

	// Logging enables the SQL query log
	Logging bool `yaml:"logging" json:"logging"`

	// Audit enables the audit log of auditable ACE decisions
	Audit bool `yaml:"audit" json:"audit"`

	// LogLevel is "debug" or "info"
	LogLevel string `yaml:"log_level" json:"log_level"`

	// LogFormat is "json" or "console"
	LogFormat string `yaml:"log_format" json:"log_format"`

	// ProfilerStore is one of ValidProfilerStores
	ProfilerStore string `yaml:"profiler_store" json:"profiler_store"`

	// ProfilerRedisURL is the redis URL of the redis profile store
	ProfilerRedisURL string `yaml:"profiler_redis_url" json:"profiler_redis_url"`

	// GeneratorBinary is the external model/SQL generator
	GeneratorBinary string `yaml:"generator_binary" json:"generator_binary"`

	// CacheDir is where the generator inputs are prepared
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`

	// sources tracks where each value came from
	sources map[string]string

	// configFilePath is the path to the config file
	configFilePath string
}

// Attribute represents a configuration attribute with its value and source
type Attribute struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

// Global singleton config
var (
	globalConfig *Config
	configMu     sync.RWMutex
)

// Get returns the global configuration, loading it if necessary.
// Load errors are returned and nothing is cached.
func Get() (*Config, error) {
	configMu.RLock()
	if globalConfig != nil {
		configMu.RUnlock()
		return globalConfig, nil
	}
	configMu.RUnlock()

	configMu.Lock()
	defer configMu.Unlock()

	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			return nil, err
		}
		globalConfig = cfg
	}
	return globalConfig, nil
}

// newDefault returns a config with default values
func newDefault() *Config {
	return &Config{
		Datasources:     []Datasource{},
		LogLevel:        "info",
		LogFormat:       "json",
		ProfilerStore:   "memory",
		GeneratorBinary: "propel-gen",
		CacheDir:        filepath.Join(os.TempDir(), "ormbundle"),
		sources:         make(map[string]string),
	}
}

// Load loads configuration from file and environment variables
// Environment variables take precedence over file values
func Load() (*Config, error) {
	configPath := os.Getenv("ORM_CONFIG_PATH")
	if configPath == "" {
		configPath = DefaultConfigPath
	}
	return LoadFile(filepath.Join(configPath, ConfigFileName))
}

// LoadFile is Load with an explicit file path. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	config := newDefault()
	for _, name := range attributeNames() {
		config.sources[name] = "default"
	}
	config.configFilePath = path

	if data, err := os.ReadFile(path); err == nil {
		var fileConfig Config
		if err := yaml.Unmarshal(data, &fileConfig); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		config.applyFileConfig(&fileConfig)
	}

	if config.DefaultConnection == "" && len(config.Datasources) > 0 {
		config.DefaultConnection = config.Datasources[0].Name
	}

	config.applyEnvConfig()
	return config, nil
}

func attributeNames() []string {
	return []string{
		"datasources", "default_connection", "logging", "audit", "log_level",
		"log_format", "profiler_store", "profiler_redis_url",
		"generator_binary", "cache_dir",
	}
}

func (c *Config) applyFileConfig(file *Config) {
	if len(file.Datasources) > 0 {
		c.Datasources = file.Datasources
		c.sources["datasources"] = "file"
	}
	if file.DefaultConnection != "" {
		c.DefaultConnection = file.DefaultConnection
		c.sources["default_connection"] = "file"
	}
	if file.Logging {
		c.Logging = true
		c.sources["logging"] = "file"
	}
	if file.Audit {
		c.Audit = true
		c.sources["audit"] = "file"
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
		c.sources["log_level"] = "file"
	}
	if file.LogFormat != "" {
		c.LogFormat = file.LogFormat
		c.sources["log_format"] = "file"
	}
	if file.ProfilerStore != "" {
		c.ProfilerStore = file.ProfilerStore
		c.sources["profiler_store"] = "file"
	}
	if file.ProfilerRedisURL != "" {
		c.ProfilerRedisURL = file.ProfilerRedisURL
		c.sources["profiler_redis_url"] = "file"
	}
	if file.GeneratorBinary != "" {
		c.GeneratorBinary = file.GeneratorBinary
		c.sources["generator_binary"] = "file"
	}
	if file.CacheDir != "" {
		c.CacheDir = file.CacheDir
		c.sources["cache_dir"] = "file"
	}
}

func (c *Config) applyEnvConfig() {
	if val := os.Getenv("ORM_DEFAULT_CONNECTION"); val != "" {
		c.DefaultConnection = val
		c.sources["default_connection"] = "environment"
	}
	if val := os.Getenv("DATABASE_URL"); val != "" {
		c.applyDatabaseURL(val)
		c.sources["datasources"] = "environment"
	}
	if val := os.Getenv("ORM_LOGGING"); val != "" {
		c.Logging = val == "true" || val == "1"
		c.sources["logging"] = "environment"
	}
	if val := os.Getenv("ORM_AUDIT"); val != "" {
		c.Audit = val == "true" || val == "1"
		c.sources["audit"] = "environment"
	}
	if val := os.Getenv("ORM_LOG_LEVEL"); val != "" {
		c.LogLevel = val
		c.sources["log_level"] = "environment"
	}
	if val := os.Getenv("ORM_LOG_FORMAT"); val != "" {
		c.LogFormat = val
		c.sources["log_format"] = "environment"
	}
	if val := os.Getenv("ORM_PROFILER_STORE"); val != "" {
		c.ProfilerStore = val
		c.sources["profiler_store"] = "environment"
	}
	if val := os.Getenv("ORM_PROFILER_REDIS_URL"); val != "" {
		c.ProfilerRedisURL = val
		c.sources["profiler_redis_url"] = "environment"
	}
	if val := os.Getenv("ORM_GENERATOR_BINARY"); val != "" {
		c.GeneratorBinary = val
		c.sources["generator_binary"] = "environment"
	}
	if val := os.Getenv("ORM_CACHE_DIR"); val != "" {
		c.CacheDir = val
		c.sources["cache_dir"] = "environment"
	}
}

// applyDatabaseURL replaces the DSN of the default connection, creating the
// connection if it does not exist.
func (c *Config) applyDatabaseURL(dsn string) {
	name := c.DefaultConnection
	if name == "" {
		name = DefaultConnectionName
		c.DefaultConnection = name
	}
	ds := Datasource{Name: name, Adapter: AdapterFromURL(dsn), DSN: dsn}
	for i := range c.Datasources {
		if c.Datasources[i].Name == name {
			c.Datasources[i].Adapter = ds.Adapter
			c.Datasources[i].DSN = dsn
			return
		}
	}
	c.Datasources = append(c.Datasources, ds)
}

// AdapterFromURL guesses the adapter from the scheme of a connection URL.
// Unknown schemes are treated as postgres.
func AdapterFromURL(dsn string) string {
	if strings.HasPrefix(dsn, "file:") || strings.HasSuffix(dsn, ".db") || dsn == ":memory:" {
		return "sqlite"
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "postgres"
	}
	switch u.Scheme {
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return "postgres"
	}
}

// ConfigFilePath returns the path to the config file
func (c *Config) ConfigFilePath() string {
	return c.configFilePath
}

// Source returns the source of a configuration attribute
func (c *Config) Source(name string) string {
	if c.sources == nil {
		return "default"
	}
	if s, ok := c.sources[name]; ok {
		return s
	}
	return "default"
}

// Datasource returns the named connection.
func (c *Config) Datasource(name string) (Datasource, bool) {
	for _, ds := range c.Datasources {
		if ds.Name == name {
			return ds, true
		}
	}
	return Datasource{}, false
}

// Default returns the default connection.
func (c *Config) Default() (Datasource, error) {
	if len(c.Datasources) == 0 {
		return Datasource{}, ErrNoDatasources
	}
	ds, ok := c.Datasource(c.DefaultConnection)
	if !ok {
		return Datasource{}, fmt.Errorf("default connection %q is not configured", c.DefaultConnection)
	}
	return ds, nil
}

// ProfilerEnabled reports whether profiles are collected.
func (c *Config) ProfilerEnabled() bool {
	return c.ProfilerStore != "" && c.ProfilerStore != "none"
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.Datasources) == 0 {
		return ErrNoDatasources
	}

	validAdapters := make(map[string]bool)
	for _, a := range ValidAdapters {
		validAdapters[a] = true
	}
	seen := make(map[string]bool)
	for _, ds := range c.Datasources {
		if ds.Name == "" {
			return fmt.Errorf("datasource without name")
		}
		if seen[ds.Name] {
			return fmt.Errorf("duplicate datasource: %s", ds.Name)
		}
		seen[ds.Name] = true
		if !validAdapters[ds.Adapter] {
			return fmt.Errorf("invalid adapter for datasource %s: %q", ds.Name, ds.Adapter)
		}
	}
	if !seen[c.DefaultConnection] {
		return fmt.Errorf("default connection %q is not configured", c.DefaultConnection)
	}

	validStores := make(map[string]bool)
	for _, s := range ValidProfilerStores {
		validStores[s] = true
	}
	if !validStores[c.ProfilerStore] {
		return fmt.Errorf("invalid profiler_store: %s", c.ProfilerStore)
	}
	if c.ProfilerStore == "redis" && c.ProfilerRedisURL == "" {
		return fmt.Errorf("profiler_redis_url is required for the redis profiler store")
	}
	return nil
}

// Attributes returns all configuration attributes with their values and sources
func (c *Config) Attributes() []Attribute {
	names := make([]string, 0, len(c.Datasources))
	for _, ds := range c.Datasources {
		names = append(names, ds.Name+"("+ds.Adapter+")")
	}
	return []Attribute{
		{Name: "datasources", Value: strings.Join(names, ","), Source: c.Source("datasources")},
		{Name: "default_connection", Value: c.DefaultConnection, Source: c.Source("default_connection")},
		{Name: "logging", Value: fmt.Sprint(c.Logging), Source: c.Source("logging")},
		{Name: "audit", Value: fmt.Sprint(c.Audit), Source: c.Source("audit")},
		{Name: "log_level", Value: c.LogLevel, Source: c.Source("log_level")},
		{Name: "log_format", Value: c.LogFormat, Source: c.Source("log_format")},
		{Name: "profiler_store", Value: c.ProfilerStore, Source: c.Source("profiler_store")},
		{Name: "profiler_redis_url", Value: c.ProfilerRedisURL, Source: c.Source("profiler_redis_url")},
		{Name: "generator_binary", Value: c.GeneratorBinary, Source: c.Source("generator_binary")},
		{Name: "cache_dir", Value: c.CacheDir, Source: c.Source("cache_dir")},
	}
}

// FormatText returns a text representation of the configuration
func (c *Config) FormatText() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Config file: %s\n\n", c.configFilePath))
	sb.WriteString(fmt.Sprintf("%-25s %-40s %s\n", "NAME", "VALUE", "SOURCE"))
	sb.WriteString(fmt.Sprintf("%-25s %-40s %s\n", "----", "-----", "------"))

	for _, attr := range c.Attributes() {
		value := attr.Value
		if value == "" {
			value = "(not set)"
		}
		sb.WriteString(fmt.Sprintf("%-25s %-40s %s\n", attr.Name, value, attr.Source))
	}
	return sb.String()
}

// FormatJSON returns a JSON representation of the configuration
func (c *Config) FormatJSON() (string, error) {
	result := map[string]interface{}{
		"config_file": c.configFilePath,
		"attributes":  c.Attributes(),
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
