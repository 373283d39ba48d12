package config

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type CacheType string

const (
	CacheTypeMemory CacheType = "memory"
	CacheTypeRedis  CacheType = "redis"
)

type DatabaseDriver string

const (
	DatabaseDriverSQLite   DatabaseDriver = "sqlite"
	DatabaseDriverPostgres DatabaseDriver = "postgres"
)

// MaxPasswordLength is the longest password bcrypt accepts.
const MaxPasswordLength = 72

// Config holds the configuration for the Gradebook server and its dependencies.
type Config struct {
	// Listen is the address the Gradebook server will listen on.
	Listen string `yaml:"listen" mapstructure:"listen"`
	// ServerURL is the base URL of the Gradebook server.
	ServerURL string `yaml:"server_url" mapstructure:"server_url"`
	// SessionKey is the key used to sign session cookies.
	SessionKey string `yaml:"session_key" mapstructure:"session_key"`
	// SessionMaxAge is the maximum age of a session in seconds.
	SessionMaxAge int `yaml:"session_max_age" mapstructure:"session_max_age"`
	// SecureCookies marks the session cookie as https only.
	SecureCookies bool `yaml:"secure_cookies" mapstructure:"secure_cookies"`
	// Database holds the database configuration.
	Database *DatabaseConfig `yaml:"database" mapstructure:"database"`
	// Cache holds the summary cache configuration.
	Cache *CacheConfig `yaml:"cache" mapstructure:"cache"`
	// Password holds the password policy.
	Password *PasswordConfig `yaml:"password" mapstructure:"password"`
	// Grading holds the grade computation settings.
	Grading *GradingConfig `yaml:"grading" mapstructure:"grading"`
	// Audit holds the configuration of the scheduled weight audit.
	Audit *AuditConfig `yaml:"audit" mapstructure:"audit"`
	// Gravatar holds the configuration for Gravatar profile pictures.
	Gravatar *GravatarConfig `yaml:"gravatar" mapstructure:"gravatar"`
	// Email holds the email notification configuration.
	Email *EmailConfig `yaml:"email" mapstructure:"email"`
}

// DatabaseConfig holds the database configuration.
type DatabaseConfig struct {
	// Driver selects the database backend ("sqlite" or "postgres").
	Driver DatabaseDriver `yaml:"driver" mapstructure:"driver"`
	// Path is the path to the sqlite database file.
	Path string `yaml:"path" mapstructure:"path"`
	// DSN is the postgres connection string.
	DSN string `yaml:"dsn" mapstructure:"dsn"`
}

// CacheConfig holds the configuration for the cache engine.
type CacheConfig struct {
	// Type is the type of cache engine to use (e.g., "memory", "redis").
	Type CacheType `yaml:"type" mapstructure:"type"`
	// RedisURL is the address of the Redis server if using Redis.
	RedisURL string `yaml:"redis_url" mapstructure:"redis_url"`
	// TTL is the lifetime of a cached course summary in seconds.
	TTL int `yaml:"ttl" mapstructure:"ttl"`
}

// PasswordConfig holds the password policy.
type PasswordConfig struct {
	// MinLength is the minimum accepted password length.
	MinLength int `yaml:"min_length" mapstructure:"min_length"`
	// BcryptCost is the bcrypt work factor used for new hashes.
	BcryptCost int `yaml:"bcrypt_cost" mapstructure:"bcrypt_cost"`
}

// GradingConfig holds the grade computation settings.
type GradingConfig struct {
	// WeightTolerance is the allowed deviation when checking that weights add up to 1.
	WeightTolerance float64 `yaml:"weight_tolerance" mapstructure:"weight_tolerance"`
}

// AuditConfig holds the configuration of the weight audit job.
type AuditConfig struct {
	// Enabled indicates whether the audit job is scheduled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Schedule is the cron expression of the audit job.
	Schedule string `yaml:"schedule" mapstructure:"schedule"`
	// RunOnStart triggers one audit run right after the server started.
	RunOnStart bool `yaml:"run_on_start" mapstructure:"run_on_start"`
}

// GravatarConfig holds the configuration for Gravatar profile pictures.
type GravatarConfig struct {
	// Enabled indicates whether Gravatar support is enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// DefaultImage is the default image to use when no Gravatar is found.
	// Valid values: "404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank"
	DefaultImage string `yaml:"default_image" mapstructure:"default_image"`
	// Rating is the maximum rating for Gravatar images.
	// Valid values: "g", "pg", "r", "x"
	Rating string `yaml:"rating" mapstructure:"rating"`
	// Size is the size of the Gravatar image in pixels (1-2048).
	Size int `yaml:"size" mapstructure:"size"`
}

// EmailConfig holds the email notification configuration.
type EmailConfig struct {
	// Enabled indicates whether email notifications are enabled.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// SMTPHost is the SMTP server host.
	SMTPHost string `yaml:"smtp_host" mapstructure:"smtp_host"`
	// SMTPPort is the SMTP server port.
	SMTPPort int `yaml:"smtp_port" mapstructure:"smtp_port"`
	// Username is the SMTP username.
	Username string `yaml:"username" mapstructure:"username"`
	// Password is the SMTP password.
	Password string `yaml:"password" mapstructure:"password"`
	// FromEmail is the email address from which notifications are sent.
	FromEmail string `yaml:"from_email" mapstructure:"from_email"`
	// FromName is the name from which notifications are sent.
	FromName string `yaml:"from_name" mapstructure:"from_name"`
	// UseTLS indicates whether to use STARTTLS for the SMTP connection.
	UseTLS bool `yaml:"use_tls" mapstructure:"use_tls"`
	// UseSSL indicates whether to use implicit TLS for the SMTP connection.
	UseSSL bool `yaml:"use_ssl" mapstructure:"use_ssl"`
	// InsecureSkipVerify indicates whether to skip TLS certificate verification.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" mapstructure:"insecure_skip_verify"`
}

// Load reads the configuration from the specified path and returns a Config struct.
// If path is empty, it will use default search paths for config files.
// A missing config file is not an error, defaults and env vars are used instead.
func Load(path string) (*Config, error) {
	v := viper.New()

	bindNestedEnv(v)
	setDefaults(v)

	v.SetConfigType("yaml")
	v.SetEnvPrefix("GRADEBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var configFileFound bool
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.gradebook")
		v.AddConfigPath("/etc/gradebook")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		configFileFound = true
	}

	if configFileFound {
		log.Debug("Using config file", "file", v.ConfigFileUsed())
		log.Debug("Environment variables with the GRADEBOOK_ prefix override config file values")
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	sanitizeConfig(&c)

	if err := validateConfig(&c); err != nil {
		return nil, err
	}

	return &c, nil
}

// setDefaults sets default values for the configuration.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", "0.0.0.0:3003")
	v.SetDefault("server_url", "http://localhost:3003")
	v.SetDefault("session_max_age", 172800) // 48 hours
	v.SetDefault("session_key", "")
	v.SetDefault("secure_cookies", false)

	v.SetDefault("database.driver", DatabaseDriverSQLite)
	v.SetDefault("database.path", "./data/gradebook.db")

	v.SetDefault("cache.type", CacheTypeMemory)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", 600)

	v.SetDefault("password.min_length", 8)
	v.SetDefault("password.bcrypt_cost", bcrypt.DefaultCost)

	v.SetDefault("grading.weight_tolerance", 0.001)

	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.schedule", "0 3 * * *") // every night at 3
	v.SetDefault("audit.run_on_start", false)

	v.SetDefault("gravatar.enabled", false)
	v.SetDefault("gravatar.default_image", "robohash")
	v.SetDefault("gravatar.rating", "g")
	v.SetDefault("gravatar.size", 80)

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.smtp_host", "")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from_email", "")
	v.SetDefault("email.from_name", "Gradebook")
	v.SetDefault("email.use_tls", true)
	v.SetDefault("email.use_ssl", false)
	v.SetDefault("email.insecure_skip_verify", false)
}

// the auto env function from viper only works for keys viper already knows about.
// The dsn has no default on purpose, so the env var is bound manually.
func bindNestedEnv(v *viper.Viper) {
	v.MustBindEnv("database.dsn", "GRADEBOOK_DATABASE_DSN")
}

// validateConfig validates the configuration.
func validateConfig(c *Config) error {
	if c == nil {
		return fmt.Errorf("missing gradebook config")
	}

	if c.SessionKey == "" {
		return fmt.Errorf("session key is required")
	}

	if c.SessionMaxAge <= 0 {
		return fmt.Errorf("session max age must be greater than 0")
	}

	if c.Database == nil {
		return fmt.Errorf("missing database config")
	}
	switch c.Database.Driver {
	case DatabaseDriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required when using sqlite")
		}
	case DatabaseDriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database dsn is required when using postgres")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Cache != nil {
		if c.Cache.Type == "" {
			return fmt.Errorf("cache type is required when cache is enabled")
		}
		if c.Cache.Type != CacheTypeMemory && c.Cache.Type != CacheTypeRedis {
			return fmt.Errorf("unknown cache type %q", c.Cache.Type)
		}
		if c.Cache.Type == CacheTypeRedis && c.Cache.RedisURL == "" {
			return fmt.Errorf("Redis URL is required when Redis cache is enabled") //nolint:staticcheck
		}
	} else {
		c.Cache = &CacheConfig{Type: CacheTypeMemory}
	}

	if c.Password == nil {
		return fmt.Errorf("missing password config")
	}
	if c.Password.MinLength < 1 || c.Password.MinLength > MaxPasswordLength {
		return fmt.Errorf("password min length must be between 1 and %d", MaxPasswordLength)
	}
	if c.Password.BcryptCost < bcrypt.MinCost || c.Password.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}

	if c.Grading == nil {
		c.Grading = &GradingConfig{WeightTolerance: 0.001}
	}
	if c.Grading.WeightTolerance < 0 {
		return fmt.Errorf("weight tolerance must not be negative")
	}

	if c.Audit != nil && c.Audit.Enabled {
		// Basic validation for cron format (5 fields)
		if len(strings.Fields(c.Audit.Schedule)) != 5 {
			return fmt.Errorf("audit schedule must be a valid cron expression with 5 fields (minute hour day month weekday)")
		}
	}

	if c.Gravatar != nil && c.Gravatar.Enabled {
		if !isValidDefaultImage(c.Gravatar.DefaultImage) {
			return fmt.Errorf("invalid gravatar default image %q", c.Gravatar.DefaultImage)
		}
		if !isValidRating(c.Gravatar.Rating) {
			return fmt.Errorf("invalid gravatar rating %q", c.Gravatar.Rating)
		}
		if c.Gravatar.Size < 1 || c.Gravatar.Size > 2048 {
			return fmt.Errorf("gravatar size must be between 1 and 2048")
		}
	}

	if c.Email != nil && c.Email.Enabled {
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("SMTP host is required when email is enabled") //nolint:staticcheck
		}
		if c.Email.FromEmail == "" {
			return fmt.Errorf("from email is required when email is enabled")
		}
	}

	return nil
}

// sanitizeConfig sanitizes the configuration values.
func sanitizeConfig(c *Config) {
	if c == nil {
		return
	}

	c.Listen = urlSanitize(c.Listen)

	if c.ServerURL != "" {
		c.ServerURL = urlSanitize(c.ServerURL)
	}

	if c.Database != nil {
		c.Database.Driver = DatabaseDriver(strings.ToLower(strings.TrimSpace(string(c.Database.Driver))))
	}

	if c.Cache != nil {
		c.Cache.Type = CacheType(strings.ToLower(strings.TrimSpace(string(c.Cache.Type))))
	}
}

func urlSanitize(url string) string {
	return strings.TrimSuffix(strings.TrimSpace(url), "/")
}

func isValidDefaultImage(defaultImage string) bool {
	switch defaultImage {
	case "", "404", "mp", "identicon", "monsterid", "wavatar", "retro", "robohash", "blank":
		return true
	}
	return false
}

func isValidRating(rating string) bool {
	switch rating {
	case "", "g", "pg", "r", "x":
		return true
	}
	return false
}
