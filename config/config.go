package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values. Sensitive data has
// no in-code defaults and must come from the config file or the environment.
type AppConfig struct {
	AppPort     string
	SiteBaseURL string
	JWTSecret   string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis cache
	CacheDisabled bool
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Mail: SendGrid when the API key is set, plain SMTP otherwise
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPTLS        bool
	MailFrom       string
	MailFromName   string
	// Uploads
	UploadDir string
	// HTTP
	RateLimitPerMinute int
	AllowedOrigins     []string
	StaffUsernames     []string
	GinMode            string
	GinPath            string
	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load reads configuration once during boot. Precedence:
// config/config.json -> defaults -> environment variable overrides.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Optional .env for local development; missing file is fine.
	_ = godotenv.Load()

	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in the environment or config file")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// loadJSONConfig reads the grouped JSON file into out if present. A missing
// file is silently ignored; only invalid JSON is an error.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var raw map[string]map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	if app, ok := raw["app"]; ok {
		setString(app, "Port", &out.AppPort)
		setString(app, "SiteBaseURL", &out.SiteBaseURL)
		setString(app, "JWTSecret", &out.JWTSecret)
		setString(app, "UploadDir", &out.UploadDir)
		setInt(app, "RateLimitPerMinute", &out.RateLimitPerMinute)
		setStringSlice(app, "AllowedOrigins", &out.AllowedOrigins)
		setStringSlice(app, "StaffUsernames", &out.StaffUsernames)
		setString(app, "GinMode", &out.GinMode)
		setString(app, "GinPath", &out.GinPath)
	}
	if db, ok := raw["database"]; ok {
		setString(db, "DatabaseURI", &out.DatabaseURI)
		setString(db, "Host", &out.DBHost)
		setString(db, "Port", &out.DBPort)
		setString(db, "User", &out.DBUser)
		setString(db, "Password", &out.DBPassword)
		setString(db, "Name", &out.DBName)
	}
	if rds, ok := raw["redis"]; ok {
		setString(rds, "Host", &out.RedisHost)
		setInt(rds, "Port", &out.RedisPort)
		setInt(rds, "DB", &out.RedisDB)
		setString(rds, "Password", &out.RedisPassword)
		if v, ok := rds["Disabled"].(bool); ok {
			out.CacheDisabled = v
		}
	}
	if m, ok := raw["mail"]; ok {
		setString(m, "SendGridAPIKey", &out.SendGridAPIKey)
		setString(m, "SMTPHost", &out.SMTPHost)
		setInt(m, "SMTPPort", &out.SMTPPort)
		setString(m, "SMTPUsername", &out.SMTPUsername)
		setString(m, "SMTPPassword", &out.SMTPPassword)
		setString(m, "From", &out.MailFrom)
		setString(m, "FromName", &out.MailFromName)
		if v, ok := m["SMTPTLS"].(bool); ok {
			out.SMTPTLS = v
		}
	}
	if lg, ok := raw["log"]; ok {
		setString(lg, "Level", &out.LogLevel)
		setString(lg, "Path", &out.LogPath)
		setInt(lg, "MaxSizeMB", &out.LogMaxSizeMB)
		setInt(lg, "MaxBackups", &out.LogMaxBackups)
		setInt(lg, "MaxAgeDays", &out.LogMaxAgeDays)
		if v, ok := lg["Compress"].(bool); ok {
			out.LogCompress = v
		}
	}
	return nil
}

func setString(m map[string]any, key string, dst *string) {
	if v, ok := m[key].(string); ok && v != "" {
		*dst = v
	}
}

func setInt(m map[string]any, key string, dst *int) {
	switch v := m[key].(type) {
	case float64:
		*dst = int(v)
	case int:
		*dst = v
	}
}

func setStringSlice(m map[string]any, key string, dst *[]string) {
	arr, ok := m[key].([]any)
	if !ok {
		return
	}
	out := make([]string, 0, len(arr))
	for _, it := range arr {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.SiteBaseURL == "" {
		c.SiteBaseURL = "http://localhost:" + c.AppPort
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "journal"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.MailFromName == "" {
		c.MailFromName = "journal"
	}
	if c.UploadDir == "" {
		c.UploadDir = filepath.Join("static", "uploads")
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values.
func applyEnvOverrides(c *AppConfig) {
	overrideString("APP_PORT", &c.AppPort)
	overrideString("SITE_BASE_URL", &c.SiteBaseURL)
	overrideString("JWT_SECRET", &c.JWTSecret)
	overrideString("GIN_MODE", &c.GinMode)
	overrideString("GIN_PATH", &c.GinPath)
	overrideString("UPLOAD_DIR", &c.UploadDir)
	overrideString("DATABASE_URI", &c.DatabaseURI)
	overrideString("DB_HOST", &c.DBHost)
	overrideString("DB_PORT", &c.DBPort)
	overrideString("DB_USER", &c.DBUser)
	overrideString("DB_PASSWORD", &c.DBPassword)
	overrideString("DB_NAME", &c.DBName)
	overrideString("REDIS_HOST", &c.RedisHost)
	overrideInt("REDIS_PORT", &c.RedisPort)
	overrideInt("REDIS_DB", &c.RedisDB)
	overrideString("REDIS_PASSWORD", &c.RedisPassword)
	overrideBool("CACHE_DISABLED", &c.CacheDisabled)
	overrideString("SENDGRID_API_KEY", &c.SendGridAPIKey)
	overrideString("SMTP_HOST", &c.SMTPHost)
	overrideInt("SMTP_PORT", &c.SMTPPort)
	overrideString("SMTP_USERNAME", &c.SMTPUsername)
	overrideString("SMTP_PASSWORD", &c.SMTPPassword)
	overrideBool("SMTP_TLS", &c.SMTPTLS)
	overrideString("MAIL_FROM", &c.MailFrom)
	overrideString("MAIL_FROM_NAME", &c.MailFromName)
	overrideInt("RATE_LIMIT_PER_MINUTE", &c.RateLimitPerMinute)
	overrideList("CORS_ALLOWED_ORIGINS", &c.AllowedOrigins)
	overrideList("STAFF_USERNAMES", &c.StaffUsernames)
	overrideString("LOG_LEVEL", &c.LogLevel)
	overrideString("LOG_PATH", &c.LogPath)
	overrideInt("LOG_MAX_SIZE_MB", &c.LogMaxSizeMB)
	overrideInt("LOG_MAX_BACKUPS", &c.LogMaxBackups)
	overrideInt("LOG_MAX_AGE_DAYS", &c.LogMaxAgeDays)
	overrideBool("LOG_COMPRESS", &c.LogCompress)
}

func overrideString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s: %v", key, err)
		}
		*dst = n
	}
}

func overrideBool(key string, dst *bool) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "true" || v == "1"
	}
}

func overrideList(key string, dst *[]string) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	if len(items) > 0 {
		*dst = items
	}
}
