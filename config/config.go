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

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort            string
	JWTSecret          string
	TokenTTLHours      int
	RateLimitPerMinute int
	AllowedOrigins     []string
	// Registration throttling per client IP
	RegisterCooldownSec    int
	RegisterMaxPerIPPerDay int
	// Database
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Redis for caching and token revocation
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Feed behaviour
	FeedPageSize           int
	TrendingLimit          int
	TrendingLikesThreshold int
	TrendingRefreshMinutes int
	PostRewardPoints       int
	ResponseRewardPoints   int
	// Client side: the backend endpoint and the public API key
	APIURL string
	APIKey string
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> .env -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Printf("invalid config/config.json: %v", err)
	}

	applyDefaults(&cfg)

	// .env only fills variables that are not already set in the process environment
	envFile := getEnv("ENV_FILE", ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			log.Printf("failed to load %s: %v", envFile, err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
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

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads JSON file into cfg if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	dec := json.NewDecoder(f)
	if err := dec.Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			case json.Number:
				i, _ := t.Int64()
				return int(i)
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if v, ok := m[key]; ok {
			if arr, ok := v.([]any); ok {
				res := make([]string, 0, len(arr))
				for _, it := range arr {
					if s, ok := it.(string); ok {
						res = append(res, s)
					}
				}
				return res
			}
		}
		return nil
	}

	applyApp := func(m map[string]any) {
		if v := getString(m, "AppPort"); v != "" {
			out.AppPort = v
		}
		if v := getString(m, "JWTSecret"); v != "" {
			out.JWTSecret = v
		}
		if v := getInt(m, "TokenTTLHours"); v != 0 {
			out.TokenTTLHours = v
		}
		if v := getInt(m, "RateLimitPerMinute"); v != 0 {
			out.RateLimitPerMinute = v
		}
		if v := getInt(m, "RegisterCooldownSec"); v != 0 {
			out.RegisterCooldownSec = v
		}
		if v := getInt(m, "RegisterMaxPerIPPerDay"); v != 0 {
			out.RegisterMaxPerIPPerDay = v
		}
		if list := getStringSlice(m, "AllowedOrigins"); len(list) > 0 {
			out.AllowedOrigins = list
		}
		if v := getString(m, "GinMode"); v != "" {
			out.GinMode = v
		}
		if v := getString(m, "GinPath"); v != "" {
			out.GinPath = v
		}
	}
	applyDatabase := func(m map[string]any) {
		if v := getString(m, "DBDriver"); v != "" {
			out.DBDriver = v
		}
		if v := getString(m, "DatabaseURI"); v != "" {
			out.DatabaseURI = v
		}
		if v := getString(m, "DBHost"); v != "" {
			out.DBHost = v
		}
		if v := getString(m, "DBPort"); v != "" {
			out.DBPort = v
		}
		if v := getString(m, "DBUser"); v != "" {
			out.DBUser = v
		}
		if v := getString(m, "DBPassword"); v != "" {
			out.DBPassword = v
		}
		if v := getString(m, "DBName"); v != "" {
			out.DBName = v
		}
	}
	applyRedis := func(m map[string]any) {
		if v := getString(m, "RedisHost"); v != "" {
			out.RedisHost = v
		}
		if v := getInt(m, "RedisPort"); v != 0 {
			out.RedisPort = v
		}
		if v := getInt(m, "RedisDB"); v != 0 {
			out.RedisDB = v
		}
		if v := getString(m, "RedisPassword"); v != "" {
			out.RedisPassword = v
		}
	}
	applyLog := func(m map[string]any) {
		if v := getString(m, "LogLevel"); v != "" {
			out.LogLevel = v
		}
		if v := getString(m, "LogPath"); v != "" {
			out.LogPath = v
		}
		if v := getInt(m, "LogMaxSizeMB"); v != 0 {
			out.LogMaxSizeMB = v
		}
		if v := getInt(m, "LogMaxBackups"); v != 0 {
			out.LogMaxBackups = v
		}
		if v := getInt(m, "LogMaxAgeDays"); v != 0 {
			out.LogMaxAgeDays = v
		}
		if getBool(m, "LogCompress") {
			out.LogCompress = true
		}
	}
	applyFeed := func(m map[string]any) {
		if v := getInt(m, "FeedPageSize"); v != 0 {
			out.FeedPageSize = v
		}
		if v := getInt(m, "TrendingLimit"); v != 0 {
			out.TrendingLimit = v
		}
		if v := getInt(m, "TrendingLikesThreshold"); v != 0 {
			out.TrendingLikesThreshold = v
		}
		if v := getInt(m, "TrendingRefreshMinutes"); v != 0 {
			out.TrendingRefreshMinutes = v
		}
		if v := getInt(m, "PostRewardPoints"); v != 0 {
			out.PostRewardPoints = v
		}
		if v := getInt(m, "ResponseRewardPoints"); v != 0 {
			out.ResponseRewardPoints = v
		}
	}
	applyClient := func(m map[string]any) {
		if v := getString(m, "APIURL"); v != "" {
			out.APIURL = v
		}
		if v := getString(m, "APIKey"); v != "" {
			out.APIKey = v
		}
	}

	// Grouped sections first, flat keys as a fallback
	grouped := false
	sections := []struct {
		name  string
		apply func(map[string]any)
	}{
		{"app", applyApp},
		{"database", applyDatabase},
		{"redis", applyRedis},
		{"log", applyLog},
		{"feed", applyFeed},
		{"client", applyClient},
	}
	for _, s := range sections {
		if m, ok := raw[s.name].(map[string]any); ok {
			s.apply(m)
			grouped = true
		}
	}
	if !grouped {
		for _, s := range sections {
			s.apply(raw)
		}
	}
	return nil
}

func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.TokenTTLHours == 0 {
		c.TokenTTLHours = 72
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 120
	}
	// negative values disable registration throttling
	if c.RegisterCooldownSec == 0 {
		c.RegisterCooldownSec = 10
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 5
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		if c.DBDriver == "postgres" {
			c.DBPort = "5432"
		} else {
			c.DBPort = "3306"
		}
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "teatime"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
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
	if c.FeedPageSize == 0 {
		c.FeedPageSize = 20
	}
	if c.TrendingLimit == 0 {
		c.TrendingLimit = 10
	}
	if c.TrendingLikesThreshold == 0 {
		c.TrendingLikesThreshold = 25
	}
	if c.TrendingRefreshMinutes == 0 {
		c.TrendingRefreshMinutes = 10
	}
	if c.PostRewardPoints == 0 {
		c.PostRewardPoints = 10
	}
	if c.ResponseRewardPoints == 0 {
		c.ResponseRewardPoints = 5
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("TOKEN_TTL_HOURS", ""); v != "" {
		c.TokenTTLHours = mustParseInt(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("REGISTER_COOLDOWN_SEC", ""); v != "" {
		c.RegisterCooldownSec = mustParseInt(v)
	}
	if v := getEnv("REGISTER_MAX_PER_IP_PER_DAY", ""); v != "" {
		c.RegisterMaxPerIPPerDay = mustParseInt(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = readListEnv("CORS_ALLOWED_ORIGINS", c.AllowedOrigins)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DB_DRIVER", ""); v != "" {
		c.DBDriver = strings.ToLower(v)
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
	if v := getEnv("FEED_PAGE_SIZE", ""); v != "" {
		c.FeedPageSize = mustParseInt(v)
	}
	if v := getEnv("TRENDING_LIMIT", ""); v != "" {
		c.TrendingLimit = mustParseInt(v)
	}
	if v := getEnv("TRENDING_LIKES_THRESHOLD", ""); v != "" {
		c.TrendingLikesThreshold = mustParseInt(v)
	}
	if v := getEnv("TRENDING_REFRESH_MINUTES", ""); v != "" {
		c.TrendingRefreshMinutes = mustParseInt(v)
	}
	if v := getEnv("POST_REWARD_POINTS", ""); v != "" {
		c.PostRewardPoints = mustParseInt(v)
	}
	if v := getEnv("RESPONSE_REWARD_POINTS", ""); v != "" {
		c.ResponseRewardPoints = mustParseInt(v)
	}
	if v := getEnv("TEATIME_API_URL", ""); v != "" {
		c.APIURL = v
	}
	if v := getEnv("TEATIME_API_KEY", ""); v != "" {
		c.APIKey = v
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
