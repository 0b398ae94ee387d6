package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Auth          AuthConfig         `mapstructure:"auth"`
	Search        SearchConfig       `mapstructure:"search"`
	APIs          APIsConfig         `mapstructure:"apis"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	Logging       LoggingConfig      `mapstructure:"logging"`
}

type AppConfig struct {
	Name          string   `mapstructure:"name"`
	Environment   string   `mapstructure:"environment"`
	HTTPAddr      string   `mapstructure:"http_addr"`
	GRPCAddr      string   `mapstructure:"grpc_addr"`
	UploadsDir    string   `mapstructure:"uploads_dir"`
	PublicBaseURL string   `mapstructure:"public_base_url"`
	CORSOrigins   []string `mapstructure:"cors_origins"`
}

func (a AppConfig) IsProduction() bool {
	return strings.EqualFold(a.Environment, "production") || strings.EqualFold(a.Environment, "prod")
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	Database           string `mapstructure:"database"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"sslmode"`
	MaxConnections     int    `mapstructure:"max_connections"`
	MaxIdle            int    `mapstructure:"max_idle"`
	ConnMaxIdleSeconds int    `mapstructure:"conn_max_idle_seconds"`
	ConnMaxLifeSeconds int    `mapstructure:"conn_max_lifetime_seconds"`
}

// DSN returns the lib/pq key=value connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Address) != "" }

type AuthConfig struct {
	JWTSecret         string `mapstructure:"jwt_secret"`
	JWTIssuer         string `mapstructure:"jwt_issuer"`
	AccessTTLMinutes  int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLHours   int    `mapstructure:"refresh_ttl_hours"`
	GoogleUserInfoURL string `mapstructure:"google_userinfo_url"`
	CookieSecure      bool   `mapstructure:"cookie_secure"`
}

func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLMinutes) * time.Minute
}

func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLHours) * time.Hour
}

type SearchConfig struct {
	TargetCity      string  `mapstructure:"target_city"`
	TargetState     string  `mapstructure:"target_state"`
	CenterLat       float64 `mapstructure:"center_lat"`
	CenterLng       float64 `mapstructure:"center_lng"`
	RadiusKm        float64 `mapstructure:"radius_km"`
	LocalThreshold  int     `mapstructure:"local_threshold"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds"`
	SuggestionsFile string  `mapstructure:"suggestions_file"`
	FallbackSeed    int64   `mapstructure:"fallback_seed"`
}

type ProviderConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

type APIsConfig struct {
	GooglePlaces ProviderConfig `mapstructure:"google_places"`
	Overpass     ProviderConfig `mapstructure:"overpass"`
	OpenAI       ProviderConfig `mapstructure:"openai"`
	Gemini       ProviderConfig `mapstructure:"gemini"`
}

type NotificationConfig struct {
	Bus          string   `mapstructure:"bus"` // none | redis | kafka
	RedisChannel string   `mapstructure:"redis_channel"`
	KafkaBrokers []string `mapstructure:"kafka_brokers"`
	KafkaTopic   string   `mapstructure:"kafka_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads .env, an optional config.yaml and the environment, in that order
// of precedence (environment wins).
func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	if p := os.Getenv("BEASTFOOD_CONFIG"); p != "" {
		v.SetConfigFile(p)
	}

	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asConfigNotFound(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	// SetConfigFile pointing at a missing file surfaces as a path error.
	return os.IsNotExist(err)
}

func loadEnvFile() {
	for _, p := range []string{".env", "../.env", "../../.env"} {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
			return
		}
	}
	if root := findProjectRoot(); root != "" {
		_ = godotenv.Load(filepath.Join(root, ".env"))
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "beastfood")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.http_addr", ":8080")
	v.SetDefault("app.grpc_addr", ":9090")
	v.SetDefault("app.uploads_dir", "uploads")
	v.SetDefault("app.public_base_url", "http://localhost:8080")
	v.SetDefault("app.cors_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "beastfood")
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_connections", 20)
	v.SetDefault("database.postgres.max_idle", 5)
	v.SetDefault("database.postgres.conn_max_idle_seconds", 30)
	v.SetDefault("database.postgres.conn_max_lifetime_seconds", 1800)
	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "beastfood")
	v.SetDefault("auth.access_ttl_minutes", 15)
	v.SetDefault("auth.refresh_ttl_hours", 168)
	v.SetDefault("auth.google_userinfo_url", "https://www.googleapis.com/oauth2/v3/userinfo")
	v.SetDefault("auth.cookie_secure", false)

	v.SetDefault("search.target_city", "Franca")
	v.SetDefault("search.target_state", "SP")
	v.SetDefault("search.center_lat", -20.5386)
	v.SetDefault("search.center_lng", -47.4009)
	v.SetDefault("search.radius_km", 15.0)
	v.SetDefault("search.local_threshold", 3)
	v.SetDefault("search.cache_ttl_seconds", 600)
	v.SetDefault("search.suggestions_file", "")
	v.SetDefault("search.fallback_seed", 0)

	v.SetDefault("apis.google_places.api_key", "")
	v.SetDefault("apis.google_places.base_url", "https://maps.googleapis.com/maps/api/place")
	v.SetDefault("apis.google_places.timeout_ms", 10000)
	v.SetDefault("apis.overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("apis.overpass.timeout_ms", 30000)
	v.SetDefault("apis.openai.api_key", "")
	v.SetDefault("apis.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("apis.openai.model", "gpt-4o-mini")
	v.SetDefault("apis.openai.timeout_ms", 20000)
	v.SetDefault("apis.gemini.api_key", "")
	v.SetDefault("apis.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("apis.gemini.model", "gemini-1.5-flash")
	v.SetDefault("apis.gemini.timeout_ms", 20000)

	v.SetDefault("notifications.bus", "none")
	v.SetDefault("notifications.redis_channel", "beastfood:notifications")
	v.SetDefault("notifications.kafka_brokers", []string{})
	v.SetDefault("notifications.kafka_topic", "beastfood.notifications")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// overrideFromEnv honours the short variable names used by docker-compose
// files and hosting dashboards.
func overrideFromEnv(cfg *Config) {
	setIf := func(dst *string, key string) {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			*dst = val
		}
	}
	setIf(&cfg.App.Environment, "APP_ENVIRONMENT")
	setIf(&cfg.Auth.JWTSecret, "JWT_SECRET")
	setIf(&cfg.Database.Postgres.Host, "DB_HOST")
	setIf(&cfg.Database.Postgres.Database, "DB_NAME")
	setIf(&cfg.Database.Postgres.User, "DB_USER")
	setIf(&cfg.Database.Postgres.Password, "DB_PASSWORD")
	setIf(&cfg.Database.Redis.Address, "REDIS_ADDR")
	setIf(&cfg.APIs.GooglePlaces.APIKey, "GOOGLE_PLACES_API_KEY")
	setIf(&cfg.APIs.OpenAI.APIKey, "OPENAI_API_KEY")
	setIf(&cfg.APIs.Gemini.APIKey, "GEMINI_API_KEY")
}

func applyDefaults(cfg *Config) {
	if cfg.Search.LocalThreshold <= 0 {
		cfg.Search.LocalThreshold = 3
	}
	if cfg.Search.RadiusKm <= 0 {
		cfg.Search.RadiusKm = 15
	}
	if cfg.Auth.AccessTTLMinutes <= 0 {
		cfg.Auth.AccessTTLMinutes = 15
	}
	if cfg.Auth.RefreshTTLHours <= 0 {
		cfg.Auth.RefreshTTLHours = 168
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if !cfg.App.IsProduction() && cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}
	cfg.Notifications.Bus = strings.ToLower(strings.TrimSpace(cfg.Notifications.Bus))
	if cfg.Notifications.Bus == "" {
		cfg.Notifications.Bus = "none"
	}
}

func validate(cfg *Config) error {
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required in %s", cfg.App.Environment)
	}
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	switch cfg.Notifications.Bus {
	case "none":
	case "redis":
		if !cfg.Database.Redis.Enabled() {
			return fmt.Errorf("notifications.bus=redis requires database.redis.address")
		}
	case "kafka":
		if len(cfg.Notifications.KafkaBrokers) == 0 {
			return fmt.Errorf("notifications.bus=kafka requires notifications.kafka_brokers")
		}
	default:
		return fmt.Errorf("unknown notifications.bus %q", cfg.Notifications.Bus)
	}
	return nil
}
