// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on hosts without a zoneinfo database

	"github.com/barbearia/calendario/internal/app/system/middleware"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// DefaultPort is used when PORT is absent or not a valid TCP port.
const DefaultPort = 3000

// appConfigKeys are read through waffle's loader with no env prefix, so
// each key is its upper-case environment variable (port -> PORT) and a
// --flag of the same name. Precedence: flags, environment, .env,
// config.{toml,yaml,json}, these defaults.
//
// Defaults are strings: waffle hands environment values back as strings
// whatever the default's type, so everything is parsed here.
var appConfigKeys = []config.AppKey{
	{Name: "port", Default: strconv.Itoa(DefaultPort), Desc: "HTTP listen port"},
	{Name: "node_env", Default: "development", Desc: "Deployment environment label shown by /status; production switches to JSON logs"},

	{Name: "jwt_secret", Default: "", Desc: "HMAC secret for bearer tokens (authenticated routes answer 500 when blank)"},
	{Name: "jwt_expiry", Default: "24h", Desc: "Bearer token lifetime"},

	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "calendario", Desc: "MongoDB database name"},
	{Name: "mongo_connect_timeout", Default: "10s", Desc: "Bound on the initial connect and ping"},
	{Name: "db_fail_fast", Default: "false", Desc: "Abort startup when MongoDB or Redis is unreachable"},

	{Name: "cors_origins", Default: strings.Join(middleware.DefaultOrigins, ","), Desc: "Comma-separated allowed origins, or * for any origin without credentials"},
	{Name: "request_timeout", Default: "15s", Desc: "Per-request deadline"},
	{Name: "body_limit", Default: strconv.FormatInt(middleware.DefaultBodyLimit, 10), Desc: "Maximum request body in bytes"},

	{Name: "log_startup_diagnostics", Default: "false", Desc: "Log which settings are present at startup (never their values)"},

	{Name: "redis_url", Default: "", Desc: "Redis URL for token revocation (blank keeps it in memory)"},
	{Name: "metrics_enabled", Default: "true", Desc: "Expose Prometheus metrics on /metrics"},

	{Name: "business_open", Default: "09:00", Desc: "Opening time, HH:MM"},
	{Name: "business_close", Default: "19:00", Desc: "Closing time, HH:MM"},
	{Name: "slot_minutes", Default: "30", Desc: "Availability slot granularity in minutes"},
	{Name: "timezone", Default: "America/Sao_Paulo", Desc: "IANA time zone of the business day"},
}

// LoadConfig loads waffle's core config together with AppConfig and maps
// the API's own variables onto the core keys waffle acts on: PORT onto
// the HTTP port, NODE_ENV onto dev/prod logging, LOG_LEVEL onto the log
// level and BODY_LIMIT onto the request body cap.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	LoadDotEnv(logger)
	bridgeLogLevel()

	// waffle logs every app value at Info and only redacts names that look
	// like secrets; MONGO_URI and REDIS_URL can carry credentials.
	quiet := logger.WithOptions(zap.IncreaseLevel(zap.WarnLevel))
	coreCfg, values, err := config.LoadWithAppConfig(quiet, "", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	cfg := appConfigFrom(values, logger)
	applyToCore(coreCfg, &cfg)
	return coreCfg, cfg, nil
}

// LoadDotEnv loads a .env file from the working directory into the process
// environment. A missing file is normal; variables already set win.
func LoadDotEnv(logger *zap.Logger, files ...string) {
	if err := godotenv.Load(files...); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			logger.Debug("no .env file found, using environment and defaults")
			return
		}
		logger.Warn("failed to load .env file", zap.Error(err))
	}
}

// bridgeLogLevel feeds LOG_LEVEL to waffle, which reads WAFFLE_LOG_LEVEL
// and defaults to debug. An explicit WAFFLE_LOG_LEVEL wins.
func bridgeLogLevel() {
	if _, ok := os.LookupEnv("WAFFLE_LOG_LEVEL"); ok {
		return
	}
	level := strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if level == "" {
		level = "info"
	}
	_ = os.Setenv("WAFFLE_LOG_LEVEL", level)
}

// applyToCore copies the settings waffle's server and logger read from
// the core config.
func applyToCore(core *config.CoreConfig, cfg *AppConfig) {
	core.HTTP.HTTPPort = cfg.Port
	if _, ok := os.LookupEnv("WAFFLE_ENV"); !ok {
		core.Env = "dev"
		if cfg.Env == "production" {
			core.Env = "prod"
		}
	}
	core.MaxRequestBodyBytes = cfg.BodyLimit
	core.DBConnectTimeout = cfg.MongoConnectTimeout
	cfg.LogLevel = strings.ToLower(core.LogLevel)
}

// appConfigFrom builds AppConfig from loaded values. Malformed values fall
// back to their defaults with a warning; only ValidateConfig rejects a
// config.
func appConfigFrom(values config.AppConfigValues, logger *zap.Logger) AppConfig {
	p := valueParser{values: values, log: logger}
	cfg := AppConfig{
		Port: p.port(),
		Env:  p.str("node_env"),

		JWTSecret: raw(values, "jwt_secret"),
		JWTExpiry: p.duration("jwt_expiry", 24*time.Hour),

		MongoURI:            p.str("mongo_uri"),
		MongoDatabase:       p.str("mongo_database"),
		MongoConnectTimeout: p.duration("mongo_connect_timeout", 10*time.Second),
		DBFailFast:          p.boolean("db_fail_fast", false),

		CORSOrigins:    raw(values, "cors_origins"),
		RequestTimeout: p.duration("request_timeout", 15*time.Second),
		BodyLimit:      p.int64("body_limit", middleware.DefaultBodyLimit),

		LogLevel:              "info",
		LogStartupDiagnostics: p.boolean("log_startup_diagnostics", false),

		RedisURL:       p.str("redis_url"),
		MetricsEnabled: p.boolean("metrics_enabled", true),

		BusinessOpen:  p.str("business_open"),
		BusinessClose: p.str("business_close"),
		SlotMinutes:   int(p.int64("slot_minutes", 30)),
		Timezone:      p.str("timezone"),
	}

	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.MongoDatabase == "" {
		cfg.MongoDatabase = "calendario"
	}
	cfg.CORS = middleware.ParseCORSPolicy(cfg.CORSOrigins)
	return cfg
}

// raw returns the value for key as text. Config files can yield ints and
// bools where the environment yields strings.
func raw(values config.AppConfigValues, key string) string {
	switch v := values[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

type valueParser struct {
	values config.AppConfigValues
	log    *zap.Logger
}

func (p valueParser) str(key string) string {
	return strings.TrimSpace(raw(p.values, key))
}

func (p valueParser) invalid(key, value string, def any) {
	p.log.Warn("invalid "+strings.ToUpper(key)+", using default",
		zap.String("value", value),
		zap.Any("default", def))
}

// port reads PORT, falling back to DefaultPort when it is absent, not a
// number or outside 1..65535.
func (p valueParser) port() int {
	s := p.str("port")
	if s == "" {
		return DefaultPort
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > 65535 {
		p.invalid("port", s, DefaultPort)
		return DefaultPort
	}
	return n
}

// duration accepts Go durations ("90s") and plain seconds ("90").
func (p valueParser) duration(key string, def time.Duration) time.Duration {
	s := p.str(key)
	if s == "" {
		return def
	}
	d := p.values.Duration(key, 0)
	if d <= 0 {
		p.invalid(key, s, def)
		return def
	}
	return d
}

func (p valueParser) boolean(key string, def bool) bool {
	s := p.str(key)
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		p.invalid(key, s, def)
		return def
	}
	return b
}

func (p valueParser) int64(key string, def int64) int64 {
	s := p.str(key)
	if s == "" {
		return def
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		p.invalid(key, s, def)
		return def
	}
	return n
}

// ValidateConfig rejects configs that cannot work at all. A blank
// JWT_SECRET is allowed: the server still boots and authenticated routes
// report that authentication is not configured.
func ValidateConfig(_ *config.CoreConfig, cfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(cfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if _, err := cfg.SlotFinder(); err != nil {
		return fmt.Errorf("invalid agenda settings: %w", err)
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set; authenticated routes will answer 500")
	}
	return nil
}

// logStartupDiagnostics reports which settings are present. It never logs
// a secret or a connection string.
func logStartupDiagnostics(cfg AppConfig, logger *zap.Logger) {
	logger.Info("startup diagnostics",
		zap.Int("port", cfg.Port),
		zap.String("env", cfg.Env),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("jwt_secret_set", cfg.JWTSecret != ""),
		zap.Bool("mongo_uri_set", cfg.MongoURI != ""),
		zap.Bool("redis_url_set", cfg.RedisURL != ""),
		zap.String("cors", cfg.CORS.String()),
		zap.Bool("db_fail_fast", cfg.DBFailFast),
		zap.Bool("metrics_enabled", cfg.MetricsEnabled))
}
