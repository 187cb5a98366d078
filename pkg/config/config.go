package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "BAZAR"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "BAZAR_DB_DSN"
	EnvDBHost = "BAZAR_DB_HOST"
	EnvDBUser = "BAZAR_DB_USER"
	EnvDBName = "BAZAR_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Seller        SellerConfig
	Referral      ReferralConfig
	History       HistoryConfig
	LLM           LLMConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"BAZAR_APP_ENV" required:"true"`
	Port         string `envconfig:"BAZAR_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"BAZAR_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"BAZAR_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"BAZAR_DB_DSN"`
	Driver string `envconfig:"BAZAR_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"BAZAR_DB_HOST"`
	LegacyPort     int    `envconfig:"BAZAR_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"BAZAR_DB_USER"`
	LegacyPassword string `envconfig:"BAZAR_DB_PASSWORD"`
	LegacyName     string `envconfig:"BAZAR_DB_NAME"`
	LegacySSLMode  string `envconfig:"BAZAR_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"BAZAR_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"BAZAR_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"BAZAR_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"BAZAR_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"BAZAR_REDIS_URL" required:"true"`
	Address      string        `envconfig:"BAZAR_REDIS_ADDR"`
	Password     string        `envconfig:"BAZAR_REDIS_PASSWORD"`
	DB           int           `envconfig:"BAZAR_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"BAZAR_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"BAZAR_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"BAZAR_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"BAZAR_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"BAZAR_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"BAZAR_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"BAZAR_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"BAZAR_JWT_EXPIRATION_MINUTES" required:"true"`
	SessionTTLMinutes int    `envconfig:"BAZAR_SESSION_TTL_MINUTES" default:"43200"`
}

// SessionTTL returns the server-side session TTL configured in minutes.
func (j JWTConfig) SessionTTL() time.Duration {
	if j.SessionTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.SessionTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"BAZAR_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"BAZAR_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"BAZAR_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"BAZAR_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"BAZAR_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow      time.Duration `envconfig:"BAZAR_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit  int           `envconfig:"BAZAR_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit     int           `envconfig:"BAZAR_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	SignupWindow     time.Duration `envconfig:"BAZAR_AUTH_RATE_LIMIT_SIGNUP_WINDOW" default:"5m"`
	SignupEmailLimit int           `envconfig:"BAZAR_AUTH_RATE_LIMIT_SIGNUP_EMAIL_LIMIT" default:"3"`
	SignupIPLimit    int           `envconfig:"BAZAR_AUTH_RATE_LIMIT_SIGNUP_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"BAZAR_AUTO_MIGRATE" default:"false"`
	SeedCatalog bool `envconfig:"BAZAR_SEED_CATALOG" default:"false"`
}

// SellerConfig stands in for a per-seller lookup until sellers are
// modelled as first-class records. Defaults point at the Maputo store.
type SellerConfig struct {
	ID        string  `envconfig:"BAZAR_SELLER_ID" default:"bazar-maputo"`
	Latitude  float64 `envconfig:"BAZAR_SELLER_LATITUDE" default:"-25.9653"`
	Longitude float64 `envconfig:"BAZAR_SELLER_LONGITUDE" default:"32.5892"`
	RatePerKm string  `envconfig:"BAZAR_SELLER_RATE_PER_KM" default:"15"`
}

type ReferralConfig struct {
	BonusAmount string `envconfig:"BAZAR_REFERRAL_BONUS" default:"100"`
	CodeLength  int    `envconfig:"BAZAR_REFERRAL_CODE_LENGTH" default:"8"`
}

type HistoryConfig struct {
	MaxEntries int `envconfig:"BAZAR_HISTORY_MAX_ENTRIES" default:"6"`
}

type LLMConfig struct {
	APIKey  string        `envconfig:"BAZAR_LLM_API_KEY"`
	BaseURL string        `envconfig:"BAZAR_LLM_BASE_URL" default:"https://api.openai.com/v1"`
	Model   string        `envconfig:"BAZAR_LLM_MODEL" default:"gpt-4o-mini"`
	Timeout time.Duration `envconfig:"BAZAR_LLM_TIMEOUT" default:"30s"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"BAZAR_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"BAZAR_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"BAZAR_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic    string `envconfig:"BAZAR_PUBSUB_ORDERS_TOPIC" default:"bazar-order-events"`
	ReferralsTopic string `envconfig:"BAZAR_PUBSUB_REFERRALS_TOPIC" default:"bazar-referral-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"BAZAR_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"BAZAR_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"BAZAR_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
