package main

import (
	"time"

	"github.com/zenGate-Global/freightdesk/platform/go/persistence"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"json"` // json | console
	Version         string        `env:"K_REVISION"`

	AuthProvider           string `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | dev
	FirebaseCredentialFile string `env:"FIREBASE_CREDENTIALS_FILE"`
	FirebaseProjectID      string `env:"FIREBASE_PROJECT_ID"`

	StoreBackend      string `env:"STORE_BACKEND" envDefault:"postgres"` // postgres | firestore | memory
	DatabaseURL       string `env:"DATABASE_URL"`
	DatabaseSchema    string `env:"DATABASE_SCHEMA" envDefault:"freightdesk"`
	DatabaseBootstrap bool   `env:"DATABASE_BOOTSTRAP" envDefault:"false"`

	DatabaseMaxConns         int32         `env:"DATABASE_MAX_CONNS" envDefault:"0"`
	DatabaseStatementTimeout time.Duration `env:"DATABASE_STATEMENT_TIMEOUT" envDefault:"10s"`
	DatabaseConnectAttempts  int           `env:"DATABASE_CONNECT_ATTEMPTS" envDefault:"5"`

	StorageBackend  string `env:"STORAGE_BACKEND" envDefault:"local"` // gcs | local
	StorageBucket   string `env:"STORAGE_BUCKET"`
	StorageLocalDir string `env:"STORAGE_LOCAL_DIR" envDefault:"./.data/storage"`
	MaxUploadBytes  int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	PreferencesBackend string `env:"PREFERENCES_BACKEND" envDefault:"memory"` // redis | memory
	RedisURL           string `env:"REDIS_URL"`

	DemoEmailPattern string        `env:"DEMO_EMAIL_PATTERN"`
	DemoTenantID     string        `env:"DEMO_TENANT_ID" envDefault:"demo-tenant"`
	TenantCacheTTL   time.Duration `env:"TENANT_CACHE_TTL" envDefault:"1m"`

	RateLimitRPS   float64  `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int      `env:"RATE_LIMIT_BURST" envDefault:"40"`
	CORSOrigins    []string `env:"CORS_ORIGINS" envSeparator:","`
}

func (c config) poolConfig() persistence.PoolConfig {
	return persistence.PoolConfig{
		ConnString:       c.DatabaseURL,
		ApplicationName:  "freightdesk-api",
		Schema:           c.DatabaseSchema,
		StatementTimeout: c.DatabaseStatementTimeout,
		MaxConns:         c.DatabaseMaxConns,
		ConnectAttempts:  c.DatabaseConnectAttempts,
		ConnectBackoff:   2 * time.Second,
	}
}
