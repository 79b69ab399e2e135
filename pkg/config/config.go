package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App    AppConfig
	Ledger LedgerConfig
	Redis  RedisConfig
	Sync   SyncConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Ledger.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"PARKRWA_APP_ENV" required:"true"`
	Port         string `envconfig:"PARKRWA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PARKRWA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PARKRWA_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"PARKRWA_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// LedgerConfig selects the target network and identifies the parking program.
// PackageID and LotID are threaded explicitly into the synchronizer and the
// transaction builders; nothing reads them ambiently.
type LedgerConfig struct {
	Network        string        `envconfig:"PARKRWA_LEDGER_NETWORK" default:"testnet"`
	RPCURL         string        `envconfig:"PARKRWA_LEDGER_RPC_URL"`
	PackageID      string        `envconfig:"PARKRWA_LEDGER_PACKAGE_ID"`
	LotID          string        `envconfig:"PARKRWA_LEDGER_LOT_ID"`
	RequestTimeout time.Duration `envconfig:"PARKRWA_LEDGER_REQUEST_TIMEOUT" default:"10s"`
	EventPageLimit int           `envconfig:"PARKRWA_LEDGER_EVENT_PAGE_LIMIT" default:"50"`
}

var networkRPCURLs = map[string]string{
	NetworkMainnet:  "https://api.mainnet.iota.cafe",
	NetworkTestnet:  "https://api.testnet.iota.cafe",
	NetworkDevnet:   "https://api.devnet.iota.cafe",
	NetworkLocalnet: "http://127.0.0.1:9000",
}

func (l LedgerConfig) validate() error {
	if l.RPCURL != "" {
		return nil
	}
	if _, ok := networkRPCURLs[strings.ToLower(strings.TrimSpace(l.Network))]; !ok {
		return fmt.Errorf("unknown ledger network %q (expected one of mainnet, testnet, devnet, localnet)", l.Network)
	}
	return nil
}

// ResolveRPCURL returns the explicit RPC override or the named network's endpoint.
func (l LedgerConfig) ResolveRPCURL() string {
	if l.RPCURL != "" {
		return l.RPCURL
	}
	return networkRPCURLs[strings.ToLower(strings.TrimSpace(l.Network))]
}

// IsConfigured reports whether the program and lot identifiers are usable.
// Placeholder values (the scaffold ships "0x..." before deployment) count as
// unconfigured so synchronization short-circuits instead of issuing doomed calls.
func (l LedgerConfig) IsConfigured() bool {
	return isRealID(l.PackageID) && isRealID(l.LotID)
}

func isRealID(id string) bool {
	id = strings.TrimSpace(id)
	return id != "" && !strings.HasPrefix(id, "0x...")
}

type RedisConfig struct {
	URL          string        `envconfig:"PARKRWA_REDIS_URL"`
	Address      string        `envconfig:"PARKRWA_REDIS_ADDR"`
	Password     string        `envconfig:"PARKRWA_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARKRWA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARKRWA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARKRWA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARKRWA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARKRWA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARKRWA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// SyncConfig drives the snapshot worker; the core itself owns no cadence.
type SyncConfig struct {
	RefreshInterval time.Duration `envconfig:"PARKRWA_SYNC_REFRESH_INTERVAL" default:"10s"`
	SnapshotTTL     time.Duration `envconfig:"PARKRWA_SYNC_SNAPSHOT_TTL" default:"5m"`
	LockTTL         time.Duration `envconfig:"PARKRWA_SYNC_LOCK_TTL" default:"30s"`
	MetricsAddr     string        `envconfig:"PARKRWA_SYNC_METRICS_ADDR" default:":9102"`
}
