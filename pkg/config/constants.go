package config

const (
	EnvPrefix = "PARKRWA"

	AppEnvDev  = "development"
	AppEnvProd = "production"

	NetworkMainnet  = "mainnet"
	NetworkTestnet  = "testnet"
	NetworkDevnet   = "devnet"
	NetworkLocalnet = "localnet"

	EnvAppEnv        = "PARKRWA_APP_ENV"
	EnvPort          = "PARKRWA_APP_PORT"
	EnvLedgerNetwork = "PARKRWA_LEDGER_NETWORK"
	EnvLedgerRPCURL  = "PARKRWA_LEDGER_RPC_URL"
	EnvPackageID     = "PARKRWA_LEDGER_PACKAGE_ID"
	EnvLotID         = "PARKRWA_LEDGER_LOT_ID"
	EnvRedisURL      = "PARKRWA_REDIS_URL"
)
