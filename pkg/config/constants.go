package config

// EnvPrefix namespaces every environment variable the platform reads.
const EnvPrefix = "PLATTERLY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "PLATTERLY_DB_DSN"
	EnvDBHost = "PLATTERLY_DB_HOST"
	EnvDBUser = "PLATTERLY_DB_USER"
	EnvDBName = "PLATTERLY_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
