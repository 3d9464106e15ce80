package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/useradmin/internal/flagx"
	"github.com/dmitrijs2005/useradmin/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "5s" and integer nanoseconds are accepted. Pointer
// fields distinguish "absent" from an explicit zero value.
type JsonConfig struct {
	HTTPAddr               *string         `json:"http_addr"`
	DatabaseDSN            *string         `json:"database_dsn"`
	DBHost                 *string         `json:"db_host"`
	DBPort                 *int            `json:"db_port"`
	DBName                 *string         `json:"db_name"`
	DBUser                 *string         `json:"db_user"`
	DBPassword             *string         `json:"db_password"`
	DBSSLMode              *string         `json:"db_sslmode"`
	BcryptCost             *int            `json:"bcrypt_cost"`
	AdminRole              *string         `json:"admin_role"`
	BootstrapAdminUser     *string         `json:"bootstrap_admin_user"`
	BootstrapAdminPassword *string         `json:"bootstrap_admin_password"`
	OperationTimeout       *timex.Duration `json:"operation_timeout"`
	UniformAuthTiming      *bool           `json:"uniform_auth_timing"`
	LogLevel               *string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by -c or
// -config into config. Keys missing from the file keep their current value.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {
	jsonConfigFile := flagx.ConfigFile(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setIf(&config.HTTPAddr, c.HTTPAddr)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.DBHost, c.DBHost)
	setIf(&config.DBPort, c.DBPort)
	setIf(&config.DBName, c.DBName)
	setIf(&config.DBUser, c.DBUser)
	setIf(&config.DBPassword, c.DBPassword)
	setIf(&config.DBSSLMode, c.DBSSLMode)
	setIf(&config.BcryptCost, c.BcryptCost)
	setIf(&config.AdminRole, c.AdminRole)
	setIf(&config.BootstrapAdminUser, c.BootstrapAdminUser)
	setIf(&config.BootstrapAdminPassword, c.BootstrapAdminPassword)
	if c.OperationTimeout != nil {
		config.OperationTimeout = c.OperationTimeout.Duration
	}
	setIf(&config.UniformAuthTiming, c.UniformAuthTiming)
	setIf(&config.LogLevel, c.LogLevel)
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
