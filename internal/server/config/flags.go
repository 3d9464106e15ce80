package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/useradmin/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN, overrides the DB_* parts
//	-k int        bcrypt cost for new hashes
//	-r string     role required for the admin API
//	-t duration   per-operation timeout (e.g., "5s")
//	-l string     log level
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, so the -c/-config flag handled by parseJson does not
// collide with it.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-k", "-r", "-t", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.IntVar(&config.BcryptCost, "k", config.BcryptCost, "bcrypt cost")
	fs.StringVar(&config.AdminRole, "r", config.AdminRole, "role required for admin access")
	fs.DurationVar(&config.OperationTimeout, "t", config.OperationTimeout, "per-operation timeout")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
