package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

// lookuper matches os.LookupEnv so tests can pass a map instead.
type lookuper func(key string) (string, bool)

func (f lookuper) Lookup(key string) (string, bool) {
	return f(key)
}

// parseEnv overlays environment variables onto config. Every field carries
// the overwrite option, so a variable that is present replaces the value from
// defaults or JSON and an absent one leaves it untouched.
func parseEnv(ctx context.Context, config *Config, l lookuper) error {
	return envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   config,
		Lookuper: l,
	})
}
