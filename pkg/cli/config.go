package cli

import (
	"context"

	pcontext "github.com/moneypot/moneypot/pkg/context"
)

// Config holds the values of the global flags
type Config struct {
	ConfigFile  string
	ProjectRoot string
	Verbosity   string
	User        string
	Version     string
}

// NewConfig creates a new CLI configuration with defaults
func NewConfig() *Config {
	return &Config{
		ProjectRoot: ".",
		Verbosity:   "info",
		Version:     "dev",
	}
}

// commandContext tags ctx with a fresh request id, the operation name and
// the acting user so log lines from one command can be correlated
func commandContext(ctx context.Context, operation, user string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = pcontext.EnrichContext(ctx)
	ctx = pcontext.WithOperation(ctx, operation)
	if user != "" {
		ctx = pcontext.WithUserID(ctx, user)
	}
	return ctx
}
