package fastmcp

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config carries the environment-tunable runtime options. Fields map to
// FASTMCP_* environment variables; ConfigFromEnv decodes them with sane
// defaults so a server runs unconfigured.
type Config struct {
	// HookFailureMode is one of "warn", "strict", "silent".
	HookFailureMode string `env:"FASTMCP_HOOK_FAILURE_MODE,default=warn"`
	// PageSize bounds list operations when the cursor does not carry one.
	PageSize int `env:"FASTMCP_PAGE_SIZE,default=50"`
	// DispatchTimeout caps a single dispatch end to end. Zero disables.
	DispatchTimeout time.Duration `env:"FASTMCP_DISPATCH_TIMEOUT,default=0s"`
	// BashTimeout caps one bundled bash tool invocation.
	BashTimeout time.Duration `env:"FASTMCP_BASH_TIMEOUT,default=30s"`
}

// ConfigFromEnv decodes Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var c Config
	if err := envdecode.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("fastmcp: decode config from env: %w", err)
	}
	return c, nil
}
