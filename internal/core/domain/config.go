package domain

// Config holds the resolved bridge configuration for one session.
type Config struct {
	// Tool is the inspection command name or path (e.g. "deno").
	Tool string

	// WorkingDir is the directory the inspection command runs in. The
	// external tool may mutate its own package cache and lockfile here.
	WorkingDir string

	// CacheDir is the directory holding the persisted session cache.
	CacheDir string
}

// DefaultTool is the inspection command used when none is configured.
const DefaultTool = "deno"

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.Tool == "" {
		return ErrMissingTool
	}
	return nil
}
