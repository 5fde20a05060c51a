package config

// fileDTO is the YAML shape of modbridge.yaml.
type fileDTO struct {
	// Tool is the inspection command name or path. Defaults to "deno".
	Tool string `yaml:"tool"`

	// WorkingDir is where the inspection command runs, relative to the
	// config file's directory unless absolute. Defaults to that directory.
	WorkingDir string `yaml:"working_dir"`

	// CacheDir overrides the session cache location. Defaults to
	// <working_dir>/.modbridge/cache.
	CacheDir string `yaml:"cache_dir"`
}
