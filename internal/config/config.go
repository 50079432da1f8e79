package config

// Config holds app configuration
type Config struct {
	// WxID is the account identifier the archive was encrypted for.
	// Required for encrypted archives unless it can be found in the input path
	WxID string `mapstructure:"wxid"`

	InputFile string `mapstructure:"input"`
	OutputDir string `mapstructure:"output"`

	// Clean removes OutputDir before extracting
	Clean bool `mapstructure:"clean"`

	// Workers bounds the number of concurrent file writes (0 = NumCPU)
	Workers int `mapstructure:"workers"`

	// Format and Digest only apply to the list command
	Format string `mapstructure:"format"`
	Digest bool   `mapstructure:"digest"`

	DryRun       bool   `mapstructure:"dry_run"`
	LogLevel     string `mapstructure:"log_level"`
	LogOutputDir string `mapstructure:"log_output_dir"`
}

// ResolvedOutputDir returns OutputDir, or "<input>.unpacked" when unset
func (c *Config) ResolvedOutputDir() string {
	if c.OutputDir != "" {
		return c.OutputDir
	}
	return c.InputFile + ".unpacked"
}
