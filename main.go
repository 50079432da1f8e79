package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ossyrian/unwx/internal/config"
	"github.com/ossyrian/unwx/internal/extract"
	"github.com/ossyrian/unwx/internal/logging"
	"github.com/ossyrian/unwx/internal/sink"
	"github.com/ossyrian/unwx/internal/wxapkg"
)

var cfgFile string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:           "unwx <input>",
	Short:         "Unpack WeChat mini program .wxapkg packages",
	Args:          cobra.ExactArgs(1),
	RunE:          unpack,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")

	// decryption
	rootCmd.PersistentFlags().String("wxid", "", "wxid the package was encrypted for (default: taken from the .../Applet/<wxid>/... path)")

	// output
	rootCmd.Flags().StringP("output", "o", "", "output directory for unpacked files (default \"<input>.unpacked\")")
	rootCmd.Flags().BoolP("clean", "c", false, "clean output directory before write")
	rootCmd.Flags().IntP("workers", "j", 0, "number of concurrent file writers (default: number of CPUs)")
	rootCmd.Flags().Bool("dry-run", false, "decode without writing output (validation)")

	// other opts
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error, fatal)")
	rootCmd.PersistentFlags().String("log-output-dir", "", "directory to write log files (if set, logs are written to both stderr and file)")

	viper.BindPFlag("wxid", rootCmd.PersistentFlags().Lookup("wxid"))
	viper.BindPFlag("output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("clean", rootCmd.Flags().Lookup("clean"))
	viper.BindPFlag("workers", rootCmd.Flags().Lookup("workers"))
	viper.BindPFlag("dry_run", rootCmd.Flags().Lookup("dry-run"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log_output_dir", rootCmd.PersistentFlags().Lookup("log-output-dir"))

	rootCmd.AddCommand(listCmd)
}

// initConfig reads in config file and environment variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "unwx"))
		}
		viper.AddConfigPath("/etc/unwx")
		viper.SetConfigName("config")
		viper.SetConfigType("toml")
	}

	viper.SetEnvPrefix("UNWX")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig decodes the merged flag/env/file settings and sets up logging.
// The returned closer flushes the log file.
func loadConfig(args []string) (*config.Config, io.Closer, error) {
	cfg := &config.Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg.InputFile = args[0]

	closer, err := logging.Setup(cfg.LogLevel, cfg.LogOutputDir)
	if err != nil {
		return nil, nil, fmt.Errorf("could not set up logging: %w", err)
	}

	return cfg, closer, nil
}

// loadArchive reads the input package and decrypts it when needed.
func loadArchive(cfg *config.Config, logger *slog.Logger) (*wxapkg.Archive, error) {
	data, err := os.ReadFile(cfg.InputFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read input package: %w", err)
	}

	return wxapkg.Load(data, wxapkg.LoadOptions{
		InputPath: cfg.InputFile,
		WxID:      cfg.WxID,
		Resolver:  wxapkg.AppletResolver,
		Logger:    logger,
	})
}

// unpack extracts every file of the input package to the output directory
func unpack(cmd *cobra.Command, args []string) error {
	cfg, closer, err := loadConfig(args)
	if err != nil {
		return err
	}
	defer closer.Close()

	logger := slog.With("input", cfg.InputFile)

	archive, err := loadArchive(cfg, logger)
	if err != nil {
		return err
	}

	var dst sink.Sink = sink.Discard{}
	if !cfg.DryRun {
		out := sink.NewOsSink(cfg.ResolvedOutputDir())
		if cfg.Clean {
			if err := out.Clean(); err != nil {
				return err
			}
		}
		logger.Info("unpacking", "output", out.Root())
		dst = out
	} else {
		logger.Info("dry run, nothing will be written")
	}

	stats, err := extract.Run(archive, dst, extract.Options{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "done in %v\n", stats.Elapsed)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
