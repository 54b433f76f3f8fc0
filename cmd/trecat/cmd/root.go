package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/beetlebugorg/nitf/pkg/nitf"
)

var (
	cfgFile string
	logger  = slog.Default()

	RootCmd = &cobra.Command{
		Use:   "trecat",
		Short: "Inspect NITF Tagged Record Extensions",
		Long: `trecat reads files holding NITF extension areas (TREs framed by a
six character tag and a five digit length), decodes them with the built-in
and configured schemas, and prints or checks the result.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "trecat:", err)
		os.Exit(1)
	}
}

func init() {
	flags := RootCmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default $HOME/.trecat.yaml)")
	flags.StringSlice("schema-dir", nil, "directory of <TAG>.yaml descriptors; repeatable, later ones win")
	flags.IntP("workers", "w", runtime.NumCPU(), "files parsed in parallel")
	flags.StringP("loglevel", "l", "warn", "log level: debug, info, warn or error")
	flags.Bool("skip-errors", false, "keep TREs that fail to parse as raw payloads")

	// bind flags to viper keys so the config file and TRECAT_* variables can set them
	viper.BindPFlag("schema_dirs", flags.Lookup("schema-dir"))
	viper.BindPFlag("workers", flags.Lookup("workers"))
	viper.BindPFlag("loglevel", flags.Lookup("loglevel"))
	viper.BindPFlag("skip_errors", flags.Lookup("skip-errors"))

	cobra.OnInitialize(initConfig)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := homedir.Dir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".trecat")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("trecat")
	viper.AutomaticEnv()

	readErr := viper.ReadInConfig()

	level, err := parseLevel(viper.GetString("loglevel"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "trecat:", err)
		level = slog.LevelWarn
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if readErr == nil {
		logger.Debug("using config file", "path", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		logger.Warn("config file not read", "path", cfgFile, "error", readErr)
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// newRepository builds the configured schema repository: built-in schemas
// overlaid with each configured descriptor directory in order.
func newRepository() (*nitf.Repository, error) {
	opts := []nitf.RepositoryOption{nitf.WithBuiltins(), nitf.WithLogger(logger)}
	for _, dir := range viper.GetStringSlice("schema_dirs") {
		expanded, err := homedir.Expand(dir)
		if err != nil {
			return nil, fmt.Errorf("schema dir %s: %w", dir, err)
		}
		opts = append(opts, nitf.WithSource(os.DirFS(expanded)))
	}
	return nitf.NewRepository(opts...)
}

func newParser() (nitf.Parser, error) {
	repo, err := newRepository()
	if err != nil {
		return nil, err
	}
	return nitf.NewParserWithOptions(nitf.ParseOptions{
		SkipFailedExtensions: viper.GetBool("skip_errors"),
		Repository:           repo,
	}), nil
}

// loadBlocks parses the files named on the command line, logging and
// skipping those that fail.
func loadBlocks(parser nitf.Parser, paths []string) ([]*nitf.Block, int) {
	blocks, errs := nitf.ParseBlocks(paths, parser, nitf.LoadOptions{
		Parallel:   true,
		Workers:    viper.GetInt("workers"),
		SkipErrors: true,
	})
	for _, err := range errs {
		logger.Error("block not parsed", "error", err)
	}
	for _, b := range blocks {
		if b.Skipped != nil {
			logger.Warn("TREs kept unparsed", "path", b.Path, "error", b.Skipped)
		}
	}
	return blocks, len(errs)
}
