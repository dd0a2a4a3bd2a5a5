// Package main provides the entry point for the voices CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/voices/internal/voices"
	"github.com/dgnsrekt/voices/internal/watch"
	"github.com/dgnsrekt/voices/ui"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultServer = "http://localhost:8998"

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile    string
	server        string
	timeout       time.Duration
	watchDirs     []string
	watchInterval time.Duration
	debug         bool

	rootCmd = &cobra.Command{
		Use:   "voices [SERVER]",
		Short: "Browse the voices offered by a voice server",
		Long: paragraph(
			fmt.Sprintf("\nBrowse the %s offered by a voice server.", keyword("voices")),
		),
		Example:          paragraph("voices\nvoices http://gpu-box:8998\nvoices --watch ~/custom_voices"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		RunE:             execute,
	}
)

func validateOptions(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	// grab config values from Viper
	server = viper.GetString("server")
	timeout = viper.GetDuration("timeout")
	watchDirs = viper.GetStringSlice("watch")
	watchInterval = viper.GetDuration("watch_interval")
	debug = viper.GetBool("debug")

	// a positional server argument wins over the config file
	if cmd == rootCmd && len(args) == 1 {
		server = args[0]
	}
	if server == "" {
		server = defaultServer
	}

	if debug {
		log.SetLevel(log.DebugLevel)
	}

	if timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", timeout)
	}
	if _, err := voices.NewClient(server); err != nil {
		return fmt.Errorf("invalid server: %w", err)
	}
	return nil
}

// newLoader returns a loader for the configured server.
func newLoader() (*voices.Loader, error) {
	// a zero timeout leaves requests unbounded
	hc := &http.Client{Timeout: timeout}

	client, err := voices.NewClient(server,
		voices.WithHTTPClient(hc),
		voices.WithUserAgent("voices/"+Version),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to create client: %w", err)
	}

	log.Debug("Created voice loader", "endpoint", client.Endpoint(), "timeout", timeout)
	return voices.NewLoader(client, voices.WithLogger(log.Default())), nil
}

func execute(*cobra.Command, []string) error {
	return runTUI()
}

func runTUI() error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	cfg.Server = server
	cfg.Watching = watchDirs

	loader, err := newLoader()
	if err != nil {
		return err
	}
	defer loader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if len(watchDirs) > 0 {
		w, err := watch.New(loader, watchInterval, watchDirs...)
		if err != nil {
			return fmt.Errorf("unable to watch voice directories: %w", err)
		}
		defer w.Close() //nolint:errcheck

		go func() {
			if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Warn("Voice directory watcher stopped", "error", err)
			}
		}()
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, loader).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}

	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return validateOptions(cmd, args)
	}
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().StringVarP(&server, "server", "S", defaultServer, "base URL of the voice server")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "request timeout (0 waits indefinitely)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log debug output")
	rootCmd.Flags().StringSliceVarP(&watchDirs, "watch", "w", nil, "refresh when files in these directories change")
	rootCmd.Flags().DurationVar(&watchInterval, "watch-interval", watch.DefaultInterval, "minimum time between refreshes caused by --watch")

	// Config bindings
	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("watch", rootCmd.Flags().Lookup("watch"))
	_ = viper.BindPFlag("watch_interval", rootCmd.Flags().Lookup("watch-interval"))

	viper.SetDefault("server", defaultServer)
	viper.SetDefault("timeout", 0)
	viper.SetDefault("watch", []string{})
	viper.SetDefault("watch_interval", watch.DefaultInterval)
	viper.SetDefault("debug", false)

	rootCmd.AddCommand(listCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voices")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voices")}, dirs...)
	}

	if c := os.Getenv("VOICES_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("voices")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("voices")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "voices.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
