package main

import (
	"context"
	"errors"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/attenberger/ftpkit"
)

// errInterrupted is returned by subcommand RunE bodies when the root
// context is cancelled by SIGINT, so main can map it to exit code 0
// instead of 1.
var errInterrupted = errors.New("ftpkit: interrupted")

// cliConfig mirrors ConnectionParameters before validation, bound field by
// field to cobra persistent flags and viper so that flags override
// environment which overrides the .env file.
type cliConfig struct {
	host           string
	port           int
	username       string
	password       string
	timeout        time.Duration
	maxConnections int
	maxWorkers     int
	loggerLevel    string
	loggerPath     string
	loggerInterval int
}

func newRootCommand() *cobra.Command {
	var cfg cliConfig
	v := viper.New()

	root := &cobra.Command{
		Use:          "ftpkit",
		Short:        "Concurrent FTP virtual file system and bulk transfer engine",
		SilenceUsage: true,
		Version:      ftpkit.Version,
	}

	root.PersistentFlags().StringVarP(&cfg.host, "host", "H", "", "FTP server host")
	root.PersistentFlags().IntVarP(&cfg.port, "port", "P", 0, "FTP server port (0 omits the port from constructed URLs)")
	root.PersistentFlags().StringVarP(&cfg.username, "username", "u", "", "FTP username")
	root.PersistentFlags().StringVarP(&cfg.password, "password", "p", "", "FTP password")
	root.PersistentFlags().DurationVar(&cfg.timeout, "timeout", 0, "connect and pool-open timeout")
	root.PersistentFlags().IntVar(&cfg.maxConnections, "max-connections", 0, "pooled control connection count")
	root.PersistentFlags().IntVar(&cfg.maxWorkers, "max-workers", 0, "maximum concurrent transfer goroutines")

	_ = v.BindPFlag("host", root.PersistentFlags().Lookup("host"))
	_ = v.BindPFlag("port", root.PersistentFlags().Lookup("port"))
	_ = v.BindPFlag("credentials.username", root.PersistentFlags().Lookup("username"))
	_ = v.BindPFlag("credentials.password", root.PersistentFlags().Lookup("password"))
	_ = v.BindPFlag("timeout", root.PersistentFlags().Lookup("timeout"))
	_ = v.BindPFlag("max_connections", root.PersistentFlags().Lookup("max-connections"))
	_ = v.BindPFlag("max_workers", root.PersistentFlags().Lookup("max-workers"))

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// A missing .env is not an error: it is merely not loaded.
		_ = godotenv.Load()

		v.SetEnvPrefix("ftpkit")
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
		v.AutomaticEnv()

		v.SetDefault("timeout", ftpkit.DefaultTimeout)
		v.SetDefault("max_connections", ftpkit.DefaultMaxConnections)
		v.SetDefault("max_workers", ftpkit.DefaultMaxWorkers)
		v.SetDefault("logger_interval", ftpkit.DefaultLogInterval)

		cfg.host = v.GetString("host")
		cfg.port = v.GetInt("port")
		cfg.username = v.GetString("credentials.username")
		cfg.password = v.GetString("credentials.password")
		cfg.timeout = v.GetDuration("timeout")
		cfg.maxConnections = v.GetInt("max_connections")
		cfg.maxWorkers = v.GetInt("max_workers")
		cfg.loggerLevel = v.GetString("logger_level")
		cfg.loggerPath = v.GetString("logger_path")
		cfg.loggerInterval = v.GetInt("logger_interval")
		return nil
	}

	root.AddCommand(newDownloadCommand(&cfg), newUploadCommand(&cfg))
	return root
}

// buildRootContext derives a context cancelled by SIGINT/SIGTERM so an
// interrupted run exits cleanly rather than with an error status.
func buildRootContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
}
