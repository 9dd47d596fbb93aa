package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	optionNameDataDir            = "data-dir"
	optionNameAPIAddr            = "api-addr"
	optionNameDebugAPIAddr       = "debug-api-addr"
	optionNameDebugAPIEnable     = "debug-api-enable"
	optionNameVerbosity          = "verbosity"
	optionNameRemoteEndpoint     = "remote-endpoint"
	optionNameOnline             = "online"
	optionNameMaxRetries         = "max-retries"
	optionNameCleanupInterval    = "cleanup-interval"
	optionNameCORSAllowedOrigins = "cors-allowed-origins"
	optionNameTracingEnabled     = "tracing-enable"
	optionNameTracingEndpoint    = "tracing-endpoint"
)

func init() {
	cobra.EnableCommandSorting = false
}

type command struct {
	root    *cobra.Command
	config  *viper.Viper
	cfgFile string
	homeDir string
}

type option func(*command)

func newCommand(opts ...option) (c *command, err error) {
	c = &command{
		root: &cobra.Command{
			Use:           "stash",
			Short:         "Offline-first data store with remote synchronization",
			SilenceErrors: true,
			SilenceUsage:  true,
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return c.initConfig()
			},
		},
	}

	for _, o := range opts {
		o(c)
	}

	if err := c.setHomeDir(); err != nil {
		return nil, err
	}

	c.initGlobalFlags()

	if err := c.initStartCmd(); err != nil {
		return nil, err
	}
	c.initVersionCmd()

	return c, nil
}

func (c *command) Execute() (err error) {
	return c.root.Execute()
}

// Execute parses the command line arguments and runs the selected
// command. It is the entry point used by main.
func Execute() (err error) {
	c, err := newCommand()
	if err != nil {
		return err
	}
	return c.Execute()
}

func (c *command) initGlobalFlags() {
	globalFlags := c.root.PersistentFlags()
	globalFlags.StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.stash.yaml)")
}

func (c *command) initConfig() (err error) {
	config := viper.New()
	configName := ".stash"
	if c.cfgFile != "" {
		// Use config file from the flag.
		config.SetConfigFile(c.cfgFile)
	} else {
		// Search config in home directory with name ".stash" (without extension).
		config.AddConfigPath(c.homeDir)
		config.SetConfigName(configName)
	}

	// Environment
	config.SetEnvPrefix("stash")
	config.AutomaticEnv() // read in environment variables that match
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// If a config file is found, read it in.
	if err := config.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return err
		}
	}

	c.config = config
	return nil
}

func (c *command) setHomeDir() (err error) {
	if c.homeDir != "" {
		return
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	c.homeDir = dir
	return nil
}

func (c *command) setAllFlags(cmd *cobra.Command) {
	cmd.Flags().String(optionNameDataDir, filepath.Join(c.homeDir, ".stash"), "data directory")
	cmd.Flags().String(optionNameAPIAddr, ":1683", "HTTP API listen address")
	cmd.Flags().String(optionNameDebugAPIAddr, ":1685", "debug HTTP API listen address")
	cmd.Flags().Bool(optionNameDebugAPIEnable, false, "enable debug HTTP API")
	cmd.Flags().String(optionNameVerbosity, "info", "log verbosity level 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace")
	cmd.Flags().String(optionNameRemoteEndpoint, "", "base URL of the remote backend to sync against")
	cmd.Flags().Bool(optionNameOnline, false, "assume network connectivity at startup")
	cmd.Flags().Int(optionNameMaxRetries, 0, "retry budget for queued sync operations")
	cmd.Flags().Duration(optionNameCleanupInterval, 0, "pause between scheduled maintenance passes")
	cmd.Flags().StringSlice(optionNameCORSAllowedOrigins, nil, "origins with CORS headers enabled")
	cmd.Flags().Bool(optionNameTracingEnabled, false, "send tracing spans to the tracing backend")
	cmd.Flags().String(optionNameTracingEndpoint, "127.0.0.1:6831", "endpoint to send tracing data")
}

func (c *command) bindFlags(cmd *cobra.Command) error {
	if err := c.config.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}
	return nil
}
