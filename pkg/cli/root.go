// Package cli provides the command-line interface for moneypot
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/moneypot/moneypot/internal/ledger"
	"github.com/moneypot/moneypot/internal/store"
	"github.com/moneypot/moneypot/pkg/config"
	"github.com/moneypot/moneypot/pkg/logger"
	"github.com/moneypot/moneypot/pkg/notifier"
	"github.com/moneypot/moneypot/pkg/types"
)

// EnvPrefix prefixes every environment variable the CLI reads
const EnvPrefix = "MONEYPOT"

// skipConfigAnnotation marks commands that must run without a valid config file
const skipConfigAnnotation = "moneypot/skip-config"

// CLI holds the command tree and everything the commands share
type CLI struct {
	config    *Config
	rootCmd   *cobra.Command
	viper     *viper.Viper
	app       *types.MoneypotConfig
	logger    logger.Logger
	logOutput io.Writer
	output    io.Writer
	errorOut  io.Writer
	now       func() time.Time
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(cfg *Config) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}

	c := &CLI{
		config:   cfg,
		viper:    viper.New(),
		output:   os.Stdout,
		errorOut: os.Stderr,
		now:      time.Now,
	}
	c.setupCommands()
	return c
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(cfg *Config, output, errorOut io.Writer) *CLI {
	c := NewCLI(cfg)
	c.output = output
	c.errorOut = errorOut
	c.logOutput = errorOut
	c.rootCmd.SetOut(output)
	c.rootCmd.SetErr(errorOut)
	return c
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	return c.ExecuteContext(context.Background(), args)
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	err := c.rootCmd.ExecuteContext(ctx)
	if err != nil {
		c.printError(err.Error())
	}
	return err
}

// Execute runs the CLI against os.Args
func Execute(version string) error {
	cfg := NewConfig()
	if version != "" {
		cfg.Version = version
	}
	return NewCLI(cfg).Execute(os.Args[1:])
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "moneypot",
		Short: "Pool pledges toward a shared target",
		Long: `💰 moneypot - shared money pots with capped contributions

Participants pledge a maximum amount toward a pot's target. moneypot works out
what each of them actually pays: nobody pays more than they pledged, and the
target is split as evenly as the caps allow.`,

		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.initializeConfig,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("💰 moneypot v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newAllocateCmd())
	c.rootCmd.AddCommand(c.newPotCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newServeCmd())
	c.rootCmd.AddCommand(c.newConfigCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVar(&c.config.ConfigFile, "config", "", "config file (default: "+config.DefaultFileName+")")
	flags.StringVar(&c.config.ProjectRoot, "root", ".", "project root directory")
	flags.StringVarP(&c.config.Verbosity, "verbosity", "v", "info", "log level (debug, info, warn, error)")
	flags.StringVarP(&c.config.User, "user", "u", "", "acting user id")

	c.viper.BindPFlag("log_level", flags.Lookup("verbosity"))
	c.viper.BindPFlag("user", flags.Lookup("user"))
}

// initializeConfig loads the config file, then lets flags and MONEYPOT_*
// environment variables override it
func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	c.viper.SetEnvPrefix(EnvPrefix)
	c.viper.AutomaticEnv()
	c.viper.BindEnv("ledger_dir")

	manager := config.NewManager()
	path := c.getConfigPath()

	app, err := manager.LoadConfig(path)
	switch {
	case err == nil:
	case cmd.Annotations[skipConfigAnnotation] == "true":
		app = manager.GetDefaultConfig()
	case c.config.ConfigFile == "" && errors.Is(err, os.ErrNotExist):
		app = manager.GetDefaultConfig()
	default:
		return fmt.Errorf("failed to load config: %w", err)
	}

	if c.viper.IsSet("log_level") {
		app.LogLevel = types.LogLevel(c.viper.GetString("log_level"))
	}
	if c.viper.IsSet("user") {
		app.User = c.viper.GetString("user")
	}
	if c.viper.IsSet("ledger_dir") {
		app.LedgerDir = c.viper.GetString("ledger_dir")
	}
	c.app = app

	if c.logOutput != nil {
		c.logger = logger.CreateLoggerWithOutput(string(app.LogLevel), c.logOutput)
	} else {
		c.logger = logger.CreateLogger(app.LogFile, string(app.LogLevel))
	}
	c.logger.Debug("Configuration loaded",
		logger.WithField("file", path),
		logger.WithField("ledger", c.ledgerDir()))
	return nil
}

// Helper methods

func (c *CLI) getConfigPath() string {
	if c.config.ConfigFile != "" {
		return c.config.ConfigFile
	}
	return filepath.Join(c.config.ProjectRoot, config.DefaultFileName)
}

func (c *CLI) ledgerDir() string {
	if filepath.IsAbs(c.app.LedgerDir) {
		return c.app.LedgerDir
	}
	return filepath.Join(c.config.ProjectRoot, c.app.LedgerDir)
}

func (c *CLI) openStore() (*store.FileStore, error) {
	return store.NewFileStore(c.ledgerDir(), c.logger)
}

func (c *CLI) newService(st ledger.Store) (*ledger.Service, error) {
	n := notifier.New(notifier.Config{
		Enabled: c.app.NotificationsEnabled(),
		Sound:   c.app.Notifications != nil && c.app.Notifications.Sound,
	}, c.logger)

	return ledger.NewService(ledger.Options{
		Store:       st,
		Notifier:    n,
		Logger:      c.logger,
		Clock:       c.now,
		Parallelism: c.app.Recalc.Parallelism,
	})
}

func (c *CLI) service() (*ledger.Service, error) {
	st, err := c.openStore()
	if err != nil {
		return nil, err
	}
	return c.newService(st)
}

func (c *CLI) user() string {
	return c.app.User
}

func (c *CLI) printSuccess(message string) {
	fmt.Fprintf(c.output, "💰 %s %s\n", color.GreenString("[moneypot]"), message)
}

func (c *CLI) printError(message string) {
	fmt.Fprintf(c.errorOut, "💰 %s %s\n", color.RedString("[moneypot]"), message)
}

func (c *CLI) printInfo(message string) {
	fmt.Fprintf(c.output, "💰 %s %s\n", color.CyanString("[moneypot]"), message)
}

func (c *CLI) printWarning(message string) {
	fmt.Fprintf(c.output, "💰 %s %s\n", color.YellowString("[moneypot]"), message)
}
