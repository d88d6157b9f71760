package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/moneypot/moneypot/pkg/config"
)

func (c *CLI) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the moneypot configuration",
	}
	cmd.AddCommand(c.newConfigInitCmd(), c.newConfigValidateCmd())
	return cmd
}

func (c *CLI) newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a default configuration file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConfigInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing configuration")
	return cmd
}

func (c *CLI) runConfigInit(force bool) error {
	path := c.getConfigPath()

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration already exists. Use --force to overwrite")
	}

	manager := config.NewManager()
	cfg := manager.GetDefaultConfig()
	if c.config.User != "" {
		cfg.User = c.config.User
	}

	if err := manager.SaveConfig(path, cfg); err != nil {
		return err
	}

	c.printSuccess(fmt.Sprintf("Created %s", path))
	c.printInfo(fmt.Sprintf("Ledger directory: %s", cfg.LedgerDir))
	return nil
}

func (c *CLI) newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate the configuration file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.getConfigPath()
			cfg, err := config.NewManager().LoadConfig(path)
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			c.printSuccess(fmt.Sprintf("%s is valid", path))
			if cfg.User == "" {
				c.printWarning("No default user set; pass --user or set MONEYPOT_USER")
			}
			return nil
		},
	}
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the version number of moneypot",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "💰 moneypot v%s\n", c.config.Version)
		},
	}
}
