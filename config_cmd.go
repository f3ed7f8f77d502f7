package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/x/editor"
	"github.com/dgnsrekt/readalong/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the readalong config file",
	Long:    paragraph(fmt.Sprintf("\n%s the readalong config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("readalong config\nreadalong config --config path/to/config.yml"),
	Args:    cobra.NoArgs,
	// Only locate the file: a broken one is what this command fixes.
	PersistentPreRunE: func(*cobra.Command, []string) error {
		used, err := config.ReadInConfig(viper.New(), expandPath(configFile))
		if used == "" {
			return err
		}
		configFile = used
		return nil
	},
	RunE: func(*cobra.Command, []string) error {
		if err := config.EnsureFile(configFile); err != nil {
			return err
		}

		c, err := editor.Cmd("readalong", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}
