package initialize

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/erikgeiser/promptkit/textinput"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/anvil/internal/config"
	"github.com/Paintersrp/anvil/internal/state"
)

func NewCmdInit() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "init",
		Aliases: []string{"i", "initialize"},
		Short:   "Initialize the anvil configuration.",
		Long: heredoc.Doc(`
			Walk through setting up the anvil configuration: pick the vault
			directory holding your markdown notes and write the config file.
			The directory is created if it does not exist.
		`),
		Example: "anvil init",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	return cmd
}

func run() error {
	home, err := state.GetHomeDir()
	if err != nil {
		return err
	}

	input := textinput.New("Vault directory:")
	input.InitialValue = filepath.Join(home, "notes")
	input.Validate = func(s string) error {
		if s == "" {
			return fmt.Errorf("vault directory cannot be empty")
		}
		return nil
	}

	dir, err := input.RunPrompt()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	// Touch the config file so a first-time init can load defaults.
	path := config.GetConfigPath(home)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		f.Close()
	}

	cfg, err := config.Load(home)
	if err != nil {
		return err
	}
	cfg.VaultDir = dir
	if err := cfg.Save(); err != nil {
		return err
	}

	fmt.Printf("Initialized anvil vault at %s\nConfig written to %s\n", dir, cfg.GetConfigPath())
	return nil
}
