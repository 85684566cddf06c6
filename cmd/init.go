package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pders01/savepoint/internal/config"
	"github.com/spf13/cobra"
)

var (
	initSaveDir    string
	initBackupRoot string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the config file and backup root",
	Long: `Write a default config file and create the backup root.

This command:
  - Creates $HOME/.config/savepoint/config.toml if it doesn't exist
  - Creates the backup root directory

Run this once, then point paths.save_dir at the game's save directory.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&initSaveDir, "save-dir", "", "Game save directory to back up")
	initCmd.Flags().StringVar(&initBackupRoot, "backup-root", "", "Where snapshots are stored (default $HOME/.local/share/savepoint)")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile, err := configPath()
	if err != nil {
		return err
	}

	defaults := config.Defaults()
	if initSaveDir != "" {
		abs, err := filepath.Abs(initSaveDir)
		if err != nil {
			return fmt.Errorf("invalid save directory: %w", err)
		}
		defaults.Paths.SaveDir = abs
	}
	if initBackupRoot != "" {
		abs, err := filepath.Abs(initBackupRoot)
		if err != nil {
			return fmt.Errorf("invalid backup root: %w", err)
		}
		defaults.Paths.BackupRoot = abs
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(configFile), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		f, err := os.OpenFile(configFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		if err := toml.NewEncoder(f).Encode(defaults); err != nil {
			f.Close()
			return fmt.Errorf("failed to write config file: %w", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		fmt.Printf("✓ Created default config: %s\n", configFile)
	} else {
		fmt.Printf("Config already exists: %s\n", configFile)

		var existing config.File
		if _, err := toml.DecodeFile(configFile, &existing); err != nil {
			return fmt.Errorf("failed to parse existing config: %w", err)
		}
		if existing.Paths.BackupRoot != "" && initBackupRoot == "" {
			defaults.Paths.BackupRoot = existing.Paths.BackupRoot
		}
	}

	if err := os.MkdirAll(defaults.Paths.BackupRoot, 0755); err != nil {
		return fmt.Errorf("failed to create backup root: %w", err)
	}
	fmt.Printf("✓ Backup root: %s\n", defaults.Paths.BackupRoot)

	fmt.Println("\n✓ savepoint initialized successfully!")
	if defaults.Paths.SaveDir == "" {
		fmt.Printf("  Set paths.save_dir in %s, then use: savepoint save\n", configFile)
	} else {
		fmt.Println("  You can now use: savepoint save")
	}

	return nil
}
