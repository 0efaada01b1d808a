package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/ayusetu/setu/internal/config"
	"github.com/ayusetu/setu/internal/db"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	cmd.AddCommand(newDBSeedCmd())
	return cmd
}

// loadConfigWithPassword loads the config and, when the database password
// is empty and --prompt-password was given, reads it from the terminal.
func loadConfigWithPassword(configPath string, promptPassword bool) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if promptPassword && cfg.Database.Password == "" {
		fmt.Fprintf(os.Stderr, "Password for %s@%s: ", cfg.Database.User, cfg.Database.Host)
		raw, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		cfg.Database.Password = string(raw)
	}
	return cfg, nil
}

func newDBInitCmd() *cobra.Command {
	var (
		configPath     string
		promptPassword bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the AyuSetu database",
		Long:  "Creates the MySQL database, migrates all tables and seeds the stakeholder directory.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath, promptPassword)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().BoolVar(&promptPassword, "prompt-password", false, "prompt for the database password")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string, promptPassword bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfigWithPassword(configPath, promptPassword)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Loaded config from %s\n", configPath)

	dc := cfg.Database
	adminDB, err := db.ConnectAdmin(dc.User, dc.Password, dc.Host, dc.Port)
	if err != nil {
		return fmt.Errorf("connect to MySQL at %s:%d: %w", dc.Host, dc.Port, err)
	}
	fmt.Fprintf(out, "Connected to MySQL at %s:%d\n", dc.Host, dc.Port)

	if err := db.CreateDatabase(adminDB, dc.Name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Database %s ready\n", dc.Name)

	gormDB, err := db.Connect(dc.User, dc.Password, dc.Host, dc.Port, dc.Name)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", dc.Name, err)
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	if err := db.SeedRoles(gormDB, cfg.Users); err != nil {
		return err
	}
	fmt.Fprintf(out, "Seeded %d stakeholder roles\n", len(cfg.Users))

	fmt.Fprintln(out, "\nAyuSetu database initialized successfully.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath     string
		yes            bool
		promptPassword bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-initialize the AyuSetu database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes, promptPassword)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	cmd.Flags().BoolVar(&promptPassword, "prompt-password", false, "prompt for the database password")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm, promptPassword bool) error {
	out := cmd.OutOrStdout()

	cfg, err := loadConfigWithPassword(configPath, promptPassword)
	if err != nil {
		return err
	}

	if !skipConfirm && !confirmReset(cmd, cfg.Database.Name) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	dc := cfg.Database
	adminDB, err := db.ConnectAdmin(dc.User, dc.Password, dc.Host, dc.Port)
	if err != nil {
		return fmt.Errorf("connect to MySQL at %s:%d: %w", dc.Host, dc.Port, err)
	}

	if err := db.DropDatabase(adminDB, dc.Name); err != nil {
		return err
	}
	fmt.Fprintf(out, "Dropped database %s\n", dc.Name)

	return runDBInit(cmd, configPath, false)
}

// confirmReset prompts the user to confirm a destructive reset.
func confirmReset(cmd *cobra.Command, dbName string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "This will DROP database %q and all its data. Continue? [y/N] ", dbName)
	reader := bufio.NewReader(cmd.InOrStdin())
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func newDBSeedCmd() *cobra.Command {
	var (
		configPath     string
		promptPassword bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the stakeholder directory from config",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := loadConfigWithPassword(configPath, promptPassword)
			if err != nil {
				return err
			}
			dc := cfg.Database
			gormDB, err := db.Connect(dc.User, dc.Password, dc.Host, dc.Port, dc.Name)
			if err != nil {
				return fmt.Errorf("connect to %s: %w", dc.Name, err)
			}
			if err := db.SeedRoles(gormDB, cfg.Users); err != nil {
				return err
			}
			fmt.Fprintf(out, "Seeded %d stakeholder roles\n", len(cfg.Users))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "setu.yaml", "path to AyuSetu config file")
	cmd.Flags().BoolVar(&promptPassword, "prompt-password", false, "prompt for the database password")
	return cmd
}
