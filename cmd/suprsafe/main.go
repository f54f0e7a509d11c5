package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mixoploidy8031/suprsafe/internal/app"
	"github.com/mixoploidy8031/suprsafe/internal/config"
	"github.com/mixoploidy8031/suprsafe/internal/crypto"
	"github.com/mixoploidy8031/suprsafe/internal/suprsafe"
)

var (
	success = color.New(color.FgGreen)
	failure = color.New(color.FgRed)
	notice  = color.New(color.FgYellow)
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a SafeApp. The caller must defer
// app.Close(). operation identifies the CLI command being run
// (e.g. "Encrypt", "Decrypt").
func newApp(operation string) (*app.SafeApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config (run 'suprsafe config init' first): %w", err)
	}

	a, err := app.NewSafeApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// reportError prints err in red and maps the sentinel errors onto
// distinct exit codes so scripts can tell a wrong password from a
// tampered artifact.
func reportError(err error) error {
	failure.Fprintf(os.Stderr, "Error: %v\n", err)
	switch {
	case errors.Is(err, suprsafe.ErrAuthentication):
		os.Exit(2)
	case errors.Is(err, suprsafe.ErrDirectoryLocked):
		os.Exit(3)
	case errors.Is(err, suprsafe.ErrCorruptArtifact):
		os.Exit(4)
	}
	return err
}

var rootCmd = &cobra.Command{
	Use:           "suprsafe",
	Short:         "Encrypt and decrypt directories with AES-256-GCM",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Base Dir: %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Base Dir:       %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("KDF Iterations: %d\n", cfg.KDF.Iterations)
		fmt.Printf("Erase Passes:   %d\n", cfg.Erase.Passes)
		fmt.Printf("Lockout:        enabled=%v max_attempts=%d\n",
			cfg.Lockout.Enabled, cfg.Lockout.MaxAttempts)
		fmt.Printf("Store:          %s\n", cfg.Store.Type)
		for _, v := range cfg.Escrow {
			fmt.Printf("Escrow:         %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

// setup command
var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the account password (and optionally SuprSafe+)",
	RunE: func(cmd *cobra.Command, args []string) error {
		plus, _ := cmd.Flags().GetBool("plus")

		a, err := newApp("Setup")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.IsSetUp() {
			return fmt.Errorf("account password already set up")
		}

		password, err := readPasswordConfirm(
			"Choose an account password: ",
			"Confirm account password: ",
		)
		if err != nil {
			return err
		}

		adminPassword := ""
		if plus {
			notice.Fprintln(os.Stderr,
				"SuprSafe+ wipes all encrypted files after too many failed password attempts.")
			adminPassword, err = readPasswordConfirm(
				"Choose an admin password: ",
				"Confirm admin password: ",
			)
			if err != nil {
				return err
			}
		}

		if err := a.Setup(password, adminPassword); err != nil {
			return reportError(err)
		}

		if plus {
			// Persist the lockout flag so subsequent runs arm the guard.
			defaults, err := app.GetDefaults()
			if err != nil {
				return fmt.Errorf("getting defaults: %w", err)
			}
			cfg, err := config.ReadFromFile(defaults["config_path"])
			if err != nil {
				return fmt.Errorf("reading config: %w", err)
			}
			cfg.Lockout.Enabled = true
			if err := config.Save(defaults["config_path"], cfg); err != nil {
				return fmt.Errorf("enabling lockout in config: %w", err)
			}
		}

		success.Println("Account set up.")
		if plus {
			success.Println("SuprSafe+ enabled.")
		}
		return nil
	},
}

// keygen command
var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a random 32-character main key",
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := crypto.GenerateMainKey()
		if err != nil {
			return err
		}

		fmt.Println(key)
		notice.Fprintln(os.Stderr,
			"Store this key somewhere safe. Without it your files cannot be decrypted.")
		return nil
	},
}

// encrypt command
var encryptCmd = &cobra.Command{
	Use:   "encrypt DIRECTORY",
	Short: "Encrypt all files in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Encrypt")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.IsSetUp() {
			return fmt.Errorf("no account password set up (run 'suprsafe setup' first)")
		}

		password, err := readPassword("Account password: ")
		if err != nil {
			return err
		}
		mainKey, err := readPassword("Main key: ")
		if err != nil {
			return err
		}

		count, err := a.Encrypt(args[0], password, mainKey)
		if err != nil {
			return reportError(err)
		}

		success.Printf("Encrypted %d file(s)\n", count)
		return nil
	},
}

// decrypt command
var decryptCmd = &cobra.Command{
	Use:   "decrypt DIRECTORY",
	Short: "Decrypt all files in a directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Decrypt")
		if err != nil {
			return err
		}
		defer a.Close()

		if !a.IsSetUp() {
			return fmt.Errorf("no account password set up (run 'suprsafe setup' first)")
		}

		password, err := readPassword("Account password: ")
		if err != nil {
			return err
		}
		mainKey, err := readPassword("Main key: ")
		if err != nil {
			return err
		}

		count, err := a.Decrypt(args[0], password, mainKey)
		if err != nil {
			return reportError(err)
		}

		success.Printf("Decrypted %d file(s)\n", count)
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View encrypt/decrypt operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.Finished {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-8s  %s  %-8s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
			)
		}
		return nil
	},
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export BUNDLE",
	Short: "Export account records to an encrypted recovery bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, _ := cmd.Flags().GetString("dir")

		a, err := newApp("ExportBundle")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPasswordConfirm(
			"Choose a recovery passphrase: ",
			"Confirm recovery passphrase: ",
		)
		if err != nil {
			return err
		}

		count, err := a.ExportBundle(args[0], passphrase, dir)
		if err != nil {
			return reportError(err)
		}

		success.Printf("Bundled %d file(s) into %s\n", count, args[0])
		return nil
	},
}

// import command
var importCmd = &cobra.Command{
	Use:   "import BUNDLE",
	Short: "Restore files from an encrypted recovery bundle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest, _ := cmd.Flags().GetString("dest")

		a, err := newApp("ImportBundle")
		if err != nil {
			return err
		}
		defer a.Close()

		passphrase, err := readPassword("Recovery passphrase: ")
		if err != nil {
			return err
		}

		paths, err := a.ImportBundle(args[0], passphrase, dest)
		if err != nil {
			return reportError(err)
		}

		for _, p := range paths {
			fmt.Println(p)
		}
		success.Printf("Restored %d file(s)\n", len(paths))
		return nil
	},
}

// plus command
var plusCmd = &cobra.Command{
	Use:   "plus",
	Short: "Manage SuprSafe+ (wipe after repeated failed logins)",
}

var plusEnableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the SuprSafe+ wipe",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configureLockout("EnableLockout", true, "SuprSafe+ wipe enabled.")
	},
}

var plusDisableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the SuprSafe+ wipe",
	RunE: func(cmd *cobra.Command, args []string) error {
		return configureLockout("DisableLockout", false, "SuprSafe+ wipe disabled.")
	},
}

// configureLockout prompts for the admin password, flips the lockout
// flag and persists the config.
func configureLockout(operation string, enabled bool, done string) error {
	a, err := newApp(operation)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.IsPlusSetUp() {
		return fmt.Errorf("SuprSafe+ is not set up (run 'suprsafe setup --plus' first)")
	}

	adminPassword, err := readPassword("Admin password: ")
	if err != nil {
		return err
	}

	if err := a.ConfigureLockout(adminPassword, enabled); err != nil {
		return reportError(err)
	}

	defaults, err := app.GetDefaults()
	if err != nil {
		return fmt.Errorf("getting defaults: %w", err)
	}
	if err := config.Save(defaults["config_path"], a.Config()); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	success.Println(done)
	return nil
}

// escrow command
var escrowCmd = &cobra.Command{
	Use:   "escrow",
	Short: "Manage key escrow",
}

var escrowCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the configured escrow vault is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("ValidateEscrow")
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.ValidateEscrow(); err != nil {
			return reportError(err)
		}

		success.Println("Escrow vault is reachable.")
		return nil
	},
}

func init() {
	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// plus subcommands
	plusCmd.AddCommand(plusEnableCmd)
	plusCmd.AddCommand(plusDisableCmd)

	// escrow subcommands
	escrowCmd.AddCommand(escrowCheckCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(setupCmd)
	setupCmd.Flags().Bool("plus", false, "Also enable SuprSafe+ (wipe after repeated failed logins)")
	rootCmd.AddCommand(keygenCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(decryptCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().String("dir", "", "Also bundle the wrapped-key blob of this directory")
	rootCmd.AddCommand(importCmd)
	importCmd.Flags().String("dest", ".", "Directory to restore files under")
	rootCmd.AddCommand(plusCmd)
	rootCmd.AddCommand(escrowCmd)
}
