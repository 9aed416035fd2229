package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"recall/internal/app"
	"recall/internal/command"
	"recall/internal/config"
	"recall/internal/recall"
	"recall/internal/seed"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file named by the defaults.
func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// newApp reads the config and creates a RecallApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "serve", "invoke").
func newApp(cmd *cobra.Command, operation string) (*app.RecallApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	a, err := app.NewRecallApp(cfg, operation, app.Options{Verbose: verbose})
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

var rootCmd = &cobra.Command{
	Use:          "recall",
	Short:        "Personal organization backend",
	SilenceUsage: true,
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

		instanceID := uuid.New().String()
		cfg := config.NewConfig(instanceID, defaults["base_dir"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Instance ID: %s\n", instanceID)
		fmt.Printf("Base Dir:    %s\n", defaults["base_dir"])
		fmt.Println("Next: run `recall migrate` to create the database.")
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
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Instance ID: %s\n", cfg.InstanceID)
		fmt.Printf("Base Dir:    %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:     %s\n", cfg.LogDir)
		fmt.Printf("Database:    %s", cfg.Database.Type)
		if cfg.Database.Type == "sqlite" {
			fmt.Printf(" (%s)", cfg.Database.Path())
		}
		fmt.Println()
		fmt.Printf("Server:      %s\n", cfg.Server.Addr)
		fmt.Printf("Session TTL: %s\n", cfg.Auth.SessionTTL())
		for _, v := range cfg.Vaults {
			fmt.Printf("Vault:       %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

// migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		st, err := app.Migrate(cfg)
		if err != nil {
			return err
		}
		fmt.Printf("Schema at version %d\n", st.Current)
		return nil
	},
}

// invoke command
var invokeCmd = &cobra.Command{
	Use:   "invoke [COMMAND]",
	Short: "Run one command and print the JSON response",
	Long: `Run one command and print the JSON response.

With no COMMAND, a complete request object is read from stdin:

  echo '{"command":"signin","payload":{"email":"a@b.c","password":"pw"}}' | recall invoke`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := buildRequest(cmd, args)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "invoke")
		if err != nil {
			return err
		}
		defer a.Close()

		resp := a.Invoke(cmd.Context(), raw)
		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding response: %w", err)
		}
		fmt.Println(string(out))
		if resp.Error != "" {
			return fmt.Errorf("%s", resp.Error)
		}
		return nil
	},
}

func addInvokeFlags(cmd *cobra.Command) {
	cmd.Flags().String("token", "", "Session token")
	cmd.Flags().String("id", "", "Entity id")
	cmd.Flags().String("area-id", "", "Area id filter or target")
	cmd.Flags().String("project-id", "", "Project id filter or target (empty to detach)")
	cmd.Flags().String("status", "", "New project status")
	cmd.Flags().Int64("start", 0, "Window start, Unix seconds")
	cmd.Flags().Int64("end", 0, "Window end, Unix seconds")
	cmd.Flags().String("payload", "", "JSON payload, or - to read it from stdin")
}

// buildRequest assembles a request from flags, or reads one from stdin.
func buildRequest(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading request: %w", err)
		}
		return raw, nil
	}

	flags := cmd.Flags()
	req := command.Request{Command: args[0]}
	req.Token, _ = flags.GetString("token")
	req.Args.ID, _ = flags.GetString("id")
	req.Args.NewStatus, _ = flags.GetString("status")

	if flags.Changed("area-id") {
		v, _ := flags.GetString("area-id")
		req.Args.AreaID = &v
	}
	if flags.Changed("project-id") {
		v, _ := flags.GetString("project-id")
		req.Args.ProjectID = &v
	}
	if flags.Changed("start") {
		v, _ := flags.GetInt64("start")
		req.Args.StartTime = &v
	}
	if flags.Changed("end") {
		v, _ := flags.GetInt64("end")
		req.Args.EndTime = &v
	}

	payload, _ := flags.GetString("payload")
	if payload == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading payload: %w", err)
		}
		payload = string(b)
	}
	if payload != "" {
		if !json.Valid([]byte(payload)) {
			return nil, fmt.Errorf("payload is not valid JSON")
		}
		req.Payload = json.RawMessage(payload)
	}
	return json.Marshal(req)
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer commands over a local WebSocket",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")

		a, err := newApp(cmd, "serve")
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return a.Serve(ctx, addr)
	},
}

// seed command
var seedCmd = &cobra.Command{
	Use:   "seed USER_ID",
	Short: "Fill an account with sample data",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fx, err := loadFixture(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd, "seed")
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := a.Seed(cmd.Context(), args[0], fx)
		if err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
		fmt.Printf("Created %s\n", sum)
		return nil
	},
}

func loadFixture(cmd *cobra.Command) (*seed.Fixture, error) {
	path, _ := cmd.Flags().GetString("fixture")
	if path == "" {
		return seed.DefaultFixture()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	return seed.ParseFixture(data)
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export RESOURCE_ID",
	Short: "Save a resource's attached file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, _ := cmd.Flags().GetString("token")
		out, _ := cmd.Flags().GetString("out")

		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("getting defaults: %w", err)
		}

		a, err := newApp(cmd, "export")
		if err != nil {
			return err
		}
		defer a.Close()

		var dialog recall.SaveDialog = newPromptDialog(defaults["export_dir"])
		if out != "" {
			dialog = fixedDialog(out)
		}

		path, err := a.ExportResourceFile(cmd.Context(), token, args[0], dialog)
		if err != nil {
			return fmt.Errorf("exporting: %w", err)
		}
		fmt.Printf("Saved %s\n", path)
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage snapshot encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the snapshot key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		passphrase, err := readPassphrase("New passphrase: ", true)
		if err != nil {
			return err
		}
		if err := app.InitKeys(cfg, passphrase); err != nil {
			return err
		}
		fmt.Printf("Public key:  %s\n", cfg.Encryption.PublicKeyPath)
		fmt.Printf("Private key: %s (passphrase protected)\n", cfg.Encryption.PrivateKeyPath)
		return nil
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage encrypted database snapshots",
}

var snapshotCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Upload an encrypted copy of the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")

		a, err := newApp(cmd, "snapshot-create")
		if err != nil {
			return err
		}
		defer a.Close()

		name, err := a.CreateSnapshot(cmd.Context(), vaultName)
		if err != nil {
			return fmt.Errorf("creating snapshot: %w", err)
		}
		fmt.Printf("Created snapshot %s\n", name)
		return nil
	},
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")

		a, err := newApp(cmd, "snapshot-list")
		if err != nil {
			return err
		}
		defer a.Close()

		names, err := a.ListSnapshots(cmd.Context(), vaultName)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore NAME",
	Short: "Decrypt a snapshot into a new database file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		vaultName, _ := cmd.Flags().GetString("vault")
		dest, _ := cmd.Flags().GetString("to")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		passphrase, err := readPassphrase("Passphrase: ", false)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		if err := app.RestoreSnapshot(ctx, cfg, vaultName, args[0], passphrase, dest); err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}
		fmt.Printf("Restored %s to %s\n", args[0], dest)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	addInvokeFlags(invokeCmd)
	serveCmd.Flags().String("addr", "", "Loopback address to listen on (default from config)")
	seedCmd.Flags().String("fixture", "", "YAML fixture file (default: built-in sample data)")

	exportCmd.Flags().String("token", "", "Session token")
	exportCmd.Flags().StringP("out", "o", "", "Write to this path instead of asking")
	exportCmd.MarkFlagRequired("token")

	// keys subcommands
	keysCmd.AddCommand(keysInitCmd)

	// snapshot subcommands
	snapshotCmd.AddCommand(snapshotCreateCmd)
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
	snapshotCmd.PersistentFlags().String("vault", "", "Vault name (default: first configured)")
	snapshotRestoreCmd.Flags().String("to", "", "Path of the restored database file")
	snapshotRestoreCmd.MarkFlagRequired("to")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(invokeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(snapshotCmd)
}
