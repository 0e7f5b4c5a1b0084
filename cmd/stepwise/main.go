package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"

	"github.com/blackcoderx/stepwise/pkg/client"
	"github.com/blackcoderx/stepwise/pkg/logging"
	"github.com/blackcoderx/stepwise/pkg/report"
	"github.com/blackcoderx/stepwise/pkg/storage"
	"github.com/blackcoderx/stepwise/pkg/tui"
	"github.com/blackcoderx/stepwise/pkg/workspace"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile    string
	envName    string
	backendURL string
	logLevel   string
	rootCmd    = &cobra.Command{
		Use:   "stepwise",
		Short: "Stepwise - design and run API test scenarios from your terminal",
		Long: `Stepwise manages test scenarios on a scenario backend: reusable structures,
scenario parameters, ordered request/response steps and their executions.

Run it without a command to open the interactive console.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			err = tui.Run(tui.Options{
				Client:     a.client,
				PageSize:   a.cfg.PageSize,
				Target:     a.env.Target,
				ReportsDir: workspace.ReportsDir(a.root),
				Logger:     a.logger,
			})

			// Warnings logged while the console owned the screen
			for _, e := range logging.Entries() {
				fmt.Fprintf(os.Stderr, "%s %s %s\n", e.Time.Format("15:04:05"), e.Level, e.Message)
			}
			return err
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .stepwise/config.json)")
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", "", "environment to use (default from config)")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "scenario backend URL, overrides the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")

	_ = viper.BindPFlag("environment", rootCmd.PersistentFlags().Lookup("env"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd, initCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(workspace.FolderName)
		viper.SetConfigType("json")
		viper.SetConfigName("config")
	}

	def := workspace.DefaultConfig()
	viper.SetDefault("environment", def.Environment)
	viper.SetDefault("page_size", def.PageSize)
	viper.SetDefault("rate_limit", def.RateLimit)
	viper.SetDefault("theme", def.Theme)
	viper.SetDefault("log_level", def.LogLevel)

	viper.SetEnvPrefix("STEPWISE")
	viper.AutomaticEnv()
	_ = viper.ReadInConfig()
}

// app holds what every command needs: the workspace, its configuration, the
// selected environment and a backend client.
type app struct {
	root   string
	cfg    workspace.Config
	env    *storage.Environment
	client *client.Client
	logger *slog.Logger
	closer io.Closer
}

// openApp prepares the workspace in the current directory and connects to the
// backend. An interactive app logs to the workspace log file instead of the
// terminal.
func openApp(ctx context.Context, interactive bool) (*app, error) {
	// Load .env file if it exists (optional, warn if malformed)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load .env file: %v\n", err)
	}

	root := workspace.Root(".")
	if _, err := workspace.Initialize("."); err != nil {
		return nil, fmt.Errorf("error initializing workspace: %w", err)
	}
	// Re-read config after initialization (first run creates config.json
	// after Viper's initial read, so values would be stale without this)
	_ = viper.ReadInConfig()

	var cfg workspace.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &app{root: root, cfg: cfg}
	report.SetStyle(cfg.Theme)
	level := logging.ParseLevel(cfg.LogLevel)
	if interactive {
		logger, closer, err := logging.ToFile(workspace.LogPath(root), level)
		if err != nil {
			return nil, err
		}
		a.logger, a.closer = logger, closer
	} else {
		a.logger = logging.Setup(os.Stderr, level)
	}

	env, err := storage.LoadEnvironment(storage.EnvironmentPath(root, cfg.Environment))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load environment '%s': %w", cfg.Environment, err)
	}
	if backendURL != "" {
		env.Backend = backendURL
	}
	if env.Backend == "" {
		a.Close()
		return nil, fmt.Errorf("environment '%s' has no backend URL", env.Name)
	}
	a.env = env

	hc, err := env.Auth.HTTPClient(ctx, &http.Client{Timeout: client.DefaultTimeout})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to set up backend credentials: %w", err)
	}
	opts := []client.Option{client.WithHTTPClient(hc), client.WithLogger(a.logger)}
	if cfg.RateLimit > 0 {
		opts = append(opts, client.WithRateLimit(rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)))
	}
	a.client = client.New(env.Backend, opts...)
	a.logger.Debug("connected", "backend", env.Backend, "environment", env.Name)
	return a, nil
}

// Close releases the log file, if any.
func (a *app) Close() {
	if a.closer != nil {
		_ = a.closer.Close()
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("stepwise", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the .stepwise workspace in the current directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		created, err := workspace.Initialize(".")
		if err != nil {
			return err
		}
		root, _ := filepath.Abs(workspace.Root("."))
		if !created {
			fmt.Println("Workspace already exists at", root)
			return nil
		}
		fmt.Println("Created workspace at", root)
		fmt.Println("Edit", storage.EnvironmentPath(root, "dev"), "to point at your backend.")
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}
