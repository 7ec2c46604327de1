// Command herdform drives the herd management forms and lists from the
// terminal, or serves them as HTML fragments.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/goliatone/go-herdform/internal/config"
	"github.com/goliatone/go-herdform/internal/logging"
)

var (
	// Global flags
	configPath   string
	baseURL      string
	logLevel     string
	rendererName string
	downloadDir  string
	loginEmail   string
	timeout      time.Duration

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "herdform",
	Short: "Submit herd forms and read herd lists",
	Long: `herdform talks to the herd management application the way its pages do:
forms are posted and their JSON replies shown as status messages, file
replies are saved as downloads, and the dry, calving and stock lists are
fetched and rendered as tables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}

		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// applyFlags lets explicit flags win over the file and environment.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("base-url") {
		c.Server.BaseURL = baseURL
	}
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("download-dir") {
		c.Downloads.Dir = downloadDir
	}
	if flags.Changed("timeout") {
		c.Server.Timeout = timeout
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (or set "+config.EnvConfig+")")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Herd application URL")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVarP(&rendererName, "renderer", "r", "text", "Output renderer: text or html")
	rootCmd.PersistentFlags().StringVarP(&downloadDir, "download-dir", "d", "", "Directory for downloaded files")
	rootCmd.PersistentFlags().StringVar(&loginEmail, "login", "", "Log in with this email before running the command")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "HTTP timeout")

	rootCmd.AddCommand(formsCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(herdCmd)
	rootCmd.AddCommand(filterCmd)
	rootCmd.AddCommand(openapiCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
