package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/zoomfetch/internal/config"
)

// rootCmd represents the base command for the zoomfetch application
var rootCmd = &cobra.Command{
	Use:   "zoomfetch",
	Short: "Download Zoom cloud recordings and derive speaker timelines",
	Long: `zoomfetch downloads audio recordings and their sidecar artifacts
(transcript, chat log, timeline) from Zoom cloud recordings, and derives a
speaker diarization file (STJ) from the recording timeline.

Authentication works either with Server-to-Server OAuth credentials
(ZOOM_ACCOUNT_ID, ZOOM_CLIENT_ID, ZOOM_CLIENT_SECRET) or interactively via
'zoomfetch login', which drives a browser sign-in through the hosted auth
broker and stores the resulting tokens locally.`,
	SilenceUsage: true,
}

var (
	configFile string
	logLevel   string
)

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "zoomfetch version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: DEBUG, INFO, WARN or ERROR (default from config)")

	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newWhoamiCmd())
	rootCmd.AddCommand(newRecordingsCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
}

// loadConfig reads configuration honoring the global --config flag.
func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}

// newLogger builds the command logger. The --log-level flag wins over the
// configured level.
func newLogger(cfg *config.Config) *slog.Logger {
	level := logLevel
	if level == "" && cfg != nil {
		level = cfg.LogLevel
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the zoomfetch version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("zoomfetch version %s\n", version)
		},
	}
}
