// ytlocalize translates YouTube video titles and descriptions with MyMemory
// and publishes them as video localizations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ytlocalize/config"
)

// Version information (set via -ldflags during build)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app holds state shared by every command after flag parsing.
type app struct {
	configPath string
	envFile    string
	verbose    bool
	logFormat  string

	cfg *config.Config
	log *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var auto, dryRun bool

	root := &cobra.Command{
		Use:   "ytlocalize",
		Short: "Translate YouTube video metadata into multiple languages",
		Long: `ytlocalize translates the title and description of your YouTube videos
with the MyMemory API and publishes them as video localizations.

Without arguments it runs the OAuth flow and saves token.json.
With --auto it localizes today's new videos, as a scheduled job would.

Commands:
  auth        Authorize access to your channel
  videos      Localize specific videos
  text        Translate text from the command line
  history     Show past runs
  version     Show version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if auto {
				return a.runAuto(cmd, dryRun)
			}
			return a.runAuth(cmd)
		},
	}

	root.Flags().BoolVar(&auto, "auto", false, "Localize videos published or scheduled today that have no localizations")
	root.Flags().BoolVar(&dryRun, "dry-run", false, "Translate without updating videos (with --auto)")

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Config file (default: search ./ and ~/.config/ytlocalize)")
	pf.StringVar(&a.envFile, "env-file", ".env", "Environment file to load if present")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	pf.StringVar(&a.logFormat, "log-format", "text", "Log format: text or json")

	root.AddCommand(
		newAuthCmd(a),
		newVideosCmd(a),
		newTextCmd(a),
		newHistoryCmd(a),
		newVersionCmd(),
	)

	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// setup loads the env file, installs the logger and loads configuration.
func (a *app) setup(cmd *cobra.Command) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", a.envFile, err)
		}
	}

	logger, err := newLogger(cmd, a.logFormat, a.verbose)
	if err != nil {
		return err
	}
	a.log = logger
	slog.SetDefault(logger)

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

func newLogger(cmd *cobra.Command, format string, verbose bool) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	w := cmd.ErrOrStderr()
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ytlocalize version %s\n", version)
			fmt.Fprintf(out, "  commit:    %s\n", commit)
			fmt.Fprintf(out, "  built:     %s\n", date)
		},
	}
}
