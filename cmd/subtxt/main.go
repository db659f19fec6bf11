package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/byteowlz/subtxt/internal/config"
	"github.com/byteowlz/subtxt/internal/logging"
	"github.com/byteowlz/subtxt/internal/notify"
	"github.com/byteowlz/subtxt/internal/prompt"
	"github.com/byteowlz/subtxt/internal/session"
	"github.com/byteowlz/subtxt/pkg/subtxt"
)

// Exit codes for granular error handling
const (
	ExitSuccess       = 0
	ExitProviderError = 1
	ExitProcessError  = 2
	ExitInvalidInput  = 3
	ExitConfigError   = 4
	ExitFileIOError   = 5
	ExitCancelled     = 6
)

var (
	cfgFile      string
	videoURL     string
	language     string
	outputDir    string
	backendName  string
	devtoolsURL  string
	noNotify     bool
	keepCaptions bool
	autoCaptions bool
	verbose      bool
	quiet        bool
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "subtxt",
	Short: "Save the subtitles of the video you are watching as plain text",
	Long: `subtxt finds the video open in your browser (or the URL on your clipboard),
downloads its subtitles and saves them as a plain-text transcript.

The browser is reached through its remote-debugging endpoint; start it with
--remote-debugging-port=9222 or pass --url directly.`,
	Version:       version,
	RunE:          run,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var e *exitErr
		if errors.As(err, &e) {
			os.Exit(e.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitInvalidInput)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/subtxt/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only print errors and the resulting file")
	rootCmd.PersistentFlags().StringVarP(&backendName, "backend", "B", "", "subtitle provider (ytdlp|watchpage)")
	rootCmd.PersistentFlags().StringVar(&devtoolsURL, "devtools", "", "browser remote-debugging endpoint")

	rootCmd.Flags().StringVarP(&videoURL, "url", "u", "", "video URL (skips detection)")
	rootCmd.Flags().StringVarP(&language, "lang", "l", "", "subtitle language code, e.g. en")
	rootCmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (default: ~/Downloads)")
	rootCmd.Flags().BoolVar(&noNotify, "no-notify", false, "disable desktop notifications")
	rootCmd.Flags().BoolVar(&keepCaptions, "keep-captions", false, "keep the downloaded caption file next to the transcript")
	rootCmd.Flags().BoolVar(&autoCaptions, "auto-captions", false, "include automatically generated captions")

	rootCmd.AddCommand(resolveCmd, tracksCmd, reduceCmd, configCmd)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return exitError(ExitConfigError, "failed to load config: %v", err)
	}
	logger, closeLog, err := logging.NewFromConfig(cfg, verbose, quiet)
	if err != nil {
		return exitError(ExitConfigError, "failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	var console io.Writer
	if cfg.Notify.Console && !quiet {
		console = os.Stderr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	client, err := subtxt.New(cfg,
		subtxt.WithLogger(logger),
		subtxt.WithNotifier(notify.New(console, cfg.Notify.Desktop, logger)),
		subtxt.WithPrompter(prompt.NewTerminal(os.Stdin, os.Stderr)),
	)
	if err != nil {
		return exitError(ExitConfigError, "%v", err)
	}

	res, err := client.Transcript(ctx, videoURL, language)
	if res != nil {
		fmt.Fprintln(cmd.OutOrStdout(), res.Path)
	}
	if err != nil {
		logger.Debug("run failed", "error", err)
		return exitError(exitCode(err), "")
	}
	return nil
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("backend") {
		cfg.Provider.Backend = backendName
	}
	if flags.Changed("devtools") {
		cfg.Browser.DevToolsURL = devtoolsURL
	}
	if flags.Changed("output") {
		cfg.Output.Dir = outputDir
	}
	if flags.Changed("no-notify") && noNotify {
		cfg.Notify.Desktop = false
	}
	if flags.Changed("keep-captions") {
		cfg.Output.KeepCaptions = keepCaptions
	}
	if flags.Changed("auto-captions") {
		cfg.Provider.AutoCaptions = autoCaptions
	}
	return cfg, cfg.Validate()
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, session.ErrPromptCancelled), errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, session.ErrNoVideoURL), errors.Is(err, session.ErrPrompt):
		return ExitInvalidInput
	case errors.Is(err, session.ErrProviderUnavailable),
		errors.Is(err, session.ErrMetadata),
		errors.Is(err, session.ErrDownload):
		return ExitProviderError
	case errors.Is(err, session.ErrLocate), errors.Is(err, session.ErrConversion):
		return ExitFileIOError
	default:
		return ExitProcessError
	}
}

type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string {
	return e.msg
}

func exitError(code int, format string, args ...any) *exitErr {
	msg := fmt.Sprintf(format, args...)
	if msg != "" && !quiet {
		fmt.Fprintf(os.Stderr, "%s\n", msg)
	}
	return &exitErr{code: code, msg: msg}
}
