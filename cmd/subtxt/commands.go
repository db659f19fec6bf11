package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/byteowlz/subtxt/internal/config"
	"github.com/byteowlz/subtxt/internal/logging"
	"github.com/byteowlz/subtxt/internal/transcript"
	"github.com/byteowlz/subtxt/pkg/subtxt"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Print the detected video URL and how it was found",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeLog, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer closeLog()
		url, src := client.Resolve(cmd.Context())
		if url == "" {
			return exitError(ExitInvalidInput, "Could not detect a video URL in the current context.")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", url, src)
		return nil
	},
}

var tracksCmd = &cobra.Command{
	Use:   "tracks [url]",
	Short: "List the subtitle tracks of a video",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, closeLog, err := newClient(cmd)
		if err != nil {
			return err
		}
		defer closeLog()

		var url string
		if len(args) == 1 {
			url = args[0]
		} else {
			url, _ = client.Resolve(cmd.Context())
		}
		if url == "" {
			return exitError(ExitInvalidInput, "Could not detect a video URL in the current context.")
		}

		info, err := client.Tracks(cmd.Context(), url)
		if err != nil {
			return exitError(exitCode(err), "%v", err)
		}
		if info.Tracks.Empty() {
			fmt.Fprintln(cmd.OutOrStdout(), "No subtitles found for this video.")
			return nil
		}
		if info.Title != "" {
			fmt.Fprintln(cmd.OutOrStdout(), info.Title)
		}
		if info.Channel != "" {
			fmt.Fprintln(cmd.OutOrStdout(), info.Channel)
		}
		fmt.Fprintln(cmd.OutOrStdout(), renderTracks(info.Tracks))
		return nil
	},
}

var reduceOutput string

var reduceCmd = &cobra.Command{
	Use:   "reduce <file>",
	Short: "Reduce a local caption file to plain text",
	Long: `reduce strips timing lines, cue numbers and markup from a caption file.
Without -o the transcript is written to stdout; with -o it is written to the
given file.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src := args[0]
		if reduceOutput != "" && reduceOutput != "-" {
			if err := transcript.ConvertFile(src, reduceOutput); err != nil {
				return exitError(ExitFileIOError, "%v", err)
			}
			if !quiet {
				fmt.Fprintf(os.Stderr, "Saved: %s\n", reduceOutput)
			}
			return nil
		}

		f, err := os.Open(src)
		if err != nil {
			return exitError(ExitFileIOError, "failed to open %s: %v", src, err)
		}
		defer f.Close()
		if err := transcript.Reduce(cmd.OutOrStdout(), f); err != nil {
			return exitError(ExitProcessError, "%v", err)
		}
		return nil
	},
}

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file with the default settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return exitError(ExitConfigError, "%v", err)
			}
			path = p
		}

		if _, err := os.Stat(path); err == nil && !configForce {
			return exitError(ExitConfigError, "%s already exists (use --force to overwrite)", path)
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return exitError(ExitFileIOError, "%v", err)
		}

		if err := config.Default().WriteExample(path); err != nil {
			return exitError(ExitFileIOError, "%v", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", path)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print where the configuration file is read from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return exitError(ExitConfigError, "%v", err)
			}
			path = p
		}
		fmt.Fprintln(cmd.OutOrStdout(), filepath.Clean(path))
		return nil
	},
}

func init() {
	reduceCmd.Flags().StringVarP(&reduceOutput, "output", "o", "", "output file (default: stdout)")
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configPathCmd)
}

// newClient builds a non-interactive client for the inspection commands.
// The returned function closes the log file and must be called when done.
func newClient(cmd *cobra.Command) (*subtxt.Client, func() error, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, exitError(ExitConfigError, "failed to load config: %v", err)
	}
	logger, closeLog, err := logging.NewFromConfig(cfg, verbose, quiet)
	if err != nil {
		return nil, nil, exitError(ExitConfigError, "failed to set up logging: %v", err)
	}
	client, err := subtxt.New(cfg, subtxt.WithLogger(logger))
	if err != nil {
		closeLog()
		return nil, nil, exitError(ExitConfigError, "%v", err)
	}
	return client, closeLog, nil
}
