// Package main provides the entry point for the readalong CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/readalong/internal/audio"
	"github.com/dgnsrekt/readalong/internal/config"
	"github.com/dgnsrekt/readalong/internal/logging"
	"github.com/dgnsrekt/readalong/internal/stream"
	"github.com/dgnsrekt/readalong/internal/telemetry"
	"github.com/dgnsrekt/readalong/internal/ttypes"
	"github.com/dgnsrekt/readalong/ui"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	readmeNames = []string{"README.md", "README", "Readme.md", "Readme", "readme.md", "readme"}
	configFile  string
	logFile     string
	width       uint
	mouse       bool

	// cfg is loaded before any command runs.
	cfg         config.Config
	closeLogger = func() error { return nil }

	rootCmd = &cobra.Command{
		Use:   "readalong [SOURCE|DIR]",
		Short: "Read markdown aloud and follow along on the CLI",
		Long: paragraph(
			fmt.Sprintf("\nRead markdown aloud through a streaming speech server and %s as it is spoken.",
				keyword("highlight each sentence")),
		),
		Example: paragraph("readalong README.md\nreadalong --voice alto --speed 1.25 notes.md\ncat notes.md | readalong"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return loadConfig(cmd)
		},
		RunE: execute,
	}
)

// source provides a readable markdown source.
type source struct {
	reader io.ReadCloser
	URL    string
}

// sourceFromArg parses an argument and creates a readable source for it.
func sourceFromArg(arg string) (*source, error) {
	// from stdin
	if arg == "-" {
		return &source{reader: os.Stdin}, nil
	}

	// HTTP(S) URLs:
	if u, err := url.ParseRequestURI(arg); err == nil && strings.Contains(arg, "://") { //nolint:nestif
		if u.Scheme != "http" && u.Scheme != "https" {
			return nil, fmt.Errorf("%s is not a supported protocol", u.Scheme)
		}
		// consumer of the source is responsible for closing the ReadCloser.
		resp, err := http.Get(u.String()) //nolint: noctx,bodyclose
		if err != nil {
			return nil, fmt.Errorf("unable to get url: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("HTTP status %d", resp.StatusCode)
		}
		return &source{resp.Body, u.String()}, nil
	}

	// a directory:
	if len(arg) == 0 {
		// use the current working dir if no argument was supplied
		arg = "."
	}
	arg = expandPath(arg)
	st, err := os.Stat(arg)
	if err == nil && st.IsDir() { //nolint:nestif
		var src *source
		_ = filepath.Walk(arg, func(path string, _ os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			for _, v := range readmeNames {
				if strings.EqualFold(filepath.Base(path), v) {
					r, err := os.Open(path)
					if err != nil {
						continue
					}

					u, _ := filepath.Abs(path)
					src = &source{r, u}

					// abort filepath.Walk
					return errors.New("source found")
				}
			}
			return nil
		})

		if src != nil {
			return src, nil
		}

		return nil, errors.New("missing markdown source")
	}

	r, err := os.Open(arg)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	u, err := filepath.Abs(arg)
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("unable to get absolute path: %w", err)
	}
	return &source{r, u}, nil
}

func isURL(s string) bool {
	return strings.Contains(s, "://")
}

// expandPath expands a leading ~ and environment variables.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if p, err := homedir.Expand(os.ExpandEnv(path)); err == nil {
		return p
	}
	return path
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// loadConfig reads the config file, environment and flags, then starts
// logging.
func loadConfig(cmd *cobra.Command) error {
	v := viper.GetViper()
	config.SetDefaults(v)

	used, err := config.ReadInConfig(v, expandPath(configFile))
	if err != nil {
		return err
	}
	configFile = used

	cfg, err = config.Load(v)
	if err != nil {
		return err
	}
	if applyFlags(cmd) {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	closer, err := logging.Setup(expandPath(logFile), cfg.Debug)
	if err != nil {
		return err
	}
	closeLogger = closer

	log.Debug("Configuration loaded", "file", configFile, "server", cfg.Server.URL, "voice", cfg.Playback.Voice)
	return nil
}

// applyFlags copies flags set on the command line over the environment. It
// reports whether any were set.
func applyFlags(cmd *cobra.Command) bool {
	f := cmd.Flags()
	changed := false
	if f.Changed("server") {
		cfg.Server.URL, _ = f.GetString("server")
		changed = true
	}
	if f.Changed("voice") {
		cfg.Playback.Voice, _ = f.GetString("voice")
		changed = true
	}
	if f.Changed("speed") {
		cfg.Playback.Speed, _ = f.GetFloat64("speed")
		changed = true
	}
	if f.Changed("mock-audio") {
		cfg.Audio.Mock, _ = f.GetBool("mock-audio")
		changed = true
	}
	if f.Changed("metrics-addr") {
		cfg.Metrics.Addr, _ = f.GetString("metrics-addr")
		changed = true
	}
	if f.Changed("debug") {
		cfg.Debug, _ = f.GetBool("debug")
		changed = true
	}
	return changed
}

func execute(_ *cobra.Command, args []string) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("readalong needs a terminal to display the reader")
	}

	var src *source
	switch {
	case len(args) == 1:
		s, err := sourceFromArg(args[0])
		if err != nil {
			return err
		}
		src = s
	default:
		// if stdin is a pipe then use stdin for input.
		yes, err := stdinIsPipe()
		if err != nil {
			return err
		}
		if yes {
			src = &source{reader: os.Stdin}
		} else if src, err = sourceFromArg(""); err != nil {
			return err
		}
	}

	b, err := io.ReadAll(src.reader)
	_ = src.reader.Close()
	if err != nil {
		return fmt.Errorf("unable to read from reader: %w", err)
	}

	path := ""
	if src.URL != "" && !isURL(src.URL) {
		path = src.URL
	}
	return runReader(path, b)
}

func runReader(path string, content []byte) error {
	tel, err := telemetry.Setup(cfg.Metrics.Addr, Version)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			log.Error("Could not shut down telemetry", "error", err)
		}
	}()

	var sink audio.Sink = audio.NewOtoSink(cfg.Audio.SampleRate)
	if !cfg.Audio.Mock && !audio.Available() {
		log.Warn("Built without audio output, simulating playback")
	}
	if cfg.Audio.Mock || !audio.Available() {
		sink = audio.NewMockSink(cfg.Audio.SampleRate, 1.0)
	}
	sched := audio.NewScheduler(sink,
		audio.WithLogger(logging.For("audio")),
		audio.WithMeter(tel.Meter("github.com/dgnsrekt/readalong/internal/audio")))
	defer sched.Close()

	var ctrl *stream.Controller
	p, err := ui.NewProgram(ui.Config{
		Path:           path,
		Voice:          cfg.Playback.Voice,
		Speed:          cfg.Playback.Speed,
		HighlightColor: cfg.Highlight.Color,
		Width:          int(width), //nolint:gosec
		EnableMouse:    mouse,
	}, content, func(h ttypes.Handlers) (ui.Speaker, error) {
		c, err := stream.NewController(stream.Config{
			URL:            cfg.Server.URL,
			Voice:          cfg.Playback.Voice,
			Speed:          cfg.Playback.Speed,
			ConnectTimeout: cfg.Server.ConnectTimeout,
			DrainTimeout:   cfg.Playback.DrainTimeout,
		},
			stream.WithHandlers(h),
			stream.WithScheduler(sched),
			stream.WithLogger(logging.For("stream")),
			stream.WithMeter(tel.Meter("github.com/dgnsrekt/readalong/internal/stream")),
		)
		if err != nil {
			return nil, fmt.Errorf("unable to create speech controller: %w", err)
		}
		ctrl = c
		return c, nil
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := ctrl.Close(); err != nil {
			log.Error("Could not close speech controller", "error", err)
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	err := rootCmd.Execute()
	_ = closeLogger()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	def := config.Default()
	flags := rootCmd.Flags()
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "log file (default is the user log dir)")
	flags.String("server", def.Server.URL, "speech server WebSocket URL")
	flags.String("voice", def.Playback.Voice, "voice to speak with")
	flags.Float64("speed", def.Playback.Speed, fmt.Sprintf("speaking rate (%.1f to %.1f)", stream.MinSpeed, stream.MaxSpeed))
	flags.Bool("mock-audio", false, "simulate audio output instead of using the sound device")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
	flags.Bool("debug", false, "log debug output")
	flags.UintVarP(&width, "width", "w", 0, "word-wrap at width (set to 0 to follow the terminal)")
	flags.BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = flags.MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("server.url", flags.Lookup("server"))
	_ = viper.BindPFlag("playback.voice", flags.Lookup("voice"))
	_ = viper.BindPFlag("playback.speed", flags.Lookup("speed"))
	_ = viper.BindPFlag("audio.mock", flags.Lookup("mock-audio"))
	_ = viper.BindPFlag("metrics.addr", flags.Lookup("metrics-addr"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))

	rootCmd.AddCommand(configCmd, manCmd)
}
