package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"stickerdl/pkg/auth"
	"stickerdl/pkg/config"
	"stickerdl/pkg/logger"
	"stickerdl/pkg/session"
	"stickerdl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile   string
	logLevel     string
	verbose      bool
	noColor      bool
	quiet        bool
	useTUI       bool
	outputDir    string
	workers      int
	keepAnimated bool

	// exitCode is set by commands that finish a session
	exitCode int

	isTerminal   = term.IsTerminal
	getTermState = term.GetState
	restoreTerm  = term.Restore
)

// rootCmd runs the interactive session when called without subcommands
var rootCmd = &cobra.Command{
	Use:   "stickerdl",
	Short: "Download Telegram sticker packs as PNG files",
	Long: `stickerdl downloads Telegram sticker packs through the Bot API and converts
the stickers to PNG images.

Run it without arguments for an interactive session: paste one or more
sticker pack links (https://t.me/addstickers/<name>) separated by commas or
newlines, and type quit to exit. A bot token from @BotFather is asked for on
the first run and stored for later sessions.`,
	Example: `  # Interactive session
  stickerdl

  # Download two packs without prompting
  stickerdl get https://t.me/addstickers/ExamplePack AnotherPack

  # Use the full screen progress view and 8 workers
  stickerdl --tui --workers 8`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer guardTerminal(os.Stdin)()
		exitCode = app.session(os.Stdin, cmd.OutOrStdout()).Run(cmd.Context())
		return nil
	},
}

// Execute runs the command line and returns the process exit code
func Execute(ctx context.Context) int {
	exitCode = 0
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return exitCode
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default: ./stickerdl.yaml or the user config dir)")
	flags.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "log everything at debug level")
	flags.BoolVar(&noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "only print errors and the final summary")
	flags.BoolVar(&useTUI, "tui", false, "show progress in a terminal UI")
	flags.StringVarP(&outputDir, "output", "o", "", "base directory for sticker packs (default: stickers)")
	flags.IntVarP(&workers, "workers", "w", 0, "number of concurrent downloads")
	flags.BoolVar(&keepAnimated, "keep-animated", false, "keep animated and video stickers instead of skipping them")

	rootCmd.SetVersionTemplate(`stickerdl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// flagOverrides collects the flags the user actually set
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	f := cmd.Flags()
	overrides := make(map[string]interface{})

	if f.Changed("output") {
		overrides["output"] = outputDir
	}
	if f.Changed("workers") {
		overrides["workers"] = workers
	}
	if f.Changed("log-level") {
		overrides["log-level"] = logLevel
	}
	if f.Changed("verbose") {
		overrides["verbose"] = verbose
	}
	if f.Changed("no-color") {
		overrides["no-color"] = noColor
	}
	if f.Changed("quiet") {
		overrides["quiet"] = quiet
	}
	if f.Changed("tui") {
		overrides["tui"] = useTUI
	}
	if f.Changed("keep-animated") {
		overrides["keep-animated"] = keepAnimated
	}
	return overrides
}

// app holds what every command needs after startup
type app struct {
	cfg   *config.Config
	creds *auth.Manager
	log   logger.Logger
}

// newApp loads configuration and sets up logging and the credential store.
// Failures here are the only ones that end the process with a non-zero code.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	if err := tgbotapi.SetLogger(logger.NewBotLogger(log)); err != nil {
		log.WithError(err).Debug("Bot API logger not set")
	}

	creds, err := auth.NewManager(&cfg.Credentials)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}

	logger.LogComponentStart(log, "stickerdl", map[string]interface{}{
		"version":     version,
		"output":      cfg.Output.BaseDirectory,
		"workers":     cfg.Download.ConcurrentDownloads,
		"ui_mode":     cfg.UI.Mode,
		"credentials": creds.StoreNames(),
	})

	return &app{cfg: cfg, creds: creds, log: log}, nil
}

func (a *app) session(in *os.File, out io.Writer) *session.Session {
	return session.New(session.Options{
		Config:      a.cfg,
		In:          in,
		Out:         out,
		Credentials: a.creds,
		NewClient:   session.TelegramClientFactory(&a.cfg.Telegram, a.log),
		ReadSecret:  secretReader(in, out),
		Printer:     ui.NewPrinter(out, a.cfg.UI.Color),
		Notifier:    ui.NewNotifier(a.cfg.UI.Notifications),
		Logger:      a.log,
	})
}

// guardTerminal records the terminal state of in and returns a func that
// puts it back. A hidden prompt interrupted by Ctrl-C is still blocked in
// term.ReadPassword when the process exits, with echo off.
func guardTerminal(in *os.File) func() {
	fd := int(in.Fd())
	if !isTerminal(fd) {
		return func() {}
	}
	state, err := getTermState(fd)
	if err != nil {
		return func() {}
	}
	return func() { _ = restoreTerm(fd, state) }
}

// secretReader reads without echo when in is a terminal; otherwise the
// session reads a plain line
func secretReader(in *os.File, out io.Writer) func() (string, error) {
	fd := int(in.Fd())
	if !isTerminal(fd) {
		return nil
	}
	return func() (string, error) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		return string(b), err
	}
}
