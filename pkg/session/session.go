// Package session drives the interactive sticker downloader: it obtains a
// bot token, reads sticker pack links and runs each set through the fetcher
// while tracking progress in a small state machine.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"stickerdl/pkg/auth"
	"stickerdl/pkg/config"
	apperrors "stickerdl/pkg/errors"
	"stickerdl/pkg/fetcher"
	"stickerdl/pkg/link"
	"stickerdl/pkg/logger"
	"stickerdl/pkg/telegram"
	"stickerdl/pkg/ui"
	"stickerdl/pkg/ui/tui"
)

// Exit codes returned by Run
const (
	ExitOK    = 0
	ExitError = 1
)

const (
	tokenPrompt = "Enter your bot token: "
	linkPrompt  = "Sticker pack link(s), or quit: "
)

// Client is a connected Bot API client
type Client interface {
	fetcher.StickerAPI
	Username() string
}

// ClientFactory connects with token. A rejected token must yield an auth
// error.
type ClientFactory func(token string) (Client, error)

// TelegramClientFactory connects to the endpoints in cfg
func TelegramClientFactory(cfg *config.TelegramConfig, log logger.Logger) ClientFactory {
	return func(token string) (Client, error) {
		client, err := telegram.NewClient(telegram.Session{
			Token:        token,
			APIEndpoint:  cfg.APIEndpoint,
			FileEndpoint: cfg.FileEndpoint,
			Timeout:      cfg.Timeout,
			Debug:        cfg.Debug,
		}, log)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Options wire a Session to its environment
type Options struct {
	Config      *config.Config
	In          io.Reader
	Out         io.Writer
	Credentials *auth.Manager
	NewClient   ClientFactory
	// ReadSecret reads the token without echo. Nil reads a line from In.
	ReadSecret func() (string, error)
	Printer    *ui.Printer
	Notifier   *ui.Notifier
	Logger     logger.Logger
}

// Session is one interactive run
type Session struct {
	cfg        *config.Config
	in         *bufio.Reader
	out        io.Writer
	creds      *auth.Manager
	newClient  ClientFactory
	readSecret func() (string, error)
	printer    *ui.Printer
	notifier   *ui.Notifier
	logger     logger.Logger

	machine     *Machine
	client      Client
	storedTried bool
	guideShown  bool
}

// New creates a session
func New(opts Options) *Session {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}
	if opts.Printer == nil {
		opts.Printer = ui.NewPrinter(opts.Out, opts.Config.UI.Color)
	}
	if opts.Notifier == nil {
		opts.Notifier = ui.NewNotifier(opts.Config.UI.Notifications)
	}
	if opts.NewClient == nil {
		opts.NewClient = TelegramClientFactory(&opts.Config.Telegram, opts.Logger)
	}

	s := &Session{
		cfg:        opts.Config,
		in:         bufio.NewReader(opts.In),
		out:        opts.Out,
		creds:      opts.Credentials,
		newClient:  opts.NewClient,
		readSecret: opts.ReadSecret,
		printer:    opts.Printer,
		notifier:   opts.Notifier,
		logger:     opts.Logger.WithField("component", "session"),
		machine:    NewMachine(),
	}
	if s.readSecret == nil {
		s.readSecret = func() (string, error) { return s.in.ReadString('\n') }
	}
	return s
}

// State returns the current session state
func (s *Session) State() State {
	return s.machine.State()
}

// Run prompts for links until quit, EOF or cancellation. It returns ExitOK
// unless input could not be read.
func (s *Session) Run(ctx context.Context) int {
	s.printer.PrintBanner()

	for {
		if ctx.Err() != nil {
			return ExitOK
		}

		if s.machine.State() == StateIdle {
			done, err := s.authenticate(ctx)
			if err != nil {
				return s.inputFailed(err)
			}
			if done {
				return ExitOK
			}
			continue
		}

		line, err := s.prompt(ctx, linkPrompt, s.readLine)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return ExitOK
			}
			return s.inputFailed(err)
		}
		if isQuit(line) {
			return ExitOK
		}

		s.processLinks(ctx, link.Split(line))
	}
}

// RunLinks authenticates once and processes links without prompting for
// more
func (s *Session) RunLinks(ctx context.Context, links []string) int {
	for s.machine.State() == StateIdle {
		done, err := s.authenticate(ctx)
		if err != nil {
			return s.inputFailed(err)
		}
		if done {
			return ExitOK
		}
	}

	var refs []string
	for _, l := range links {
		refs = append(refs, link.Split(l)...)
	}
	s.processLinks(ctx, refs)
	return ExitOK
}

func (s *Session) inputFailed(err error) int {
	s.printer.PrintError("Failed to read input: %v", err)
	return ExitError
}

// authenticate moves Idle -> TokenReady. done is true when the user ended
// the session at the token prompt.
func (s *Session) authenticate(ctx context.Context) (done bool, err error) {
	token, source := s.storedToken()
	if token == "" {
		if !s.guideShown {
			auth.WriteTokenGuide(s.out)
			s.guideShown = true
		}

		line, err := s.prompt(ctx, tokenPrompt, s.readSecret)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return true, nil
			}
			return false, err
		}
		if isQuit(line) {
			return true, nil
		}
		token = line
		if err := auth.ValidateToken(token); err != nil {
			s.printer.PrintError("%v", err)
			return false, nil
		}
	}

	client, err := s.newClient(token)
	if err != nil {
		if apperrors.IsAuth(err) {
			s.printer.PrintError("%v", err)
			if source == auth.EnvironmentSource {
				s.printer.PrintWarning("The rejected token came from $%s, which is read before any saved token. Unset it to keep using the token you enter now.", auth.TokenVariable())
			}
		} else {
			s.printer.PrintError("Could not reach Telegram: %v", err)
		}
		s.logger.WithError(err).Debug("Token check failed")
		return false, nil
	}

	if source == "" {
		s.saveToken(token)
	}
	s.client = client
	if err := s.machine.To(StateTokenReady); err != nil {
		return false, err
	}
	if name := client.Username(); name != "" {
		s.printer.PrintInfo("Bot", "@"+name)
	}
	return false, nil
}

// storedToken returns the saved token and the store it came from, the first
// time only. After an auth error the user is asked again instead of reusing
// it.
func (s *Session) storedToken() (token, source string) {
	if s.storedTried || s.creds == nil {
		return "", ""
	}
	s.storedTried = true

	token, source, err := s.creds.Load()
	if err != nil {
		if !errors.Is(err, auth.ErrTokenNotFound) {
			s.logger.WithError(err).Debug("Stored token unreadable")
		}
		return "", ""
	}
	s.printer.PrintSuccess("Saved bot token loaded (%s)", source)
	return token, source
}

func (s *Session) saveToken(token string) {
	if s.creds == nil {
		return
	}
	store, err := s.creds.Save(token)
	if err != nil {
		s.printer.PrintWarning("Could not save the bot token, it is only kept for this session: %v", err)
		s.logger.WithError(err).Debug("Token not saved")
		return
	}
	s.printer.PrintSuccess("Bot token saved for future sessions (%s)", store)
}

func (s *Session) processLinks(ctx context.Context, refs []string) {
	for _, ref := range refs {
		if ctx.Err() != nil {
			return
		}

		name, err := link.Resolve(ref)
		if err != nil {
			s.printer.PrintError("%v", err)
			continue
		}

		if err := s.processSet(ctx, name); err != nil && apperrors.IsAuth(err) {
			s.printer.PrintError("%v", err)
			s.printer.PrintWarning("Please enter a new bot token")
			s.dropToken()
			return
		}
	}
}

// processSet runs one set from TokenReady back to TokenReady
func (s *Session) processSet(ctx context.Context, name string) error {
	var display *tui.TUI

	hooks := fetcher.Hooks{
		Resolved: func(set *telegram.StickerSet) ui.ProgressObserver {
			s.transition(StateSetResolved)
			obs, t := s.observerFor(set)
			display = t
			return obs
		},
		Phase: func(phase ui.Phase) error {
			switch phase {
			case ui.PhaseDownload:
				return s.machine.To(StateDownloading)
			case ui.PhaseConvert:
				return s.machine.To(StateConverting)
			}
			return nil
		},
	}

	opts := fetcher.OptionsFromConfig(s.cfg)
	opts.Bot = s.client.Username()
	report, err := fetcher.New(s.client, opts, s.logger).DownloadSet(ctx, name, hooks)

	if display != nil {
		if stopErr := display.Stop(); stopErr != nil {
			s.logger.WithError(stopErr).Debug("TUI stopped with error")
		}
	}

	if report != nil {
		s.printSummary(report)
	}

	switch {
	case err == nil:
		s.transition(StateDone)
		s.notifier.Notify("Sticker pack downloaded", fmt.Sprintf("%s: %d stickers", report.Title, report.Written()))
		s.transition(StateTokenReady)
	case apperrors.IsAuth(err):
		// caller moves to Idle
	default:
		s.printSetError(ctx, name, err)
		if s.machine.State() != StateTokenReady {
			s.transition(StateTokenReady)
		}
	}
	return err
}

// observerFor picks the progress output for the configured UI mode. The
// TUI, when used, is returned so it can be stopped after the set.
func (s *Session) observerFor(set *telegram.StickerSet) (ui.ProgressObserver, *tui.TUI) {
	title := set.Title
	if title == "" {
		title = set.Name
	}

	switch s.cfg.UI.Mode {
	case config.UIModeQuiet:
		return ui.NopObserver{}, nil
	case config.UIModeTUI:
		t := tui.New(title, s.out)
		t.Start()
		return t, t
	default:
		s.printer.PrintTitle(title)
		return ui.NewProgressDisplay(s.printer), nil
	}
}

func (s *Session) printSetError(ctx context.Context, name string, err error) {
	switch {
	case ctx.Err() != nil:
		s.printer.PrintWarning("Stopped %s: cancelled", name)
	case apperrors.IsNotFound(err):
		s.printer.PrintError("Sticker set %q not found: %v", name, err)
	default:
		s.printer.PrintError("Failed to download %s: %v", name, err)
	}
}

func (s *Session) printSummary(r *fetcher.Report) {
	s.printer.PrintSuccess("Saved %d of %d stickers to %s (%s)", r.Written(), r.Total(), r.Dir, ui.FormatDuration(r.Duration))
	if skips := r.Skips(); len(skips) > 0 {
		s.printer.PrintInfo("Skipped", fmt.Sprintf("%d", len(skips)))
		for _, it := range skips {
			s.printer.Printf("  #%d %s: %s\n", it.Index+1, strings.TrimSpace(it.FileUniqueID+" "+it.Emoji), it.Reason)
		}
	}
	if n := r.Failed(); n > 0 {
		s.printer.PrintWarning("%d failed:", n)
		for _, it := range r.Failures() {
			s.printer.PrintError("  #%d %s: %v", it.Index+1, it.FileUniqueID, it.Err)
		}
	}
}

// dropToken forgets the client after an auth error so the next loop
// iteration asks for a new token
func (s *Session) dropToken() {
	s.client = nil
	s.transition(StateIdle)
}

// transition applies a move that the session logic guarantees is valid. A
// rejected move is a bug and is logged loudly.
func (s *Session) transition(next State) {
	if err := s.machine.To(next); err != nil {
		s.logger.WithError(err).Error("Session state machine rejected transition")
	}
}

func (s *Session) readLine() (string, error) {
	return s.in.ReadString('\n')
}

// prompt prints label and reads one answer with read. A final line without
// newline is returned before io.EOF.
func (s *Session) prompt(ctx context.Context, label string, read func() (string, error)) (string, error) {
	fmt.Fprint(s.out, s.printer.Cyan(label))

	type result struct {
		line string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		line, err := read()
		ch <- result{line, err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(s.out)
		return "", ctx.Err()
	case r := <-ch:
		line := strings.TrimSpace(r.line)
		if r.err != nil && !(errors.Is(r.err, io.EOF) && line != "") {
			return "", r.err
		}
		return line, nil
	}
}

func isQuit(line string) bool {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "quit", "exit":
		return true
	}
	return false
}
