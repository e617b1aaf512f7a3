package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stickerdl/internal/telegramtest"
	"stickerdl/pkg/auth"
	"stickerdl/pkg/config"
	"stickerdl/pkg/logger"
	"stickerdl/pkg/ui"
)

type harness struct {
	srv   *telegramtest.Server
	cfg   *config.Config
	store *auth.MockStore
	creds *auth.Manager
	out   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	srv := telegramtest.NewServer("")
	t.Cleanup(srv.Close)
	srv.AddSet("ExamplePack", "Example Pack",
		telegramtest.StaticSticker("f0", "AgAD0", "😀"),
		telegramtest.StaticSticker("f1", "AgAD1", "🔥"),
		telegramtest.StaticSticker("f2", "AgAD2", "A"),
		telegramtest.AnimatedSticker("f3", "AgAD3", "🎉"),
	)

	cfg := config.DefaultConfig()
	cfg.Telegram.APIEndpoint = srv.APIEndpoint()
	cfg.Telegram.FileEndpoint = srv.FileEndpoint()
	cfg.Output.BaseDirectory = t.TempDir()
	cfg.Download.ConcurrentDownloads = 2
	cfg.UI.Color = false

	creds, store := auth.NewMockManager()
	return &harness{srv: srv, cfg: cfg, store: store, creds: creds, out: &bytes.Buffer{}}
}

func (h *harness) session(input string) *Session {
	return h.sessionWithReader(strings.NewReader(input))
}

func (h *harness) sessionWithReader(in io.Reader) *Session {
	return New(Options{
		Config:      h.cfg,
		In:          in,
		Out:         h.out,
		Credentials: h.creds,
		Printer:     ui.NewPrinter(h.out, false),
		Notifier:    ui.NewNotifier(false),
		Logger:      logger.NewNopLogger(),
	})
}

func (h *harness) setDir() string {
	return filepath.Join(h.cfg.Output.BaseDirectory, "ExamplePack")
}

func (h *harness) pngs(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(h.setDir(), "*.png"))
	require.NoError(t, err)
	for i, m := range matches {
		matches[i] = filepath.Base(m)
	}
	return matches
}

func TestExamplePack(t *testing.T) {
	h := newHarness(t)
	s := h.session(h.srv.Token() + "\nhttps://t.me/addstickers/ExamplePack\nquit\n")

	code := s.Run(context.Background())
	assert.Equal(t, ExitOK, code)

	assert.ElementsMatch(t, []string{"AgAD0.png", "AgAD1.png", "AgAD2_A.png"}, h.pngs(t))

	out := h.out.String()
	assert.Equal(t, 1, strings.Count(out, "skipped animated sticker"))
	assert.Contains(t, out, "BotFather")
	assert.Contains(t, out, "Downloading Sticker Pack: Example Pack")
	assert.Contains(t, out, "Bot token saved for future sessions")
	assert.Contains(t, out, "Saved 3 of 4 stickers")
	assert.Contains(t, out, "  #4 AgAD3 🎉: animated")

	assert.Equal(t, h.srv.Token(), h.store.Token())
	assert.Equal(t, []State{
		StateIdle, StateTokenReady, StateSetResolved,
		StateDownloading, StateConverting, StateDone, StateTokenReady,
	}, s.machine.History())
}

func TestInvalidTokenReprompts(t *testing.T) {
	h := newHarness(t)
	s := h.session("999:wrong\n" + h.srv.Token() + "\nquit\n")

	code := s.Run(context.Background())
	assert.Equal(t, ExitOK, code)

	out := h.out.String()
	assert.Equal(t, 2, strings.Count(out, tokenPrompt))
	assert.Equal(t, 1, strings.Count(out, "BotFather"), "the guide is shown once")
	assert.Contains(t, out, "rejected")
	assert.NotContains(t, out, "999:wrong")
	assert.Equal(t, 1, h.store.Saves(), "only the accepted token is saved")
	assert.Equal(t, StateTokenReady, s.State())
}

func TestRejectedEnvironmentTokenIsExplained(t *testing.T) {
	h := newHarness(t)
	t.Setenv("STICKERDL_BOT_TOKEN", "999:revoked")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	h.creds = auth.NewManagerWithStores(auth.NewEnvironmentStore(), h.store)

	s := h.session(h.srv.Token() + "\nquit\n")
	assert.Equal(t, ExitOK, s.Run(context.Background()))

	out := h.out.String()
	assert.Contains(t, out, "Saved bot token loaded (environment)")
	assert.Contains(t, out, "came from $STICKERDL_BOT_TOKEN")
	assert.Equal(t, 1, strings.Count(out, tokenPrompt))
	assert.Equal(t, h.srv.Token(), h.store.Token(), "the new token goes to the writable store")
	assert.Equal(t, StateTokenReady, s.State())
}

func TestRejectedSavedTokenHasNoEnvironmentHint(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save("999:revoked"))

	s := h.session(h.srv.Token() + "\nquit\n")
	assert.Equal(t, ExitOK, s.Run(context.Background()))

	assert.Contains(t, h.out.String(), "rejected")
	assert.NotContains(t, h.out.String(), "came from $")
}

func TestInvalidInputMakesNoNetworkCall(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(h.srv.Token()))

	s := h.session("not a link!!\nhttps://example.com/addstickers/ExamplePack\n\nquit\n")
	code := s.Run(context.Background())
	assert.Equal(t, ExitOK, code)

	assert.Equal(t, 1, h.srv.TotalCalls(), "only getMe")
	assert.Equal(t, 0, h.srv.Calls("getStickerSet"))
	assert.Equal(t, 2, strings.Count(h.out.String(), "invalid_input"))
	assert.Contains(t, h.out.String(), "Saved bot token loaded")
}

func TestSavedTokenSkipsPrompt(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(h.srv.Token()))

	s := h.session("ExamplePack\n")
	assert.Equal(t, ExitOK, s.Run(context.Background()))

	assert.NotContains(t, h.out.String(), tokenPrompt)
	assert.Len(t, h.pngs(t), 3)
	assert.Equal(t, 1, h.store.Saves(), "a loaded token is not written again")
}

func TestAuthErrorDuringSetReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(h.srv.Token()))
	h.srv.FailMethod("getStickerSet", http.StatusUnauthorized, "Unauthorized")

	s := h.session("ExamplePack\n" + h.srv.Token() + "\nquit\n")
	assert.Equal(t, ExitOK, s.Run(context.Background()))

	assert.Equal(t, []State{StateIdle, StateTokenReady, StateIdle, StateTokenReady}, s.machine.History())
	assert.Contains(t, h.out.String(), "Please enter a new bot token")
	assert.Equal(t, 1, strings.Count(h.out.String(), tokenPrompt))
}

func TestUnknownSetContinues(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(h.srv.Token()))

	s := h.session("MissingPack, ExamplePack\nexit\n")
	assert.Equal(t, ExitOK, s.Run(context.Background()))

	assert.Contains(t, h.out.String(), `Sticker set "MissingPack" not found`)
	assert.Len(t, h.pngs(t), 3)
	assert.Equal(t, StateTokenReady, s.State())
}

func TestPartialFailureStillExitsZero(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(h.srv.Token()))
	h.srv.FailFile("f1", http.StatusInternalServerError)

	s := h.session("ExamplePack\n")
	assert.Equal(t, ExitOK, s.Run(context.Background()))

	assert.Len(t, h.pngs(t), 2)
	out := h.out.String()
	assert.Contains(t, out, "1 failed:")
	assert.Contains(t, out, "AgAD1")
}

func TestTokenSaveFailureWarns(t *testing.T) {
	h := newHarness(t)
	h.store.SaveError = errors.New("read-only file system")

	s := h.session(h.srv.Token() + "\nquit\n")
	assert.Equal(t, ExitOK, s.Run(context.Background()))

	assert.Contains(t, h.out.String(), "Could not save the bot token")
	assert.Equal(t, StateTokenReady, s.State())
}

func TestEOFEndsSession(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, ExitOK, h.session("").Run(context.Background()))
	assert.Equal(t, 0, h.srv.TotalCalls())
}

func TestReadErrorExitsNonZero(t *testing.T) {
	h := newHarness(t)
	s := h.sessionWithReader(iotest.ErrReader(errors.New("boom")))
	assert.Equal(t, ExitError, s.Run(context.Background()))
	assert.Contains(t, h.out.String(), "boom")
}

func TestCancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, ExitOK, h.session(h.srv.Token()+"\n").Run(ctx))
	assert.Equal(t, 0, h.srv.TotalCalls())
}

func TestRunLinks(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(h.srv.Token()))
	h.cfg.UI.Mode = config.UIModeQuiet

	s := h.session("")
	assert.Equal(t, ExitOK, s.RunLinks(context.Background(), []string{"tg://addstickers?set=ExamplePack"}))

	assert.Len(t, h.pngs(t), 3)
	out := h.out.String()
	assert.NotContains(t, out, "Downloading Sticker Pack")
	assert.NotContains(t, out, "skipped animated sticker")
	assert.Contains(t, out, "Skipped: 1")
	assert.Contains(t, out, "  #4 AgAD3 🎉: animated")
}

func TestTUIMode(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(h.srv.Token()))
	h.cfg.UI.Mode = config.UIModeTUI

	s := h.session("ExamplePack\n")
	assert.Equal(t, ExitOK, s.Run(context.Background()))
	assert.Len(t, h.pngs(t), 3)
	assert.Contains(t, h.out.String(), "  #4 AgAD3 🎉: animated")
}

func TestKeepAnimatedPolicy(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.store.Save(h.srv.Token()))
	h.cfg.Conversion.AnimatedPolicy = config.AnimatedPolicyKeep

	s := h.session("ExamplePack\n")
	assert.Equal(t, ExitOK, s.Run(context.Background()))

	_, err := os.Stat(filepath.Join(h.setDir(), "AgAD3.tgs"))
	assert.NoError(t, err)
	assert.Contains(t, h.out.String(), "Saved 4 of 4 stickers")
}

func TestIsQuit(t *testing.T) {
	for _, in := range []string{"quit", "QUIT", " exit ", "Exit"} {
		assert.True(t, isQuit(in), in)
	}
	for _, in := range []string{"", "quitter", "q"} {
		assert.False(t, isQuit(in), in)
	}
}
