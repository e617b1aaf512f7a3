package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	apperrors "stickerdl/pkg/errors"
	"stickerdl/pkg/logger"
)

// DefaultTimeout bounds every request when Session.Timeout is zero
const DefaultTimeout = 30 * time.Second

// Session carries everything a Client needs to talk to the Bot API. There
// is no process-wide token.
type Session struct {
	Token        string
	APIEndpoint  string
	FileEndpoint string
	Timeout      time.Duration
	Debug        bool
}

func (s Session) withDefaults() Session {
	if s.APIEndpoint == "" {
		s.APIEndpoint = tgbotapi.APIEndpoint
	}
	if s.FileEndpoint == "" {
		s.FileEndpoint = tgbotapi.FileEndpoint
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	return s
}

// BotAPI is the subset of *tgbotapi.BotAPI the client uses
type BotAPI interface {
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

// Client talks to the Bot API for one token
type Client struct {
	bot        BotAPI
	session    Session
	httpClient *http.Client
	username   string
	logger     logger.Logger
}

// NewClient validates the token with getMe and returns a ready client. A
// rejected token is reported as an auth error.
func NewClient(session Session, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	session = session.withDefaults()

	if strings.TrimSpace(session.Token) == "" {
		return nil, apperrors.NewAuthError("bot token is empty", 0)
	}

	httpClient := &http.Client{Timeout: session.Timeout}

	start := time.Now()
	bot, err := tgbotapi.NewBotAPIWithClient(session.Token, session.APIEndpoint, httpClient)
	if err != nil {
		classified := classify("getMe", session.Token, err)
		logger.LogRequest(log, "getMe", apperrors.StatusCode(classified), msSince(start))
		return nil, classified
	}
	logger.LogRequest(log, "getMe", http.StatusOK, msSince(start))
	bot.Debug = session.Debug

	c := newClient(session, bot, httpClient, log)
	c.username = bot.Self.UserName
	return c, nil
}

// NewClientWithBot builds a client around an existing BotAPI without
// calling getMe
func NewClientWithBot(session Session, bot BotAPI, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	session = session.withDefaults()
	return newClient(session, bot, &http.Client{Timeout: session.Timeout}, log)
}

func newClient(session Session, bot BotAPI, httpClient *http.Client, log logger.Logger) *Client {
	return &Client{
		bot:        bot,
		session:    session,
		httpClient: httpClient,
		logger:     log.WithField("component", "telegram"),
	}
}

// Username returns the bot username reported by getMe
func (c *Client) Username() string {
	return c.username
}

// GetStickerSet fetches set metadata by short name
func (c *Client) GetStickerSet(ctx context.Context, name string) (*StickerSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.bot.MakeRequest("getStickerSet", tgbotapi.Params{"name": name})
	if err != nil {
		classified := classify("getStickerSet", c.session.Token, err)
		logger.LogRequest(c.logger, "getStickerSet", apperrors.StatusCode(classified), msSince(start))
		return nil, classified
	}
	logger.LogRequest(c.logger, "getStickerSet", http.StatusOK, msSince(start))

	var set StickerSet
	if err := json.Unmarshal(resp.Result, &set); err != nil {
		return nil, apperrors.NewNetworkError(err, "failed to decode sticker set")
	}
	if set.Name == "" {
		set.Name = name
	}

	c.logger.DebugWithFields("Sticker set fetched", map[string]interface{}{
		"set":      set.Name,
		"stickers": len(set.Stickers),
	})
	return &set, nil
}

// ResolveFile calls getFile and builds the download URL
func (c *Client) ResolveFile(ctx context.Context, fileID string) (RemoteFile, error) {
	if err := ctx.Err(); err != nil {
		return RemoteFile{}, err
	}

	start := time.Now()
	file, err := c.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		classified := classify("getFile", c.session.Token, err)
		logger.LogRequest(c.logger, "getFile", apperrors.StatusCode(classified), msSince(start))
		return RemoteFile{}, classified
	}
	logger.LogRequest(c.logger, "getFile", http.StatusOK, msSince(start))

	if file.FilePath == "" {
		return RemoteFile{}, apperrors.NewNotFoundError("file "+fileID+" has no download path", 0)
	}

	return RemoteFile{
		FileID: fileID,
		Path:   file.FilePath,
		URL:    c.FileURL(file.FilePath),
		Size:   int64(file.FileSize),
	}, nil
}

// ResolveFileURL returns the download URL for fileID
func (c *Client) ResolveFileURL(ctx context.Context, fileID string) (string, error) {
	f, err := c.ResolveFile(ctx, fileID)
	if err != nil {
		return "", err
	}
	return f.URL, nil
}

// FileURL builds the download URL for a file path returned by getFile
func (c *Client) FileURL(filePath string) string {
	return fmt.Sprintf(c.session.FileEndpoint, c.session.Token, filePath)
}

// OpenFile starts a streaming download. The caller closes the body. Every
// failure is a download error.
func (c *Client) OpenFile(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, apperrors.NewDownloadError(redact(err, c.session.Token), "failed to create request")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		return nil, 0, apperrors.NewDownloadError(redact(err, c.session.Token), "file download failed")
	}
	logger.LogRequest(c.logger, "file", resp.StatusCode, msSince(start))

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		dlErr := apperrors.NewDownloadError(nil, fmt.Sprintf("file download returned %s", resp.Status))
		dlErr.Code = resp.StatusCode
		return nil, 0, dlErr
	}

	return resp.Body, resp.ContentLength, nil
}

// classify maps a tgbotapi or transport error onto the error taxonomy
func classify(method, token string, err error) error {
	var tgErr *tgbotapi.Error
	if !errors.As(err, &tgErr) {
		return apperrors.NewNetworkError(redact(err, token), method+" request failed")
	}

	msg := tgErr.Message
	if msg == "" {
		msg = method + " failed"
	}

	switch code := tgErr.Code; {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return apperrors.NewAuthError("bot token rejected: "+msg, code)
	case code == http.StatusNotFound && method == "getMe":
		// a malformed token routes to a path the API does not know
		return apperrors.NewAuthError("bot token rejected: "+msg, code)
	case code == http.StatusBadRequest, code == http.StatusNotFound:
		return apperrors.NewNotFoundError(msg, code)
	default:
		netErr := apperrors.NewNetworkError(nil, msg)
		netErr.Code = code
		return netErr
	}
}

// redactedError hides the bot token that transport errors echo in URLs
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, token string) error {
	if err == nil || token == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), token, "<token>"), err: err}
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
