package downloader

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"stickerdl/internal/telegramtest"
	apperrors "stickerdl/pkg/errors"
	"stickerdl/pkg/logger"
	"stickerdl/pkg/ratelimit"
	"stickerdl/pkg/storage"
	"stickerdl/pkg/telegram"
)

type fixture struct {
	srv    *telegramtest.Server
	client *telegram.Client
	store  *storage.Manager
	set    *telegram.StickerSet
}

func newFixture(t *testing.T, stickers ...telegramtest.Sticker) *fixture {
	t.Helper()

	srv := telegramtest.NewServer("")
	t.Cleanup(srv.Close)
	srv.AddSet("ExamplePack", "Example Pack", stickers...)

	client, err := telegram.NewClient(telegram.Session{
		Token:        srv.Token(),
		APIEndpoint:  srv.APIEndpoint(),
		FileEndpoint: srv.FileEndpoint(),
	}, logger.NewNopLogger())
	require.NoError(t, err)

	set, err := client.GetStickerSet(context.Background(), "ExamplePack")
	require.NoError(t, err)

	store, err := storage.NewManager(t.TempDir(), "ExamplePack")
	require.NoError(t, err)

	return &fixture{srv: srv, client: client, store: store, set: set}
}

func (f *fixture) jobs() []Job {
	jobs := make([]Job, len(f.set.Stickers))
	for i, s := range f.set.Stickers {
		jobs[i] = Job{SetName: f.set.Name, Sticker: s}
	}
	return jobs
}

func TestDownloadSingle(t *testing.T) {
	f := newFixture(t, telegramtest.StaticSticker("f1", "AgAD1", "😀"))
	d := New(f.client, f.store, Options{Workers: 1}, logger.NewNopLogger())

	res, err := d.Download(context.Background(), f.jobs()[0])
	require.NoError(t, err)
	assert.Equal(t, "AgAD1.webp", res.File)
	assert.Equal(t, f.store.Path("AgAD1.webp"), res.Path)

	data, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Equal(t, telegramtest.PNG(8, 8), data)
	assert.Equal(t, int64(len(data)), res.Size)
}

func TestDownloadAllPartialFailure(t *testing.T) {
	f := newFixture(t,
		telegramtest.StaticSticker("f0", "u0", ""),
		telegramtest.StaticSticker("f1", "u1", ""),
		telegramtest.StaticSticker("f2", "u2", ""),
		telegramtest.StaticSticker("f3", "u3", ""),
		telegramtest.StaticSticker("f4", "u4", ""),
	)
	f.srv.FailFile("f1", http.StatusInternalServerError)
	f.srv.FailFile("f3", http.StatusNotFound)

	d := New(f.client, f.store, Options{Workers: 3, Limiter: ratelimit.PerSecond(100)}, logger.NewNopLogger())

	var reported []int
	outcomes, err := d.DownloadAll(context.Background(), f.jobs(), func(o Outcome[Result]) {
		reported = append(reported, o.Index)
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 5)
	assert.Len(t, reported, 5)

	for _, i := range []int{0, 2, 4} {
		assert.NoError(t, outcomes[i].Err)
		assert.True(t, f.store.Exists(outcomes[i].Value.File))
	}
	for _, i := range []int{1, 3} {
		require.Error(t, outcomes[i].Err)
		assert.Equal(t, apperrors.ErrorTypeDownload, apperrors.TypeOf(outcomes[i].Err))
	}
	assert.NotEqual(t, outcomes[1].Err.Error(), outcomes[3].Err.Error())
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	f := newFixture(t, telegramtest.StaticSticker("f1", "u1", ""))
	f.srv.FailFile("f1", http.StatusBadGateway)

	d := New(f.client, f.store, Options{Workers: 1, MaxRetries: 2, RetryDelay: 1}, logger.NewNopLogger())

	_, err := d.Download(context.Background(), f.jobs()[0])
	require.Error(t, err)
	assert.Equal(t, 3, f.srv.Downloads())
	assert.Equal(t, http.StatusBadGateway, apperrors.StatusCode(err))
}

func TestDownloadNoRetryByDefault(t *testing.T) {
	f := newFixture(t, telegramtest.StaticSticker("f1", "u1", ""))
	f.srv.FailFile("f1", http.StatusBadGateway)

	d := New(f.client, f.store, Options{}, logger.NewNopLogger())

	_, err := d.Download(context.Background(), f.jobs()[0])
	require.Error(t, err)
	assert.Equal(t, 1, f.srv.Downloads())
}

func TestDownloadAllStopsOnAuthError(t *testing.T) {
	f := newFixture(t,
		telegramtest.StaticSticker("f0", "u0", ""),
		telegramtest.StaticSticker("f1", "u1", ""),
		telegramtest.StaticSticker("f2", "u2", ""),
	)
	f.srv.FailMethod("getFile", http.StatusUnauthorized, "Unauthorized")

	d := New(f.client, f.store, Options{Workers: 1}, logger.NewNopLogger())

	outcomes, err := d.DownloadAll(context.Background(), f.jobs(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsAuth(err))
	assert.Equal(t, 1, f.srv.Calls("getFile"))
	assert.False(t, outcomes[2].Ran)
	assert.Equal(t, 0, f.srv.Downloads())
}

func TestDownloadUsesDefaultExtension(t *testing.T) {
	f := newFixture(t, telegramtest.AnimatedSticker("f1", "u1", "🎉"))
	d := New(f.client, f.store, Options{}, logger.NewNopLogger())

	res, err := d.Download(context.Background(), f.jobs()[0])
	require.NoError(t, err)
	assert.Equal(t, "u1.tgs", res.File)
}
