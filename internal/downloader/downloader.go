package downloader

import (
	"context"
	"errors"
	"io"
	"time"

	apperrors "stickerdl/pkg/errors"
	"stickerdl/pkg/logger"
	"stickerdl/pkg/ratelimit"
	"stickerdl/pkg/retry"
	"stickerdl/pkg/storage"
	"stickerdl/pkg/telegram"
)

// FileSource resolves and streams sticker files
type FileSource interface {
	ResolveFile(ctx context.Context, fileID string) (telegram.RemoteFile, error)
	OpenFile(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// FileStorage stores downloaded files by name
type FileStorage interface {
	Save(r io.Reader, name string) (int64, error)
	Path(name string) string
}

// Job is one sticker to download
type Job struct {
	SetName string
	Sticker telegram.Sticker
}

// Result describes a downloaded sticker
type Result struct {
	File string
	Path string
	Size int64
}

// Downloader transfers sticker files into a set directory
type Downloader struct {
	source  FileSource
	store   FileStorage
	limiter ratelimit.Limiter
	retry   *retry.Config
	workers int
	logger  logger.Logger
}

// Options tune a Downloader
type Options struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
	Limiter    ratelimit.Limiter
}

// New creates a Downloader writing into store
func New(source FileSource, store FileStorage, opts Options, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}

	return &Downloader{
		source:  source,
		store:   store,
		limiter: opts.Limiter,
		retry:   retry.ForDownloads(opts.MaxRetries, opts.RetryDelay, log),
		workers: opts.Workers,
		logger:  log.WithField("component", "downloader"),
	}
}

// Download resolves and saves a single sticker. getFile failures keep their
// API error type; transfer and disk failures are download errors.
func (d *Downloader) Download(ctx context.Context, job Job) (Result, error) {
	if err := d.limiter.Wait(ctx); err != nil {
		return Result{}, err
	}

	remote, err := d.source.ResolveFile(ctx, job.Sticker.FileID)
	if err != nil {
		return Result{}, err
	}

	ext := remote.Ext()
	if ext == "" {
		ext = job.Sticker.DefaultExt()
	}
	name := storage.FileName(job.Sticker.FileUniqueID, job.Sticker.Emoji, ext)

	size, err := retry.DoWithResult(ctx, func(ctx context.Context) (int64, error) {
		body, _, err := d.source.OpenFile(ctx, remote.URL)
		if err != nil {
			return 0, err
		}
		defer body.Close()

		n, err := d.store.Save(body, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, ctxErr
			}
			return 0, apperrors.NewDownloadError(err, "failed to save "+name)
		}
		return n, nil
	}, d.retry)

	logger.LogDownload(d.logger, job.SetName, job.Sticker.FileUniqueID, statusOf(err), err)
	if err != nil {
		return Result{}, err
	}

	return Result{File: name, Path: d.store.Path(name), Size: size}, nil
}

// DownloadAll downloads jobs with a bounded worker pool. An auth error stops
// the remaining jobs and is returned; other failures stay in their outcome.
func (d *Downloader) DownloadAll(ctx context.Context, jobs []Job, onResult func(Outcome[Result])) ([]Outcome[Result], error) {
	pool := NewWorkerPool[Job, Result](d.workers, func(ctx context.Context, _ int, job Job) (Result, error) {
		return d.Download(ctx, job)
	}, d.logger).StopOn(apperrors.IsAuth)

	if onResult != nil {
		pool.OnResult(onResult)
	}
	return pool.Run(ctx, jobs)
}

func statusOf(err error) string {
	switch {
	case err == nil:
		return "saved"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "failed"
	}
}
