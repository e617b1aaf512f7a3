package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stickerdl/internal/downloader"
	"stickerdl/pkg/config"
	"stickerdl/pkg/convert"
	apperrors "stickerdl/pkg/errors"
	"stickerdl/pkg/logger"
	"stickerdl/pkg/metadata"
	"stickerdl/pkg/ratelimit"
	"stickerdl/pkg/storage"
	"stickerdl/pkg/telegram"
	"stickerdl/pkg/ui"
)

// Options control one Fetcher
type Options struct {
	BaseDir           string
	AnimatedPolicy    string
	OverwriteExisting bool
	SaveMetadata      bool
	KeepSource        bool
	CanvasSize        int
	Workers           int
	MaxRetries        int
	RetryDelay        time.Duration
	Limiter           ratelimit.Limiter
	// Bot is recorded in pack.json
	Bot string
}

// OptionsFromConfig maps the user configuration onto Options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BaseDir:           cfg.Output.BaseDirectory,
		AnimatedPolicy:    cfg.Conversion.AnimatedPolicy,
		OverwriteExisting: cfg.Output.OverwriteExisting,
		SaveMetadata:      cfg.Output.SaveMetadata,
		KeepSource:        cfg.Output.KeepSource,
		CanvasSize:        cfg.Conversion.CanvasSize,
		Workers:           cfg.Download.ConcurrentDownloads,
		MaxRetries:        cfg.Download.MaxRetries,
		RetryDelay:        cfg.Download.RetryDelay,
		Limiter:           ratelimit.PerSecond(float64(cfg.Telegram.RequestsPerSecond)),
	}
}

// Hooks let the caller follow the pipeline. Both are optional.
type Hooks struct {
	// Resolved runs once the set metadata arrived and returns the observer
	// for the rest of the set. A nil observer discards progress.
	Resolved func(set *telegram.StickerSet) ui.ProgressObserver
	// Phase runs before each phase begins. An error aborts the set.
	Phase func(phase ui.Phase) error
}

// Fetcher downloads and converts whole sticker sets
type Fetcher struct {
	api       StickerAPI
	opts      Options
	converter *convert.Converter
	logger    logger.Logger
}

// New creates a Fetcher
func New(api StickerAPI, opts Options, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseDir == "" {
		opts.BaseDir = "stickers"
	}
	if opts.AnimatedPolicy == "" {
		opts.AnimatedPolicy = config.AnimatedPolicySkip
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.Unlimited{}
	}

	return &Fetcher{
		api:  api,
		opts: opts,
		converter: convert.New(convert.Options{
			CanvasSize: opts.CanvasSize,
			KeepSource: opts.KeepSource,
		}, log),
		logger: log.WithField("component", "fetcher"),
	}
}

type convertJob struct {
	item int
	path string
}

// DownloadSet runs the whole pipeline for the set called name. Set-level
// failures (unknown set, auth, network) return a nil report. Once the
// metadata is known a report is always returned, together with the error
// that stopped the set early, if any.
func (f *Fetcher) DownloadSet(ctx context.Context, name string, hooks Hooks) (*Report, error) {
	start := time.Now()

	set, err := f.api.GetStickerSet(ctx, name)
	if err != nil {
		return nil, err
	}

	var obs ui.ProgressObserver = ui.NopObserver{}
	if hooks.Resolved != nil {
		if o := hooks.Resolved(set); o != nil {
			obs = o
		}
	}

	store, err := storage.NewManager(f.opts.BaseDir, set.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare output directory: %w", err)
	}

	log := f.logger.WithField("set", set.Name)
	log.InfoWithFields("Sticker set resolved", map[string]interface{}{
		"title":    set.Title,
		"stickers": len(set.Stickers),
		"dir":      store.GetOutputDir(),
	})

	report := &Report{
		SetName: set.Name,
		Title:   set.Title,
		Dir:     store.GetOutputDir(),
		Items:   make([]Item, len(set.Stickers)),
	}
	defer func() { report.Duration = time.Since(start) }()

	var (
		jobs     []downloader.Job
		jobItems []int
	)
	for i, s := range set.Stickers {
		report.Items[i] = Item{
			Index:        i,
			FileUniqueID: s.FileUniqueID,
			Emoji:        s.Emoji,
			Format:       s.Format(),
			Status:       metadata.StatusPending,
		}

		if !s.IsStatic() && f.opts.AnimatedPolicy == config.AnimatedPolicySkip {
			f.skip(report, i, "animated")
			obs.Notice(fmt.Sprintf("skipped animated sticker %s %s", s.FileUniqueID, s.Emoji))
			continue
		}

		if existing := f.existingFile(store, s); existing != "" {
			f.skip(report, i, "already downloaded")
			report.Items[i].File = existing
			continue
		}

		jobs = append(jobs, downloader.Job{SetName: set.Name, Sticker: s})
		jobItems = append(jobItems, i)
	}

	// download phase
	if err := f.enterPhase(hooks, ui.PhaseDownload); err != nil {
		return report, err
	}
	dl := downloader.New(f.api, store, downloader.Options{
		Workers:    f.opts.Workers,
		MaxRetries: f.opts.MaxRetries,
		RetryDelay: f.opts.RetryDelay,
		Limiter:    f.opts.Limiter,
	}, log)

	obs.Begin(ui.PhaseDownload, len(jobs))
	outcomes, stopErr := dl.DownloadAll(ctx, jobs, func(downloader.Outcome[downloader.Result]) {
		obs.Advance(ui.PhaseDownload)
	})
	obs.End(ui.PhaseDownload)

	var conversions []convertJob
	for k, o := range outcomes {
		i := jobItems[k]
		it := &report.Items[i]
		if o.Err != nil {
			it.Status = metadata.StatusFailed
			it.Err = o.Err
			if o.Ran {
				obs.Notice(fmt.Sprintf("failed to download %s: %v", it.FileUniqueID, o.Err))
			}
			continue
		}

		it.File = o.Value.File
		it.Size = o.Value.Size
		if set.Stickers[i].IsStatic() {
			conversions = append(conversions, convertJob{item: i, path: o.Value.Path})
		} else {
			it.Status = metadata.StatusKept
		}
	}

	if stopErr != nil {
		f.finish(report, set, store, log)
		return report, stopErr
	}

	// convert phase
	if err := f.enterPhase(hooks, ui.PhaseConvert); err != nil {
		f.finish(report, set, store, log)
		return report, err
	}

	pool := downloader.NewWorkerPool[convertJob, string](f.opts.Workers, func(ctx context.Context, _ int, job convertJob) (string, error) {
		return f.converter.ConvertFile(job.path)
	}, log).OnResult(func(downloader.Outcome[string]) {
		obs.Advance(ui.PhaseConvert)
	})

	obs.Begin(ui.PhaseConvert, len(conversions))
	converted, stopErr := pool.Run(ctx, conversions)
	obs.End(ui.PhaseConvert)

	for k, o := range converted {
		it := &report.Items[conversions[k].item]
		if o.Err != nil {
			it.Status = metadata.StatusFailed
			it.Err = o.Err
			if o.Ran {
				obs.Notice(fmt.Sprintf("failed to convert %s: %v", it.FileUniqueID, o.Err))
			}
			continue
		}

		it.Status = metadata.StatusConverted
		it.File = filepath.Base(o.Value)
		if info, err := os.Stat(o.Value); err == nil {
			it.Size = info.Size()
		}
	}

	f.finish(report, set, store, log)
	return report, stopErr
}

func (f *Fetcher) enterPhase(hooks Hooks, phase ui.Phase) error {
	if hooks.Phase == nil {
		return nil
	}
	return hooks.Phase(phase)
}

func (f *Fetcher) skip(report *Report, i int, reason string) {
	report.Items[i].Status = metadata.StatusSkipped
	report.Items[i].Reason = reason
}

// existingFile returns the name of a finished file for s, or "" when s has
// to be fetched
func (f *Fetcher) existingFile(store *storage.Manager, s telegram.Sticker) string {
	if f.opts.OverwriteExisting {
		return ""
	}

	ext := ".png"
	if !s.IsStatic() {
		ext = s.DefaultExt()
	}
	name := storage.FileName(s.FileUniqueID, s.Emoji, ext)
	if store.Exists(name) {
		return name
	}
	return ""
}

// finish logs the outcome and writes pack.json when enabled
func (f *Fetcher) finish(report *Report, set *telegram.StickerSet, store *storage.Manager, log logger.Logger) {
	for _, it := range report.Failures() {
		log.WithError(it.Err).InfoWithFields("Sticker failed", map[string]interface{}{
			"index":          it.Index,
			"file_unique_id": it.FileUniqueID,
			"error_type":     string(apperrors.TypeOf(it.Err)),
		})
	}

	log.InfoWithFields("Sticker set finished", map[string]interface{}{
		"converted": report.Converted(),
		"kept":      report.Kept(),
		"skipped":   report.Skipped(),
		"failed":    report.Failed(),
	})

	if !f.opts.SaveMetadata {
		return
	}

	manifest := metadata.FromStickerSet(set)
	manifest.Bot = f.opts.Bot
	for _, it := range report.Items {
		manifest.Record(it.Index, it.File, it.Status, it.Size, it.Err)
	}
	if err := manifest.Save(store.GetOutputDir()); err != nil {
		log.WithError(err).Warn("Failed to write pack manifest")
	}
}
