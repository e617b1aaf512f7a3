// Package retry provides exponential backoff and retry logic for transient
// download failures.
//
// Only transport failures, HTTP 429 and 5xx are retried by default. Auth,
// not-found and conversion errors are returned immediately.
//
// Basic usage:
//
//	cfg := retry.ForDownloads(cfg.Download.MaxRetries, cfg.Download.RetryDelay, log)
//	err := retry.Do(ctx, func(ctx context.Context) error {
//		return download(ctx, item)
//	}, cfg)
package retry
