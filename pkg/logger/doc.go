// Package logger wraps zerolog behind a small Logger interface.
//
// Console output goes to stderr so it never mixes with the interactive
// prompt on stdout; an optional file sink receives the same events.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("set", name)
//	log.WithError(err).Warn("Set failed")
//
// Tests use NewTestLogger to capture and assert on messages, or
// NewNopLogger to discard them.
package logger
