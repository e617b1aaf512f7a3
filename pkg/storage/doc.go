// Package storage manages one directory per sticker set. Files are written
// through a temporary file and renamed into place, so an interrupted run
// never leaves a truncated sticker under its final name.
package storage
