package fetcher

import (
	"time"

	"stickerdl/pkg/metadata"
)

// Item is the outcome for one sticker of the set
type Item struct {
	Index        int
	FileUniqueID string
	Emoji        string
	Format       string
	// File is the final file name inside the set directory
	File   string
	Size   int64
	Status string
	// Reason explains a skip
	Reason string
	Err    error
}

// Report summarizes one set
type Report struct {
	SetName  string
	Title    string
	Dir      string
	Items    []Item
	Duration time.Duration
}

// Count returns how many items have status
func (r *Report) Count(status string) int {
	n := 0
	for _, it := range r.Items {
		if it.Status == status {
			n++
		}
	}
	return n
}

func (r *Report) Total() int     { return len(r.Items) }
func (r *Report) Converted() int { return r.Count(metadata.StatusConverted) }
func (r *Report) Kept() int      { return r.Count(metadata.StatusKept) }
func (r *Report) Skipped() int   { return r.Count(metadata.StatusSkipped) }
func (r *Report) Failed() int    { return r.Count(metadata.StatusFailed) }

// Failures returns the failed items ordered by index
func (r *Report) Failures() []Item {
	var out []Item
	for _, it := range r.Items {
		if it.Status == metadata.StatusFailed {
			out = append(out, it)
		}
	}
	return out
}

// Skips returns the skipped items ordered by index
func (r *Report) Skips() []Item {
	var out []Item
	for _, it := range r.Items {
		if it.Status == metadata.StatusSkipped {
			out = append(out, it)
		}
	}
	return out
}

// Written returns the number of files the set produced
func (r *Report) Written() int {
	return r.Converted() + r.Kept()
}
