// Package fetcher runs the pipeline for one sticker set: fetch the set
// metadata, download every sticker into <base>/<set name>/, convert the
// static ones to PNG and report the outcome of each item.
//
// Items fail independently. Only an auth error or cancellation stops a set
// early, and even then the report covers every item.
package fetcher
