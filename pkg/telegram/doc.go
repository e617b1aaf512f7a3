// Package telegram is a small Bot API client for sticker sets. It wraps
// go-telegram-bot-api for method calls and streams file downloads over the
// same http.Client, mapping failures onto the pkg/errors taxonomy.
package telegram
