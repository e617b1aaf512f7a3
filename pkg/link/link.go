// Package link turns pasted sticker pack links into sticker set short names.
package link

import (
	"net/url"
	"regexp"
	"strings"

	apperrors "stickerdl/pkg/errors"
)

var (
	shortNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)

	knownHosts = map[string]bool{
		"t.me":            true,
		"www.t.me":        true,
		"telegram.me":     true,
		"www.telegram.me": true,
		"telegram.dog":    true,
	}

	// path prefixes and /commands that precede a set name
	setActions = map[string]bool{
		"addstickers": true,
		"addemoji":    true,
	}
)

// IsShortName reports whether s already has the shape of a set name
func IsShortName(s string) bool {
	return shortNamePattern.MatchString(s)
}

// Resolve extracts the sticker set short name from a link, a tg:// deep
// link, an "/addstickers <name>" command or a bare name. Resolving a bare
// name returns it unchanged.
func Resolve(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", apperrors.NewInvalidInputError("empty sticker pack link")
	}

	if IsShortName(s) {
		return s, nil
	}

	var name string
	switch {
	case strings.HasPrefix(s, "/"):
		name = fromCommand(s)
	case strings.HasPrefix(strings.ToLower(s), "tg://"):
		name = fromDeepLink(s)
	default:
		name = fromURL(s)
	}

	if !IsShortName(name) {
		return "", apperrors.NewInvalidInputError("no sticker set name found in %q", s)
	}
	return name, nil
}

// fromCommand handles "/addstickers Name" and "/addstickers/Name"
func fromCommand(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == ' ' || r == '\t'
	})
	if len(fields) != 2 || !setActions[strings.ToLower(fields[0])] {
		return ""
	}
	return fields[1]
}

// fromDeepLink handles tg://addstickers?set=Name
func fromDeepLink(s string) string {
	u, err := url.Parse(s)
	if err != nil || !setActions[strings.ToLower(u.Host)] {
		return ""
	}
	return u.Query().Get("set")
}

// fromURL handles https://t.me/addstickers/Name with or without a scheme
func fromURL(s string) string {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return ""
	}
	if !knownHosts[strings.ToLower(u.Hostname())] {
		return ""
	}

	segments := strings.FieldsFunc(u.Path, func(r rune) bool { return r == '/' })
	if len(segments) != 2 || !setActions[strings.ToLower(segments[0])] {
		return ""
	}
	return segments[1]
}

// Split breaks user input holding several links separated by commas or
// newlines into trimmed, non-empty entries
func Split(input string) []string {
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
