// Package ident resolves free-form page references into canonical ids.
//
// A reference may be a bare id (with or without hyphens), a share link from
// notion.so or notion.site, or a link with a title slug in front of the id:
//
//	ident.Resolve("https://www.notion.so/Team-Deck-0123456789abcdef0123456789abcdef?pvs=4")
//	// "01234567-89ab-cdef-0123-456789abcdef", true
//
// Resolution never touches the network.
package ident

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/matzehuels/blockdeck/pkg/errors"
)

var (
	uuidSuffix  = regexp.MustCompile(`(?i)([0-9a-f]{8}-?[0-9a-f]{4}-?[0-9a-f]{4}-?[0-9a-f]{4}-?[0-9a-f]{12})$`)
	hex32Suffix = regexp.MustCompile(`(?i)([0-9a-f]{32})$`)
	hex32       = regexp.MustCompile(`(?i)^[0-9a-f]{32}$`)
	notionPath  = regexp.MustCompile(`notion\.(?:so|site)(/[^?#]*)`)
)

// Resolve extracts a page or block id from text and returns it in the
// canonical lowercase 8-4-4-4-12 form. The boolean is false when no id can
// be found; that is an ordinary outcome, not an error.
func Resolve(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	path := pathOf(text)
	if m := uuidSuffix.FindStringSubmatch(path); m != nil {
		return format(m[1])
	}
	if m := hex32Suffix.FindStringSubmatch(path); m != nil {
		return format(m[1])
	}
	if bare := strings.ReplaceAll(text, "-", ""); hex32.MatchString(bare) {
		return format(bare)
	}
	return "", false
}

// Parse is like [Resolve] but reports failure as an INVALID_REFERENCE error.
func Parse(text string) (string, error) {
	id, ok := Resolve(text)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidReference, "no page id found in %q", text)
	}
	return id, nil
}

// Canonical re-hyphenates a 32 character hex id. Any other input, including
// an id that is already hyphenated, is returned in canonical form when it
// parses and unchanged otherwise.
func Canonical(id string) string {
	if out, ok := format(id); ok {
		return out
	}
	return id
}

// Compact returns id with hyphens removed, the form used in share links.
func Compact(id string) string {
	return strings.ReplaceAll(id, "-", "")
}

// pathOf isolates the URL path of text. Text that is not a URL is returned
// as is so suffix matching still works on bare ids.
func pathOf(text string) string {
	if u, err := url.Parse(text); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Path
	}
	if strings.Contains(text, "notion.so/") || strings.Contains(text, "notion.site/") {
		if m := notionPath.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return text
}

func format(raw string) (string, bool) {
	compact := strings.ReplaceAll(raw, "-", "")
	if !hex32.MatchString(compact) {
		return "", false
	}
	u, err := uuid.Parse(compact)
	if err != nil {
		return "", false
	}
	return u.String(), true
}
