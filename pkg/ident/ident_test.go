package ident

import (
	"strings"
	"testing"

	"github.com/matzehuels/blockdeck/pkg/errors"
)

const (
	compactID   = "0123456789abcdef0123456789abcdef"
	canonicalID = "01234567-89ab-cdef-0123-456789abcdef"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		wantOK bool
	}{
		{"bare compact", compactID, canonicalID, true},
		{"bare hyphenated", canonicalID, canonicalID, true},
		{"uppercase", strings.ToUpper(compactID), canonicalID, true},
		{"surrounding space", "  " + compactID + "\n", canonicalID, true},
		{"notion.so link", "https://www.notion.so/" + compactID, canonicalID, true},
		{"notion.so title slug", "https://www.notion.so/workspace/Team-Deck-" + compactID, canonicalID, true},
		{"query and fragment", "https://www.notion.so/Deck-" + compactID + "?pvs=4#abc", canonicalID, true},
		{"notion.site", "https://acme.notion.site/Deck-" + compactID, canonicalID, true},
		{"hyphenated in link", "https://www.notion.so/" + canonicalID, canonicalID, true},
		{"schemeless link", "notion.so/acme/Deck-" + compactID + "?v=1", canonicalID, true},
		{"other host", "https://example.com/p/" + compactID, canonicalID, true},
		{"stray hyphens", "0123-4567-89ab-cdef-0123-4567-89ab-cdef", canonicalID, true},

		{"empty", "", "", false},
		{"whitespace", "   ", "", false},
		{"too short", compactID[:31], "", false},
		{"not hex", strings.Repeat("g", 32), "", false},
		{"link without id", "https://www.notion.so/acme/Deck", "", false},
		{"id not at end", "https://www.notion.so/" + compactID + "/extra", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Resolve(%q) = %q, %v; want %q, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestResolveRoundTrip(t *testing.T) {
	ids := []string{
		compactID,
		"ffffffffffffffffffffffffffffffff",
		"00000000000000000000000000000000",
		"a1b2c3d4e5f60718293a4b5c6d7e8f90",
	}
	for _, id := range ids {
		canon := Canonical(id)
		for _, form := range []string{id, canon, "https://www.notion.so/x-" + id, "https://a.notion.site/" + canon} {
			got, ok := Resolve(form)
			if !ok || got != canon {
				t.Errorf("Resolve(%q) = %q, %v; want %q", form, got, ok, canon)
			}
		}
	}
}

func TestParse(t *testing.T) {
	id, err := Parse(compactID)
	if err != nil || id != canonicalID {
		t.Errorf("Parse() = %q, %v", id, err)
	}

	_, err = Parse("not a page")
	if !errors.Is(err, errors.ErrCodeInvalidReference) {
		t.Errorf("Parse() code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidReference)
	}
}

func TestCanonical(t *testing.T) {
	if got := Canonical(compactID); got != canonicalID {
		t.Errorf("Canonical() = %q, want %q", got, canonicalID)
	}
	if got := Canonical("nope"); got != "nope" {
		t.Errorf("Canonical(nope) = %q, want unchanged", got)
	}
	if got := Compact(canonicalID); got != compactID {
		t.Errorf("Compact() = %q, want %q", got, compactID)
	}
}
