// Package slug turns post titles into URL-safe, collision-free identifiers.
//
// Generation is a pure transform (Make); uniqueness resolution (Unique) only
// reads slug existence through a callback, so the package has no storage
// dependency and is trivially testable.
package slug

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/syn-press/syn-api/internal/apperror"
)

// stripMarks decomposes to NFD and drops combining marks, so "é" becomes "e".
// NFC recomposes whatever survives. Built once; Transform chains are stateless
// between String calls.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Make normalizes a title into a slug base: diacritics stripped, lowercased,
// every run of non-alphanumeric characters collapsed into a single hyphen,
// no leading or trailing hyphen.
//
// A title that normalizes to nothing (empty, all punctuation) yields
// ErrInvalidTitle — callers must never persist a slug from an empty base.
func Make(title string) (string, error) {
	s, _, err := transform.String(stripMarks, title)
	if err != nil {
		// Invalid UTF-8 in the title; fall back to the raw string so the
		// rune walk below can still discard the garbage bytes.
		s = title
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	prevHyphen := true // suppresses a leading hyphen
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			prevHyphen = false
			continue
		}
		if !prevHyphen {
			b.WriteByte('-')
			prevHyphen = true
		}
	}

	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "", apperror.InvalidTitle("title produces an empty slug")
	}
	return out, nil
}

// ExistsFunc reports whether a slug is already taken. When excludeID is
// non-empty the post with that id is ignored, so a post keeps its own slug
// across edits.
type ExistsFunc func(ctx context.Context, slug, excludeID string) (bool, error)

// Unique resolves base into an unused slug by probing base, base-2, base-3, …
// sequentially. The lowest free integer suffix always wins, which makes slugs
// for identical titles deterministic and gap-free.
//
// The read-then-write window this leaves open is closed by the caller: the
// storage layer carries a unique index on slug, and writers retry Unique on a
// constraint violation.
func Unique(ctx context.Context, exists ExistsFunc, base, excludeID string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		taken, err := exists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("slug: checking %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}
