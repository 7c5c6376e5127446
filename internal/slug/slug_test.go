package slug

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syn-press/syn-api/internal/apperror"
)

func TestMake(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"plain title", "Hello World", "hello-world"},
		{"diacritics and punctuation", "Café & Código!", "cafe-codigo"},
		{"punctuation runs collapse", "one -- two !! three", "one-two-three"},
		{"leading and trailing junk", "  ...Breaking News!  ", "breaking-news"},
		{"digits survive", "Top 10 stories of 2025", "top-10-stories-of-2025"},
		{"already clean", "already-clean", "already-clean"},
		{"uppercase accents", "ÀÉÎÕÜ", "aeiou"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Make(tt.title)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMakeOutputShape(t *testing.T) {
	// Every slug contains only lowercase letters, digits, and single hyphens,
	// with no leading, trailing, or doubled hyphen.
	titles := []string{
		"Hello, World!",
		"Ünïcödé Sòup — with dashes",
		"a", "A!B@C#D",
		"日本語タイトル with latin tail",
		"trailing dots...",
	}
	for _, title := range titles {
		got, err := Make(title)
		require.NoError(t, err, "title %q", title)
		assert.False(t, strings.HasPrefix(got, "-"), "leading hyphen in %q", got)
		assert.False(t, strings.HasSuffix(got, "-"), "trailing hyphen in %q", got)
		assert.NotContains(t, got, "--", "doubled hyphen in %q", got)
		for _, r := range got {
			ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
			assert.True(t, ok, "unexpected rune %q in slug %q", r, got)
		}
	}
}

func TestMakeRejectsEmptyBase(t *testing.T) {
	for _, title := range []string{"", "   ", "!!!", "--- ---", "&&&"} {
		_, err := Make(title)
		require.Error(t, err, "title %q", title)
		assert.True(t, errors.Is(err, apperror.ErrInvalidTitle), "title %q", title)
	}
}

// mapExists backs ExistsFunc with a set of taken slugs keyed by post id.
func mapExists(taken map[string]string) ExistsFunc {
	return func(_ context.Context, s, excludeID string) (bool, error) {
		id, ok := taken[s]
		if !ok {
			return false, nil
		}
		return excludeID == "" || id != excludeID, nil
	}
}

func TestUnique(t *testing.T) {
	ctx := context.Background()

	t.Run("free base returned unchanged", func(t *testing.T) {
		got, err := Unique(ctx, mapExists(map[string]string{}), "cafe-codigo", "")
		require.NoError(t, err)
		assert.Equal(t, "cafe-codigo", got)
	})

	t.Run("suffixes are sequential and monotonic", func(t *testing.T) {
		taken := map[string]string{}
		want := []string{"cafe-codigo", "cafe-codigo-2", "cafe-codigo-3", "cafe-codigo-4"}
		for i, w := range want {
			got, err := Unique(ctx, mapExists(taken), "cafe-codigo", "")
			require.NoError(t, err)
			assert.Equal(t, w, got)
			// persist, as the caller would
			taken[got] = string(rune('a' + i))
		}
	})

	t.Run("lowest free suffix wins over later gaps", func(t *testing.T) {
		taken := map[string]string{
			"story":   "p1",
			"story-3": "p3",
		}
		got, err := Unique(ctx, mapExists(taken), "story", "")
		require.NoError(t, err)
		assert.Equal(t, "story-2", got)
	})

	t.Run("own id is excluded on update", func(t *testing.T) {
		taken := map[string]string{"cafe-codigo": "p1"}
		got, err := Unique(ctx, mapExists(taken), "cafe-codigo", "p1")
		require.NoError(t, err)
		assert.Equal(t, "cafe-codigo", got, "a post keeps its own slug when the title is unchanged")
	})

	t.Run("existence errors propagate", func(t *testing.T) {
		boom := errors.New("storage down")
		_, err := Unique(ctx, func(context.Context, string, string) (bool, error) {
			return false, boom
		}, "x", "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, boom))
	})
}
