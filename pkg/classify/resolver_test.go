package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResolver(ttl time.Duration, now time.Time) (*Resolver, *time.Time) {
	r := NewResolver(DefaultCatalog(), ttl)
	clock := now
	r.now = func() time.Time { return clock }
	return r, &clock
}

func TestCatalogNormalize(t *testing.T) {
	catalog := DefaultCatalog()

	cases := []struct {
		in   string
		want Category
	}{
		{"Grammar", "Grammar"},
		{"grammar", "Grammar"},
		{"  GRAMMAR  ", "Grammar"},
		{"📘 Grammar", "Grammar"},
		{"🎧 Listening & Speaking", "Listening and speaking"},
		{"listening & speaking", "Listening and speaking"},
		{"other", "Other"},
	}
	for _, tc := range cases {
		got, ok := catalog.Normalize(tc.in)
		require.True(t, ok, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}

	_, ok := catalog.Normalize("Astrophysics")
	assert.False(t, ok)
}

func TestResolveHintWithSeparator(t *testing.T) {
	r, _ := testResolver(10*time.Minute, time.Now())

	cat, note := r.Resolve("Linguistics - lecture 3 slides", SessionState{})
	assert.Equal(t, Category("Linguistics"), cat)
	assert.Equal(t, "lecture 3 slides", note)

	cat, note = r.Resolve("drama: act two", SessionState{})
	assert.Equal(t, Category("Drama"), cat)
	assert.Equal(t, "act two", note)

	cat, note = r.Resolve("Poetry | sonnets", SessionState{})
	assert.Equal(t, Category("Poetry"), cat)
	assert.Equal(t, "sonnets", note)
}

func TestResolveBareNoteAsHint(t *testing.T) {
	r, _ := testResolver(10*time.Minute, time.Now())

	cat, note := r.Resolve("grammar", SessionState{})
	assert.Equal(t, Category("Grammar"), cat)
	assert.Equal(t, "", note)
}

func TestResolveUnknownHintFallsThrough(t *testing.T) {
	r, _ := testResolver(10*time.Minute, time.Now())

	cat, note := r.Resolve("Astrophysics - problem set", SessionState{})
	assert.Equal(t, r.Catalog().Fallback(), cat)
	assert.Equal(t, "Astrophysics - problem set", note)
}

func TestResolveEmptyNoteFallsBack(t *testing.T) {
	r, _ := testResolver(10*time.Minute, time.Now())

	cat, note := r.Resolve("", SessionState{})
	assert.Equal(t, Category("Other"), cat)
	assert.Equal(t, "", note)
}

func TestStickyBindingClassifiesManySubmissions(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r, _ := testResolver(10*time.Minute, start)

	s := r.DeclareCategory(SessionState{}, "Drama")

	for i := 0; i < 3; i++ {
		cat, note := r.Resolve("handout", s)
		assert.Equal(t, Category("Drama"), cat)
		assert.Equal(t, "handout", note)
	}
}

func TestStickyBindingExpires(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r, clock := testResolver(10*time.Minute, start)

	s := r.DeclareCategory(SessionState{}, "Drama")

	*clock = start.Add(10*time.Minute - time.Second)
	cat, _ := r.Resolve("handout", s)
	assert.Equal(t, Category("Drama"), cat)

	// Expiry is evaluated lazily on the next read.
	*clock = start.Add(10 * time.Minute)
	cat, _ = r.Resolve("handout", s)
	assert.Equal(t, Category("Other"), cat)
}

func TestHintOverridesBinding(t *testing.T) {
	r, _ := testResolver(10*time.Minute, time.Now())

	s := r.DeclareCategory(SessionState{}, "Drama")
	cat, note := r.Resolve("Poetry - odes", s)
	assert.Equal(t, Category("Poetry"), cat)
	assert.Equal(t, "odes", note)
}

func TestDeclareUnknownCategoryLeavesSessionUnchanged(t *testing.T) {
	r, _ := testResolver(10*time.Minute, time.Now())

	s := r.DeclareCategory(SessionState{}, "Astrophysics")
	assert.Empty(t, s.Binding)

	cat, _ := r.Resolve("handout", s)
	assert.Equal(t, Category("Other"), cat)
}

func TestMenuSelectionBelowBinding(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r, clock := testResolver(10*time.Minute, start)

	s := r.SelectCategory(SessionState{}, "Novel")
	s = r.DeclareCategory(s, "Drama")

	cat, _ := r.Resolve("handout", s)
	assert.Equal(t, Category("Drama"), cat)

	// Binding lapses; the menu selection persists.
	*clock = start.Add(time.Hour)
	cat, _ = r.Resolve("handout", s)
	assert.Equal(t, Category("Novel"), cat)
}

func TestResolverTTLDefault(t *testing.T) {
	r := NewResolver(DefaultCatalog(), 0)
	assert.Equal(t, 10*time.Minute, r.ttl)
}
