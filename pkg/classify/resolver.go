package classify

import (
	"strings"
	"time"
)

// SessionState is the caller-owned classification state for one session.
// It is passed into the resolver and returned updated from DeclareCategory;
// the resolver never shares or retains it.
type SessionState struct {
	// Binding is the sticky category declared for subsequent submissions.
	Binding Category `json:"binding,omitempty"`
	// BindingExpires bounds the binding in wall-clock time. Expiry is
	// evaluated lazily on each read; there is no live timer.
	BindingExpires time.Time `json:"bindingExpires,omitempty"`
	// MenuSelection is a category chosen through prior menu navigation,
	// in effect until the session replaces it.
	MenuSelection Category `json:"menuSelection,omitempty"`
}

// ActiveBinding returns the sticky binding if it has not lapsed at now.
func (s SessionState) ActiveBinding(now time.Time) (Category, bool) {
	if s.Binding == "" || !now.Before(s.BindingExpires) {
		return "", false
	}
	return s.Binding, true
}

// Resolver assigns a category to an incoming item. Resolution never fails;
// it degrades to the catalog's catch-all category.
type Resolver struct {
	catalog *Catalog
	ttl     time.Duration
	now     func() time.Time
}

// NewResolver creates a Resolver. ttl bounds sticky bindings; values <= 0
// fall back to 10 minutes.
func NewResolver(catalog *Catalog, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Resolver{catalog: catalog, ttl: ttl, now: time.Now}
}

// Catalog returns the resolver's category catalog.
func (r *Resolver) Catalog() *Catalog { return r.catalog }

// DeclareCategory sets the session's sticky binding with the resolver's
// TTL. Unknown categories leave the session unchanged.
func (r *Resolver) DeclareCategory(s SessionState, c Category) SessionState {
	cat, ok := r.catalog.Normalize(string(c))
	if !ok {
		return s
	}
	s.Binding = cat
	s.BindingExpires = r.now().Add(r.ttl)
	return s
}

// SelectCategory records a category chosen through menu navigation.
func (r *Resolver) SelectCategory(s SessionState, c Category) SessionState {
	if cat, ok := r.catalog.Normalize(string(c)); ok {
		s.MenuSelection = cat
	}
	return s
}

// Resolve determines the category for an item accompanied by note, in
// order: an explicit hint parsed from the note, the session's unexpired
// sticky binding, the session's menu selection, the catch-all category.
// The returned note is the text to store: when a hint was extracted it is
// the remainder after the separator, otherwise the input unchanged.
//
// Resolving consumes nothing: a sticky binding stays in effect until its
// TTL lapses, so one declaration can classify many submissions.
func (r *Resolver) Resolve(note string, s SessionState) (Category, string) {
	if cat, rest, ok := r.parseHint(note); ok {
		return cat, rest
	}
	if cat, ok := s.ActiveBinding(r.now()); ok {
		return cat, note
	}
	if s.MenuSelection != "" {
		if cat, ok := r.catalog.Normalize(string(s.MenuSelection)); ok {
			return cat, note
		}
	}
	return r.catalog.Fallback(), note
}

// hintSeparators split a note into a candidate category name and the
// remaining text, as in "Linguistics - lecture 3 slides".
const hintSeparators = "-:|"

// parseHint tests the text before the first separator (or the whole note
// when there is none) as a category name.
func (r *Resolver) parseHint(note string) (Category, string, bool) {
	trimmed := strings.TrimSpace(note)
	if trimmed == "" {
		return "", "", false
	}
	if i := strings.IndexAny(trimmed, hintSeparators); i >= 0 {
		if cat, ok := r.catalog.Normalize(trimmed[:i]); ok {
			return cat, strings.TrimSpace(trimmed[i+1:]), true
		}
		return "", "", false
	}
	if cat, ok := r.catalog.Normalize(trimmed); ok {
		return cat, "", true
	}
	return "", "", false
}
