// Package classify assigns incoming items to categories. The resolver is a
// pure function over the submission note, the caller-owned session state,
// and the configured category catalog; it never fails and never touches
// storage.
package classify

import (
	"strings"
	"unicode"
)

// Category is a fixed classification tag for an archived item. The set of
// categories is configuration-defined and not user-extensible at runtime.
type Category string

// CategorySpec pairs a category's stored name with the label shown by the
// presentation layer. Labels commonly carry a leading emoji; Normalize
// accepts them with or without it.
type CategorySpec struct {
	Name  Category
	Label string
}

// Catalog is the configured category set with case-insensitive name and
// label matching.
type Catalog struct {
	specs    []CategorySpec
	byAlias  map[string]Category
	fallback Category
}

// NewCatalog builds a catalog from specs. fallback is the catch-all
// category returned when nothing else matches; it is added to the catalog
// if absent from specs.
func NewCatalog(specs []CategorySpec, fallback Category) *Catalog {
	c := &Catalog{
		specs:    specs,
		byAlias:  make(map[string]Category),
		fallback: fallback,
	}
	for _, spec := range specs {
		c.addAlias(string(spec.Name), spec.Name)
		c.addAlias(spec.Label, spec.Name)
		c.addAlias(stripLeadingSymbols(spec.Label), spec.Name)
	}
	if _, ok := c.byAlias[strings.ToLower(string(fallback))]; !ok {
		c.specs = append(c.specs, CategorySpec{Name: fallback, Label: string(fallback)})
		c.addAlias(string(fallback), fallback)
	}
	return c
}

func (c *Catalog) addAlias(alias string, cat Category) {
	alias = strings.ToLower(strings.TrimSpace(alias))
	if alias != "" {
		c.byAlias[alias] = cat
	}
}

// Categories returns the configured categories in declaration order.
func (c *Catalog) Categories() []CategorySpec { return c.specs }

// Fallback returns the catch-all category.
func (c *Catalog) Fallback() Category { return c.fallback }

// Normalize matches s against category names and labels,
// case-insensitively, with or without the label's leading emoji.
func (c *Catalog) Normalize(s string) (Category, bool) {
	cat, ok := c.byAlias[strings.ToLower(strings.TrimSpace(s))]
	return cat, ok
}

// stripLeadingSymbols removes leading non-letter, non-digit runes so that
// an emoji-prefixed label matches its plain-text form.
func stripLeadingSymbols(s string) string {
	return strings.TrimLeftFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// DefaultCatalog returns the stock university-subject catalog.
func DefaultCatalog() *Catalog {
	return NewCatalog([]CategorySpec{
		{Name: "Poetry", Label: "✒️ Poetry"},
		{Name: "Writing", Label: "📝 Writing"},
		{Name: "Psychological Health", Label: "🧠 Psychological Health"},
		{Name: "Drama", Label: "🎭 Drama"},
		{Name: "Linguistics", Label: "🧩 Linguistics"},
		{Name: "Novel", Label: "📖 Novel"},
		{Name: "Pedagogy and Curriculum Innovation", Label: "🎓 Pedagogy & Curriculum Innovation"},
		{Name: "Grammar", Label: "📘 Grammar"},
		{Name: "Listening and speaking", Label: "🎧 Listening & Speaking"},
		{Name: "Other", Label: "📦 Other"},
	}, "Other")
}
