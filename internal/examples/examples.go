package examples

import (
	"os"
	"path/filepath"

	"github.com/samber/lo"
)

// Default lists one sample image per category.
var Default = []string{"bear_black.jpg", "bear_grizzly.jpg", "bear_teddy.jpg"}

type Example struct {
	Name string `json:"name"`
	Path string `json:"-"`
}

type Resolver interface {
	Path(name string) string
}

// Set is the fixed collection of example images offered by the demo page.
type Set struct {
	items []Example
}

func NewSet(items ...Example) *Set {
	return &Set{items: items}
}

// Resolve locates each named example through r. Files that do not exist are
// left out of the set and their names returned separately.
func Resolve(r Resolver, names []string) (*Set, []string) {
	var missing []string
	items := lo.FilterMap(names, func(name string, _ int) (Example, bool) {
		path := r.Path(name)
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			missing = append(missing, name)
			return Example{}, false
		}
		return Example{Name: filepath.Base(name), Path: path}, true
	})
	return NewSet(items...), missing
}

func (s *Set) All() []Example {
	return append([]Example(nil), s.items...)
}

func (s *Set) Names() []string {
	return lo.Map(s.items, func(e Example, _ int) string { return e.Name })
}

func (s *Set) Len() int {
	return len(s.items)
}

// Lookup only matches registered names, so request input never reaches the
// filesystem directly.
func (s *Set) Lookup(name string) (Example, bool) {
	return lo.Find(s.items, func(e Example) bool { return e.Name == name })
}
