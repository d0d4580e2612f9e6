package resolve

import (
	"slices"

	"github.com/NigeWarren/dotty/internal/types"
)

// path is the chain of in-progress requests above the current one. It is an
// immutable linked list, so sibling parameter requests never see each
// other's entries.
type path struct {
	parent *path
	entry  PathEntry
	depth  int
}

func (p *path) push(e PathEntry) *path {
	d := 0
	if p != nil {
		d = p.depth + 1
	}
	return &path{parent: p, entry: e, depth: d}
}

// entries returns the path from the outermost request to the innermost.
func (p *path) entries() []PathEntry {
	var out []PathEntry
	for x := p; x != nil; x = x.parent {
		out = append(out, x.entry)
	}
	slices.Reverse(out)
	return out
}

// recurrence reports whether e is already in progress, matching both the
// required type and the site. It returns the cycle closed by e.
func (p *path) recurrence(e PathEntry) ([]PathEntry, bool) {
	return p.cycleFrom(func(x PathEntry) bool {
		return x.Site == e.Site && x.Type.Equal(e.Type)
	}, e)
}

// len is the number of in-progress requests.
func (p *path) len() int {
	if p == nil {
		return 0
	}
	return p.depth + 1
}

// dominated reports whether e re-enters the provider of an in-progress
// request at the same site with a requirement that dominates it: same outer
// constructor, same set of constructors, a type at least as large, and not
// the same type. Such a search can only keep growing. Requests served by
// other providers never dominate each other.
func (p *path) dominated(e PathEntry) ([]PathEntry, bool) {
	head := types.Head(e.Type)
	if head == "" || e.Ref == "" {
		return nil, false
	}
	size := types.Size(e.Type)
	cover := types.Constructors(e.Type)
	return p.cycleFrom(func(x PathEntry) bool {
		return x.Ref == e.Ref &&
			x.Site == e.Site &&
			types.Head(x.Type) == head &&
			size >= types.Size(x.Type) &&
			!x.Type.Equal(e.Type) &&
			slices.Equal(types.Constructors(x.Type), cover)
	}, e)
}

// cycleFrom finds the outermost entry satisfying match and returns the path
// from it to the top, followed by e.
func (p *path) cycleFrom(match func(PathEntry) bool, e PathEntry) ([]PathEntry, bool) {
	if p == nil {
		return nil, false
	}
	all := p.entries()
	for i, x := range all {
		if match(x) {
			cycle := make([]PathEntry, 0, len(all)-i+1)
			cycle = append(cycle, all[i:]...)
			return append(cycle, e), true
		}
	}
	return nil, false
}
