// Package namespace implements the per-session mount table and walk
// resolution: an indexed arena of bind/mount entries with cycle
// detection at insert time, resolved by bounded iteration — a flat
// slice of entries rather than a linked, pointer-chasing structure.
package namespace

import (
	"strings"

	"github.com/cohesix/ninedoor/internal/constants"
	"github.com/cohesix/ninedoor/internal/errcode"
)

// Binding is a session-scoped path alias: reads/writes under From are
// redirected to To.
type Binding struct {
	From string
	To string
}

// Mount attaches a named service at an absolute path. Only a queen
// session may install one (enforced by the caller, not here).
type Mount struct {
	Service string
	At string
}

// Table is one session's mount table: an ordered list of bindings and
// mounts, resolved leaves-first (MountTable).
type Table struct {
	bindings []Binding
	mounts []Mount
}

// New returns an empty mount table.
func New() *Table { return &Table{} }

func normalize(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimSuffix(p, "/")
}

// Bind appends a (from, to) alias, rejecting it if it would introduce
// a resolution cycle.
func (t *Table) Bind(from, to string) error {
	from, to = normalize(from), normalize(to)
	trial := append(append([]Binding{}, t.bindings...), Binding{From: from, To: to})
	if hasCycle(trial) {
		return errcode.New("bind", errcode.Invalid, "bind would introduce an alias cycle")
	}
	t.bindings = trial
	return nil
}

// Mount appends a (service, mountpoint) entry.
func (t *Table) Mount(service, at string) error {
	t.mounts = append(t.mounts, Mount{Service: service, At: normalize(at)})
	return nil
}

// Mounts returns the mount list in insertion order.
func (t *Table) Mounts() []Mount {
	out := make([]Mount, len(t.mounts))
	copy(out, t.mounts)
	return out
}

// hasCycle reports whether the binding set contains a prefix-rewrite
// cycle, checked by bounded iteration (walk-depth cap) from every
// binding's From path.
func hasCycle(bindings []Binding) bool {
	for _, b := range bindings {
		seen := map[string]bool{b.From: true}
		cur := b.From
		for i := 0; i < constants.MaxWalkDepth+1; i++ {
			next, rewritten := applyOnce(bindings, cur)
			if !rewritten {
				break
			}
			if seen[next] {
				return true
			}
			seen[next] = true
			cur = next
		}
	}
	return false
}

// applyOnce rewrites path by the first binding whose From is a prefix
// of path, or reports no rewrite applied.
func applyOnce(bindings []Binding, path string) (string, bool) {
	for _, b := range bindings {
		if path == b.From {
			return b.To, true
		}
		if strings.HasPrefix(path, b.From+"/") {
			return b.To + path[len(b.From):], true
		}
	}
	return path, false
}

// Resolve rewrites path through the table's bindings, leaves-first,
// bounded to walk-depth iterations.
func (t *Table) Resolve(path string) (string, error) {
	path = normalize(path)
	for i := 0; i < constants.MaxWalkDepth+1; i++ {
		next, rewritten := applyOnce(t.bindings, path)
		if !rewritten {
			return path, nil
		}
		path = next
	}
	return "", errcode.New("resolve", errcode.Invalid, "resolution did not converge within walk depth")
}

// Walk composes path segments (from an already-resolved base) and
// validates against the walk-depth cap.
func Walk(base string, names []string) (string, error) {
	if len(names) > constants.MaxWalkDepth {
		return "", errcode.New("walk", errcode.Invalid, "walk depth exceeds bound")
	}
	p := normalize(base)
	for _, n := range names {
		if n == "" || n == ".." {
			return "", errcode.New("walk", errcode.Invalid, "empty or parent component")
		}
		if p == "/" {
			p = "/" + n
		} else {
			p = p + "/" + n
		}
	}
	return p, nil
}
