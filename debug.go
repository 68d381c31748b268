package ecr

import (
	"sort"
	"strings"
)

// String renders a Signature's component type names sorted and bracketed,
// e.g. "[Position, Velocity]" — adapted from the teacher's entity.go
// ComponentsAsString, which did the same sort-then-join for a live entity's
// component list. Tags are not included. Names come from the registered
// componentInfo and fall back to a hex key when nothing was registered for
// them; names set through a NameRegistry are not consulted.
func (s Signature) String() string {
	var names []string
	s.ForEachTypeKey(func(k TypeKey) {
		if info, ok := lookupComponentInfo(k); ok {
			names = append(names, info.name)
		} else {
			names = append(names, hexKey(uint64(k)))
		}
	})
	if len(names) == 0 {
		return "[]"
	}
	sort.Strings(names)
	return "[" + strings.Join(names, ", ") + "]"
}
