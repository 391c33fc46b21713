package engine

import (
	"github.com/vango-dev/vtree/pkg/scope"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// diffChildren diffs two sibling lists. parent is the element that owns
// them, or nil for a fragment.
//
// Lists where any sibling carries a key are matched by key; unkeyed
// siblings in such a list never match and are recreated. Lists without
// keys are matched by position.
func (v *VirtualDom) diffChildren(prev, next []*vdom.VNode, m *vdom.Mutations, owner *scope.Scope, parent *vdom.VNode) {
	switch {
	case len(prev) == 0 && len(next) == 0:
		return
	case len(prev) == 0:
		if parent == nil {
			return
		}
		m.PushRoot(parent.ID)
		m.AppendChildren(v.createAll(next, m, owner))
		m.PopRoot()
		return
	case len(next) == 0:
		for _, child := range prev {
			v.arena.Release(child, m, vdom.ContainerID)
		}
		return
	}

	if hasKeys(prev) || hasKeys(next) {
		v.diffKeyedChildren(prev, next, m, owner)
		return
	}
	v.diffUnkeyedChildren(prev, next, m, owner)
}

func (v *VirtualDom) diffUnkeyedChildren(prev, next []*vdom.VNode, m *vdom.Mutations, owner *scope.Scope) {
	common := min(len(prev), len(next))
	for i := 0; i < common; i++ {
		v.diffNode(prev[i], next[i], m, owner)
	}

	if len(next) > common {
		n := v.createAll(next[common:], m, owner)
		m.InsertAfter(v.lastRoot(next[common-1]), n)
	}
	for _, child := range prev[common:] {
		v.arena.Release(child, m, vdom.ContainerID)
	}
}

// diffKeyedChildren matches the common prefix and suffix by key, then
// reconciles the middle with diffKeyedMiddle.
func (v *VirtualDom) diffKeyedChildren(prev, next []*vdom.VNode, m *vdom.Mutations, owner *scope.Scope) {
	left := 0
	for left < len(prev) && left < len(next) && sameKey(prev[left], next[left]) {
		v.diffNode(prev[left], next[left], m, owner)
		left++
	}

	if left == len(prev) {
		if left < len(next) {
			n := v.createAll(next[left:], m, owner)
			m.InsertAfter(v.lastRoot(next[left-1]), n)
		}
		return
	}
	if left == len(next) {
		for _, child := range prev[left:] {
			v.arena.Release(child, m, vdom.ContainerID)
		}
		return
	}

	right := 0
	for right < len(prev)-left && right < len(next)-left &&
		sameKey(prev[len(prev)-1-right], next[len(next)-1-right]) {
		v.diffNode(prev[len(prev)-1-right], next[len(next)-1-right], m, owner)
		right++
	}

	prevMid := prev[left : len(prev)-right]
	nextMid := next[left : len(next)-right]

	var before *vdom.VNode
	if left > 0 {
		before = next[left-1]
	}

	switch {
	case len(nextMid) == 0:
		for _, child := range prevMid {
			v.arena.Release(child, m, vdom.ContainerID)
		}
	case len(prevMid) == 0:
		n := v.createAll(nextMid, m, owner)
		if before != nil {
			m.InsertAfter(v.lastRoot(before), n)
		} else {
			m.InsertBefore(v.firstRoot(next[len(next)-right]), n)
		}
	default:
		v.diffKeyedMiddle(prevMid, nextMid, m, owner, before)
	}
}

// diffKeyedMiddle reconciles two keyed lists that share no prefix or
// suffix. Nodes on the longest run whose old order is preserved stay put;
// every other surviving node is moved with PushRoot and an insert, which
// keeps its mount ids and scope.
//
// With duplicate keys the first old occurrence is the match and later
// new nodes with the same key are created fresh.
func (v *VirtualDom) diffKeyedMiddle(prev, next []*vdom.VNode, m *vdom.Mutations, owner *scope.Scope, before *vdom.VNode) {
	index := make(map[string]int, len(prev))
	for i, child := range prev {
		if !child.HasKey() {
			continue
		}
		if _, dup := index[child.Key]; !dup {
			index[child.Key] = i
		}
	}

	sources := make([]int, len(next))
	claimed := make([]bool, len(prev))
	matched := 0
	for i, child := range next {
		sources[i] = -1
		if !child.HasKey() {
			continue
		}
		if j, ok := index[child.Key]; ok && !claimed[j] {
			sources[i] = j
			claimed[j] = true
			matched++
		}
	}

	if matched == 0 {
		n := v.createAll(next, m, owner)
		first := v.firstRoot(prev[0])
		m.ReplaceWith(first, n)
		v.arena.Release(prev[0], m, first)
		for _, child := range prev[1:] {
			v.arena.Release(child, m, vdom.ContainerID)
		}
		return
	}

	for j, child := range prev {
		if !claimed[j] {
			v.arena.Release(child, m, vdom.ContainerID)
		}
	}
	for i, j := range sources {
		if j >= 0 {
			v.diffNode(prev[j], next[i], m, owner)
		}
	}

	stable := longestIncreasing(sources)
	firstStable := -1
	for i, ok := range stable {
		if ok {
			firstStable = i
			break
		}
	}

	var roots []vdom.MountID
	for i, child := range next {
		if stable[i] {
			before = child
			continue
		}

		var n int
		if sources[i] >= 0 {
			roots = v.roots(child, roots[:0])
			for _, id := range roots {
				m.PushRoot(id)
			}
			n = len(roots)
		} else {
			n = v.create(child, m, owner)
		}

		if before != nil {
			m.InsertAfter(v.lastRoot(before), n)
		} else {
			m.InsertBefore(v.firstRoot(next[firstStable]), n)
		}
		before = child
	}
}

// longestIncreasing marks the elements of one longest strictly increasing
// subsequence of seq. Negative entries are skipped.
func longestIncreasing(seq []int) []bool {
	tails := make([]int, 0, len(seq))
	links := make([]int, len(seq))
	for i, x := range seq {
		if x < 0 {
			continue
		}
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < x {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			links[i] = tails[lo-1]
		} else {
			links[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}

	out := make([]bool, len(seq))
	if len(tails) == 0 {
		return out
	}
	for k := tails[len(tails)-1]; k >= 0; k = links[k] {
		out[k] = true
	}
	return out
}

func sameKey(a, b *vdom.VNode) bool {
	return a.HasKey() && b.HasKey() && a.Key == b.Key
}

func hasKeys(children []*vdom.VNode) bool {
	for _, child := range children {
		if child.HasKey() {
			return true
		}
	}
	return false
}
