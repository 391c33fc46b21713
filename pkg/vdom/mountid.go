package vdom

import "sync"

// MountIDAllocator hands out mount ids for renderer-visible nodes.
//
// Ids are issued monotonically starting at 1. A released id goes to a free
// pool and is handed out again before the counter advances; the most
// recently released id is reused first.
type MountIDAllocator struct {
	mu      sync.Mutex
	counter MountID
	free    []MountID
	live    int
}

// NewMountIDAllocator creates a new MountIDAllocator.
func NewMountIDAllocator() *MountIDAllocator {
	return &MountIDAllocator{}
}

// Next returns a mount id not held by any live node.
func (g *MountIDAllocator) Next() MountID {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.live++
	if n := len(g.free); n > 0 {
		id := g.free[n-1]
		g.free = g.free[:n-1]
		return id
	}
	g.counter++
	return g.counter
}

// Release returns an id to the free pool.
func (g *MountIDAllocator) Release(id MountID) {
	if id == ContainerID {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.free = append(g.free, id)
	g.live--
}

// Live returns the number of ids currently held by nodes.
func (g *MountIDAllocator) Live() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.live
}

// Current returns the highest id issued so far.
func (g *MountIDAllocator) Current() MountID {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counter
}
