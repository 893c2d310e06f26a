package types

import (
	"cmp"
	"slices"
	"sync"
)

// InterfaceMap holds the routable interfaces keyed by name.
type InterfaceMap struct {
	mu sync.RWMutex
	m  map[string]*NetworkInterface
}

func NewInterfaceMap() *InterfaceMap {
	return &InterfaceMap{m: map[string]*NetworkInterface{}}
}

// Update applies fn to the interface named name, creating it if needed.
func (im *InterfaceMap) Update(name string, fn func(*NetworkInterface)) {
	im.mu.Lock()
	defer im.mu.Unlock()

	i, ok := im.m[name]
	if !ok {
		i = &NetworkInterface{Name: name}
		im.m[name] = i
	}
	fn(i)
}

// UpdateExisting applies fn to the interface named name only if it's present.
func (im *InterfaceMap) UpdateExisting(name string, fn func(*NetworkInterface)) bool {
	im.mu.Lock()
	defer im.mu.Unlock()

	i, ok := im.m[name]
	if !ok {
		return false
	}
	fn(i)
	return true
}

func (im *InterfaceMap) Get(name string) (NetworkInterface, bool) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	i, ok := im.m[name]
	if !ok {
		return NetworkInterface{}, false
	}
	return *i, true
}

func (im *InterfaceMap) Has(name string) bool {
	im.mu.RLock()
	defer im.mu.RUnlock()
	_, ok := im.m[name]
	return ok
}

func (im *InterfaceMap) Len() int {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return len(im.m)
}

// Snapshot returns copies of every interface sorted by name.
func (im *InterfaceMap) Snapshot() []NetworkInterface {
	im.mu.RLock()
	defer im.mu.RUnlock()

	out := make([]NetworkInterface, 0, len(im.m))
	for _, i := range im.m {
		out = append(out, *i)
	}
	slices.SortFunc(out, func(a, b NetworkInterface) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// SocketMap holds the tracked sockets keyed by inode.
type SocketMap struct {
	mu   sync.RWMutex
	m    map[uint32]*TCPSocket
	pass uint64
}

func NewSocketMap() *SocketMap {
	return &SocketMap{m: map[uint32]*TCPSocket{}}
}

// Mark starts a new mark-and-sweep pass.
func (sm *SocketMap) Mark() {
	sm.mu.Lock()
	sm.pass++
	sm.mu.Unlock()
}

// Update applies fn to the socket with the given inode, creating it if needed.
// The socket is stamped with the current pass.
func (sm *SocketMap) Update(inode uint32, fn func(*TCPSocket)) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.m[inode]
	if !ok {
		s = &TCPSocket{Inode: inode}
		sm.m[inode] = s
	}
	fn(s)
	s.Inode = inode
	s.pass = sm.pass
}

// Touch applies fn to the socket only if it's tracked.
func (sm *SocketMap) Touch(inode uint32, fn func(*TCPSocket)) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	s, ok := sm.m[inode]
	if !ok {
		return false
	}
	fn(s)
	s.Inode = inode
	return true
}

// Sweep drops every socket not stamped in the current pass and returns how
// many were dropped.
func (sm *SocketMap) Sweep() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	n := 0
	for k, s := range sm.m {
		if s.pass != sm.pass {
			delete(sm.m, k)
			n++
		}
	}
	return n
}

func (sm *SocketMap) Get(inode uint32) (TCPSocket, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	s, ok := sm.m[inode]
	if !ok {
		return TCPSocket{}, false
	}
	return *s, true
}

func (sm *SocketMap) Has(inode uint32) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.m[inode]
	return ok
}

func (sm *SocketMap) Len() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.m)
}

// Snapshot returns copies of every socket sorted by inode.
func (sm *SocketMap) Snapshot() []TCPSocket {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	out := make([]TCPSocket, 0, len(sm.m))
	for _, s := range sm.m {
		c := *s
		c.Info = slices.Clone(s.Info)
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b TCPSocket) int { return cmp.Compare(a.Inode, b.Inode) })
	return out
}

// ProcessMap holds the processes owning tracked sockets keyed by pid.
type ProcessMap struct {
	mu   sync.RWMutex
	m    map[int]*Process
	pass uint64
}

func NewProcessMap() *ProcessMap {
	return &ProcessMap{m: map[int]*Process{}}
}

// Mark starts a new mark-and-sweep pass.
func (pm *ProcessMap) Mark() {
	pm.mu.Lock()
	pm.pass++
	pm.mu.Unlock()
}

// Store saves a copy of p under its pid, stamped with the current pass.
// Samples are taken by the caller so that readers aren't held up by procfs.
func (pm *ProcessMap) Store(p Process) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	p.pass = pm.pass
	pm.m[p.PID] = &p
}

// Sweep drops every process not stamped in the current pass and returns the
// dropped pids.
func (pm *ProcessMap) Sweep() []int {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	var gone []int
	for pid, p := range pm.m {
		if p.pass != pm.pass {
			delete(pm.m, pid)
			gone = append(gone, pid)
		}
	}
	slices.Sort(gone)
	return gone
}

func (pm *ProcessMap) Get(pid int) (Process, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	p, ok := pm.m[pid]
	if !ok {
		return Process{}, false
	}
	return *p, true
}

func (pm *ProcessMap) Len() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.m)
}

// Snapshot returns copies of every process sorted by pid.
func (pm *ProcessMap) Snapshot() []Process {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]Process, 0, len(pm.m))
	for _, p := range pm.m {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b Process) int { return cmp.Compare(a.PID, b.PID) })
	return out
}
