package server

import "sync"

// Registry is the in-memory presence directory: which authenticated user is
// attached to which live connection. It is the only place "who is online"
// is answered from. The lock is held only for the map operation itself,
// never across store calls or network writes.
type Registry struct {
	mu     sync.Mutex
	byUser map[int64]*Conn
	byName map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int64]*Conn),
		byName: make(map[string]*Conn),
	}
}

// Bind attaches the user to conn. If the user was already bound to another
// connection the prior one is returned so the caller can close it; the
// policy for a second concurrent login is evict-then-bind.
func (r *Registry) Bind(userID int64, username string, conn *Conn) (evicted *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prior := r.byUser[userID]
	if prior == conn {
		return nil
	}
	r.byUser[userID] = conn
	r.byName[username] = conn
	return prior
}

// Unbind removes conn's binding. It reports false when conn was not the
// current binding (it lost a duplicate-login race), in which case the user
// is still online through the newer connection and teardown must not mark
// them offline.
func (r *Registry) Unbind(userID int64, username string, conn *Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byUser[userID] != conn {
		return false
	}
	delete(r.byUser, userID)
	delete(r.byName, username)
	return true
}

func (r *Registry) Lookup(username string) (*Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.byName[username]
	return conn, ok
}

func (r *Registry) IsOnline(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byUser[userID]
	return ok
}

func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

// Snapshot returns the live connections with their usernames, for shutdown
// and stats.
func (r *Registry) Snapshot() map[string]*Conn {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]*Conn, len(r.byName))
	for name, conn := range r.byName {
		out[name] = conn
	}
	return out
}
