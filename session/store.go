package session

import "sync"

// Store is the process-wide connection_handle -> Context mapping (spec §3,
// §5), modeled on the teacher's mysqlHandler.connections map
// (server/mysql_handler.go): one mutex, one map, sessions only ever touch
// their own entry except through the admin dispatcher (§4.10).
type Store struct {
	mu    sync.Mutex
	byID  map[uint64]*Context
}

func NewStore() *Store {
	return &Store{byID: make(map[uint64]*Context)}
}

// GetOrCreate returns the context for connID, creating one if absent. The
// context mapping entry for a handle exists iff the connection is open
// (spec §5 invariant).
func (s *Store) GetOrCreate(connID uint64) *Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.byID[connID]
	if !ok {
		ctx = NewContext(connID)
		s.byID[connID] = ctx
	}
	return ctx
}

func (s *Store) Get(connID uint64) (*Context, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.byID[connID]
	return ctx, ok
}

// Remove drops the mapping entry on connection teardown.
func (s *Store) Remove(connID uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byID, connID)
}

// All returns a snapshot of every active context, used by `inception show
// sessions` (spec §4.10).
func (s *Store) All() []*Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Context, 0, len(s.byID))
	for _, c := range s.byID {
		out = append(out, c)
	}
	return out
}

// ByConnectionID finds a context by its raw connection id, used by admin
// `set sleep`/`kill` (spec §4.10).
func (s *Store) ByConnectionID(connID uint64) (*Context, bool) {
	return s.Get(connID)
}
