package model

import "sync"

// keyedLocks stores one *sync.Mutex per token id.
type keyedLocks struct {
	m sync.Map // map[string]*sync.Mutex
}

// get returns the mutex for id, creating it on demand.
func (l *keyedLocks) get(id string) *sync.Mutex {
	if v, ok := l.m.Load(id); ok {
		return v.(*sync.Mutex)
	}
	mu := &sync.Mutex{}
	actual, _ := l.m.LoadOrStore(id, mu)
	return actual.(*sync.Mutex)
}
