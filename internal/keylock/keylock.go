package keylock

import "sync"

// Locker hands out one mutex per supply id so read-modify-writes on the
// same supply serialize while unrelated supplies never contend.
// Mutexes are never removed; the id space is small (one entry per
// supply ever touched).
type Locker struct {
	mu sync.Map // uint -> *sync.Mutex
}

func New() *Locker {
	return &Locker{}
}

func (l *Locker) Lock(id uint) {
	l.get(id).Lock()
}

func (l *Locker) Unlock(id uint) {
	l.get(id).Unlock()
}

func (l *Locker) get(id uint) *sync.Mutex {
	if m, ok := l.mu.Load(id); ok {
		return m.(*sync.Mutex)
	}
	m, _ := l.mu.LoadOrStore(id, &sync.Mutex{})
	return m.(*sync.Mutex)
}
