package engine

import "sync"

// roomLocks serializa, por sala, a transação e a emissão dos eventos dela.
// Assim os observadores recebem os eventos na ordem dos commits.
type roomLocks struct {
	mu    sync.Mutex
	rooms map[string]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

// lock bloqueia a sala e devolve a função que libera; a entrada some quando ninguém mais a usa
func (r *roomLocks) lock(room string) func() {
	r.mu.Lock()
	if r.rooms == nil {
		r.rooms = make(map[string]*roomLock)
	}
	l, ok := r.rooms[room]
	if !ok {
		l = &roomLock{}
		r.rooms[room] = l
	}
	l.refs++
	r.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		r.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(r.rooms, room)
		}
		r.mu.Unlock()
	}
}

func (r *roomLocks) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}
