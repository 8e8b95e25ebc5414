package order

import "sync"

// symbolLocks hands out one mutex per symbol. Entries are never removed; the
// set of traded symbols is small.
type symbolLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSymbolLocks() *symbolLocks {
	return &symbolLocks{
		mu:    sync.Mutex{},
		locks: make(map[string]*sync.Mutex),
	}
}

// lock blocks until symbol is free and returns the matching unlock.
func (s *symbolLocks) lock(symbol string) func() {
	s.mu.Lock()

	l, ok := s.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		s.locks[symbol] = l
	}

	s.mu.Unlock()

	l.Lock()

	return l.Unlock
}
