package container

import (
	"fmt"
	"sync"
)

// lazyPlaceholder stands in for a not-yet-computed resolution result. The
// deferred resolver runs at most once; concurrent and re-entrant reads are
// serialized by the mutex, and a read that re-enters its own evaluation
// (a lazy factory resolving its own id) fails with ErrCircularDependency
// instead of deadlocking.
type lazyPlaceholder struct {
	mu         sync.Mutex
	id         string
	evaluating bool
	resolve    func() (any, error)
}

func newLazy(id string, resolve func() (any, error)) *lazyPlaceholder {
	return &lazyPlaceholder{id: id, resolve: resolve}
}

// eval runs the deferred resolver. The caller replaces the placeholder's
// resolved entry on success and clears it on failure, so a failed attempt
// is retried in full on the next request.
func (l *lazyPlaceholder) eval() (any, error) {
	l.mu.Lock()
	if l.evaluating {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: lazy definition %q reads itself during evaluation", ErrCircularDependency, l.id)
	}
	l.evaluating = true
	l.mu.Unlock()

	v, err := l.resolve()

	l.mu.Lock()
	l.evaluating = false
	l.mu.Unlock()
	return v, err
}
