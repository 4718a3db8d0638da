package container

// Lifetime is the caching discipline applied to a resolved value.
type Lifetime uint8

const (
	// Singleton resolves once per id and is shared by every scope.
	Singleton Lifetime = iota
	// Transient re-runs the full resolution on every request.
	Transient
	// Scoped caches per (id, scope token): switching scope and re-requesting
	// builds a fresh instance, returning to an earlier token yields the
	// instance cached for that token.
	Scoped
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Scoped:
		return "scoped"
	default:
		return "singleton"
	}
}

// cacheKey returns the resolved-entry key for an id under this lifetime.
// Singleton ignores the scope; Transient has no cache line at all.
func (l Lifetime) cacheKey(id, scope string) (resolvedKey, bool) {
	switch l {
	case Transient:
		return resolvedKey{}, false
	case Scoped:
		return resolvedKey{id: id, scope: scope}, true
	default:
		return resolvedKey{id: id}, true
	}
}
