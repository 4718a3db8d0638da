package container

import (
	"fmt"
	"reflect"
	"sync"
)

// repository is the mutable state store behind a Container: definitions,
// class resources, resolved entries, interface bindings, tags, the current
// scope and environment, the attribute registry, and the lock flag.
//
// Configuration writes are guarded by the lock; runtime state (resolved
// entries, the scope token) is not — the lock freezes configuration once
// resolution has begun, it does not stop resolution itself.
type repository struct {
	mu          sync.RWMutex
	definitions map[string]*definition
	resources   map[reflect.Type]*classResource
	resolved    map[resolvedKey]*resolvedEntry
	bindings    map[string]map[reflect.Type]reflect.Type // env → interface → concrete
	tags        map[string][]string                      // tag → definition ids
	attributes  map[string]AttributeResolver
	scope       string
	environment string
	locked      bool
}

func newRepository() *repository {
	return &repository{
		definitions: make(map[string]*definition),
		resources:   make(map[reflect.Type]*classResource),
		resolved:    make(map[resolvedKey]*resolvedEntry),
		bindings:    make(map[string]map[reflect.Type]reflect.Type),
		tags:        make(map[string][]string),
		attributes:  make(map[string]AttributeResolver),
	}
}

// guard rejects configuration writes after Lock(). Must hold mu.
func (r *repository) guard() error {
	if r.locked {
		return ErrConfigurationLocked
	}
	return nil
}

// ── Definitions ───────────────────────────────────────────────────────────────

func (r *repository) setDefinition(d *definition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	if s, ok := d.value.(string); ok && s == d.id {
		return fmt.Errorf("%w: %q", ErrAmbiguousDefinition, d.id)
	}
	r.definitions[d.id] = d
	// A re-bind leaves only the tag groups the new definition declares;
	// groups it keeps retain the id's original position.
	kept := make(map[string]bool, len(d.tags))
	for _, tag := range d.tags {
		kept[tag] = true
	}
	for tag, ids := range r.tags {
		if kept[tag] {
			continue
		}
		r.tags[tag] = removeID(ids, d.id)
		if len(r.tags[tag]) == 0 {
			delete(r.tags, tag)
		}
	}
	for _, tag := range d.tags {
		r.tags[tag] = appendUnique(r.tags[tag], d.id)
	}
	// A re-bind invalidates whatever the old definition resolved to.
	r.dropResolvedLocked(d.id)
	return nil
}

func (r *repository) getDefinition(id string) (*definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.definitions[id]
	return d, ok
}

func (r *repository) hasDefinition(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.definitions[id]
	return ok
}

func (r *repository) taggedIDs(tag string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.tags[tag]...)
}

// ── Class resources ───────────────────────────────────────────────────────────

type resourceKind uint8

const (
	kindConstructor resourceKind = iota
	kindMethod
	kindProperty
)

// addClassResource merges a payload into the bag for (class, kind).
// Constructor and method payloads replace the existing bag wholesale,
// property payloads merge key-wise.
func (r *repository) addClassResource(class reflect.Type, kind resourceKind, ctor map[string]any, method string, methodArgs []any, props map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	res, ok := r.resources[class]
	if !ok {
		res = &classResource{}
		r.resources[class] = res
	}
	switch kind {
	case kindConstructor:
		res.ctor = ctor
	case kindMethod:
		res.method = method
		res.methodArgs = methodArgs
	case kindProperty:
		if res.props == nil {
			res.props = make(map[string]any, len(props))
		}
		for k, v := range props {
			res.props[k] = v
		}
	}
	r.dropResolvedLocked(typeKeyOf(class))
	return nil
}

// mergeConstructorArg writes a single constructor-bag key, used by the
// contextual When/Needs/Give builder.
func (r *repository) mergeConstructorArg(class reflect.Type, name string, value any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	res, ok := r.resources[class]
	if !ok {
		res = &classResource{}
		r.resources[class] = res
	}
	if res.ctor == nil {
		res.ctor = make(map[string]any)
	}
	res.ctor[name] = value
	r.dropResolvedLocked(typeKeyOf(class))
	return nil
}

// resourceFor returns a snapshot of the bags registered for class, or nil.
func (r *repository) resourceFor(class reflect.Type) *classResource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.resources[class]
	if !ok {
		return nil
	}
	return res.clone()
}

// ── Resolved entries ──────────────────────────────────────────────────────────

func (r *repository) getResolved(key resolvedKey) (*resolvedEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.resolved[key]
	return e, ok
}

func (r *repository) setResolved(key resolvedKey, e *resolvedEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved[key] = e
}

func (r *repository) clearResolved(key resolvedKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.resolved, key)
}

// dropResolvedLocked removes every cache line for id across all scopes.
// Must hold mu.
func (r *repository) dropResolvedLocked(id string) {
	for key := range r.resolved {
		if key.id == id {
			delete(r.resolved, key)
		}
	}
}

func (r *repository) flushResolved() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = make(map[resolvedKey]*resolvedEntry)
}

// ── Interface bindings ────────────────────────────────────────────────────────

func (r *repository) bindInterfaceForEnv(env string, iface, concrete reflect.Type) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	m, ok := r.bindings[env]
	if !ok {
		m = make(map[reflect.Type]reflect.Type)
		r.bindings[env] = m
	}
	m[iface] = concrete
	return nil
}

func (r *repository) bindingFor(env string, iface reflect.Type) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.bindings[env]; ok {
		if concrete, ok := m[iface]; ok {
			return concrete, true
		}
	}
	return nil, false
}

// ── Attributes ────────────────────────────────────────────────────────────────

func (r *repository) registerAttribute(name string, resolver AttributeResolver) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	r.attributes[name] = resolver
	return nil
}

func (r *repository) attributeFor(name string) (AttributeResolver, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attributes[name]
	return a, ok
}

// ── Scope, environment, lock ──────────────────────────────────────────────────

func (r *repository) setScope(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scope = token
}

func (r *repository) getScope() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scope
}

func (r *repository) setEnvironment(env string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.guard(); err != nil {
		return err
	}
	r.environment = env
	return nil
}

func (r *repository) getEnvironment() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.environment
}

func (r *repository) lock() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = true
}

func (r *repository) isLocked() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.locked
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}
