package container

import (
	"reflect"

	"github.com/km-arc/go-injector/introspect"
)

// ── Definitions ───────────────────────────────────────────────────────────────

type definitionKind uint8

const (
	defValue definitionKind = iota
	defClass
	defFactory
)

// definition is one repository entry: a literal value, a class to autowire,
// or a factory producing the value on demand.
type definition struct {
	id       string
	kind     definitionKind
	value    any                  // defValue
	class    reflect.Type         // defClass — always the struct type, never a pointer
	factory  *introspect.Callable // defFactory
	lifetime Lifetime
	tags     []string
}

// ── Class resources ───────────────────────────────────────────────────────────

// classResource holds the explicit argument bags registered for a struct
// type: constructor values (field name → value), a designated method with
// positional arguments, and post-construction property assignments.
//
// Merge semantics across registration calls: constructor and method bags are
// replaced wholesale, the property bag merges key-wise.
type classResource struct {
	ctor       map[string]any
	method     string
	methodArgs []any
	props      map[string]any
}

func (r *classResource) clone() *classResource {
	c := &classResource{method: r.method}
	if r.ctor != nil {
		c.ctor = make(map[string]any, len(r.ctor))
		for k, v := range r.ctor {
			c.ctor[k] = v
		}
	}
	if r.methodArgs != nil {
		c.methodArgs = append([]any(nil), r.methodArgs...)
	}
	if r.props != nil {
		c.props = make(map[string]any, len(r.props))
		for k, v := range r.props {
			c.props[k] = v
		}
	}
	return c
}

// ── Resolved entries ──────────────────────────────────────────────────────────

// resolvedKey addresses one cache line: Singleton entries use a "" scope,
// Scoped entries the token that was current when they were stored.
type resolvedKey struct {
	id    string
	scope string
}

// resolvedEntry is either a concrete value or a lazy placeholder. A
// placeholder is replaced by its concrete result exactly once, on first
// real access; the entry is terminal afterward.
type resolvedEntry struct {
	value any
	lazy  *lazyPlaceholder
}

// ── Type keys ─────────────────────────────────────────────────────────────────

// TypeKey returns the package-qualified name of v's type, the stable string
// id a struct or interface type is cached and persisted under.
//
//	container.TypeKey(&PaymentService{})  // "payments.PaymentService"
func TypeKey(v any) string {
	var t reflect.Type
	if rt, ok := v.(reflect.Type); ok {
		t = rt
	} else {
		t = reflect.TypeOf(v)
	}
	return typeKeyOf(t)
}

func typeKeyOf(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}
