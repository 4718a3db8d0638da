// Package introspect computes and memoizes the structural shape of the
// subjects the container injects into: struct types (fields, tags, defaults)
// and callables (parameter and result types).
//
// All memoization lives in an explicit Cache value owned by the caller —
// there is no package-level state. Struct descriptors and callables are
// cached separately: structs by their reflect.Type, callables by the
// file:line of their defining source location, which is stable for the
// lifetime of the process.
package introspect

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/golobby/cast"
)

// ErrInvalidSubject is returned when a subject cannot be classified as a
// struct type, a pointer to one, or a callable.
var ErrInvalidSubject = errors.New("introspect: subject is not a struct, pointer to struct, or func")

// EntryPointer designates a method to be invoked after construction.
// A struct implements it to opt in to the "call-on" convention:
//
//	func (s *ReportJob) DefaultEntryPoint() string { return "Run" }
//
// DefaultEntryPoint is called on a zero-value receiver, so it must not
// depend on any field being set.
type EntryPointer interface {
	DefaultEntryPoint() string
}

// ── Shapes ────────────────────────────────────────────────────────────────────

// Attr is a parsed `inject` struct tag: the resolver name, its argument
// (the part after the first colon), and tag options.
//
//	Endpoint string `inject:"env:PAYMENT_URL"`          → {Name: "env", Arg: "PAYMENT_URL"}
//	Comment  string `inject:",optional"`                → {Optional: true}
type Attr struct {
	Name     string
	Arg      string
	Optional bool
}

// Field describes one injectable struct field.
type Field struct {
	Name       string
	Type       reflect.Type
	Index      []int
	Attr       *Attr // nil when the field carries no inject tag
	Optional   bool  // inject:",optional" or a default tag
	HasDefault bool
	Default    any // pre-converted to Field.Type
}

// Descriptor is the cached shape of a struct type.
type Descriptor struct {
	Type       reflect.Type // the struct type itself, never a pointer
	Fields     []Field      // exported, non-excluded fields in declaration order
	EntryPoint string       // method named by EntryPointer, "" if none
}

// Callable is the cached shape of a func or method.
type Callable struct {
	Name       string
	Func       reflect.Value
	In         []reflect.Type // method receivers already stripped
	Variadic   bool
	NumOut     int
	ReturnsErr bool // trailing error result
}

// ── Cache ─────────────────────────────────────────────────────────────────────

type methodKey struct {
	recv reflect.Type
	name string
}

// Cache memoizes descriptors. Safe for concurrent reads and writes.
type Cache struct {
	mu        sync.RWMutex
	structs   map[reflect.Type]*Descriptor
	callables map[string]*Callable
	methods   map[methodKey]*Callable
}

// New creates an empty introspection cache.
func New() *Cache {
	return &Cache{
		structs:   make(map[reflect.Type]*Descriptor),
		callables: make(map[string]*Callable),
		methods:   make(map[methodKey]*Callable),
	}
}

// Describe returns the shape of a struct subject. The subject may be a
// struct value, a pointer to one, or a reflect.Type of either.
func (c *Cache) Describe(subject any) (*Descriptor, error) {
	t, err := StructType(subject)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	d, ok := c.structs[t]
	c.mu.RUnlock()
	if ok {
		return d, nil
	}

	d, err = describe(t)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.structs[t] = d
	c.mu.Unlock()
	return d, nil
}

// Callable returns the shape of a free function or closure, cached by its
// defining source location.
func (c *Cache) Callable(fn any) (*Callable, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return nil, fmt.Errorf("%w: %T", ErrInvalidSubject, fn)
	}

	key := sourceKey(v)

	c.mu.RLock()
	cb, ok := c.callables[key]
	c.mu.RUnlock()
	if ok {
		return cb, nil
	}

	cb = callableOf(key, v, v.Type(), 0)

	c.mu.Lock()
	c.callables[key] = cb
	c.mu.Unlock()
	return cb, nil
}

// Method returns the shape of a named method on recv (a struct type or
// pointer to one). The receiver parameter is stripped from In.
func (c *Cache) Method(recv reflect.Type, name string) (*Callable, error) {
	st, err := StructType(recv)
	if err != nil {
		return nil, err
	}
	pt := reflect.PointerTo(st)

	key := methodKey{recv: pt, name: name}

	c.mu.RLock()
	cb, ok := c.methods[key]
	c.mu.RUnlock()
	if ok {
		return cb, nil
	}

	m, ok := pt.MethodByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no method %q", ErrInvalidSubject, st, name)
	}

	cb = callableOf(name, m.Func, m.Type, 1) // skip the receiver

	c.mu.Lock()
	c.methods[key] = cb
	c.mu.Unlock()
	return cb, nil
}

// ── Construction helpers ──────────────────────────────────────────────────────

// StructType normalizes a subject (struct value, pointer, or reflect.Type)
// to its underlying struct type.
func StructType(subject any) (reflect.Type, error) {
	var t reflect.Type
	switch s := subject.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrInvalidSubject)
	case reflect.Type:
		t = s
	default:
		t = reflect.TypeOf(subject)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSubject, t)
	}
	return t, nil
}

func describe(t reflect.Type) (*Descriptor, error) {
	d := &Descriptor{Type: t}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		tag := sf.Tag.Get("inject")
		if tag == "-" {
			continue
		}

		f := Field{
			Name:  sf.Name,
			Type:  sf.Type,
			Index: sf.Index,
		}

		if tag != "" {
			f.Attr = parseAttr(tag)
			f.Optional = f.Attr.Optional
		}

		if def, ok := sf.Tag.Lookup("default"); ok {
			converted, err := cast.FromType(def, sf.Type)
			if err != nil {
				return nil, fmt.Errorf("introspect: %s.%s: bad default %q: %w", t, sf.Name, def, err)
			}
			f.HasDefault = true
			f.Default = converted
			f.Optional = true
		}

		d.Fields = append(d.Fields, f)
	}

	// Call-on convention: the method name comes from a zero receiver.
	if ep, ok := reflect.New(t).Interface().(EntryPointer); ok {
		d.EntryPoint = ep.DefaultEntryPoint()
	}

	return d, nil
}

func parseAttr(tag string) *Attr {
	a := &Attr{}
	parts := strings.Split(tag, ",")
	if name := parts[0]; name != "" {
		if idx := strings.Index(name, ":"); idx >= 0 {
			a.Name, a.Arg = name[:idx], name[idx+1:]
		} else {
			a.Name = name
		}
	}
	for _, opt := range parts[1:] {
		if opt == "optional" {
			a.Optional = true
		}
	}
	return a
}

var errType = reflect.TypeOf((*error)(nil)).Elem()

func callableOf(name string, fn reflect.Value, ft reflect.Type, skipIn int) *Callable {
	cb := &Callable{
		Name:     name,
		Func:     fn,
		Variadic: ft.IsVariadic(),
		NumOut:   ft.NumOut(),
	}
	for i := skipIn; i < ft.NumIn(); i++ {
		cb.In = append(cb.In, ft.In(i))
	}
	if ft.NumOut() > 0 && ft.Out(ft.NumOut()-1) == errType {
		cb.ReturnsErr = true
	}
	return cb
}

// sourceKey derives a stable signature for a func value from where it is
// defined. Distinct closures created at the same source location share a
// signature, which is exactly the memoization granularity we want: their
// shapes are identical.
func sourceKey(v reflect.Value) string {
	pc := v.Pointer()
	if f := runtime.FuncForPC(pc); f != nil {
		file, line := f.FileLine(pc)
		return fmt.Sprintf("%s:%d", file, line)
	}
	return v.Type().String()
}
