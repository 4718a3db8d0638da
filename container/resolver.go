package container

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/golobby/cast"

	"github.com/km-arc/go-injector/introspect"
)

// Result is the outcome of resolving a class: the constructed instance and,
// when a designated method was invoked, its return value.
type Result struct {
	Instance any
	Returned any
}

// strategy turns a class into a constructed instance. The autowired
// strategy introspects and recursively resolves; the raw strategy applies
// only explicitly registered arguments.
//
// A strategy instance lives for the duration of one top-level resolution
// call and never outlives it.
type strategy interface {
	class(t reflect.Type, res *classResource, methodOverride string) (*Result, error)
}

func (c *Container) newStrategy() strategy {
	if c.opts.autowire {
		return &autowired{c: c}
	}
	return &rawStrategy{c: c}
}

// ── Definition resolution (strategy-independent) ──────────────────────────────

func (c *Container) resolveDefinition(def *definition) (any, error) {
	return c.resolveDefinitionWith(def, c.newStrategy())
}

func (c *Container) resolveDefinitionWith(def *definition, s strategy) (any, error) {
	switch def.kind {
	case defValue:
		return def.value, nil
	case defFactory:
		return c.invokeFactory(def)
	case defClass:
		out, err := s.class(def.class, c.repo.resourceFor(def.class), "")
		if err != nil {
			return nil, err
		}
		return out.Instance, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidDefinition, def.id)
}

func (c *Container) invokeFactory(def *definition) (any, error) {
	cb := def.factory
	var args []reflect.Value
	if len(cb.In) == 1 {
		// Factory shape was validated at bind time: either zero parameters
		// or a single *Container.
		args = append(args, reflect.ValueOf(c))
	}
	rets := cb.Func.Call(args)
	if cb.ReturnsErr {
		if errVal := rets[len(rets)-1]; !errVal.IsNil() {
			return nil, fmt.Errorf("factory for %q: %w", def.id, errVal.Interface().(error))
		}
	}
	if cb.NumOut > boolToInt(cb.ReturnsErr) {
		return rets[0].Interface(), nil
	}
	return nil, nil
}

// ── Autowired strategy ────────────────────────────────────────────────────────

// autowired constructs classes by introspecting their fields and recursively
// resolving each one, honoring override precedence:
//
//  1. explicit constructor-bag value under the field name
//  2. an instance already constructed earlier in the same call
//  3. type-driven recursion (interfaces through the environment bindings),
//     guarded by cycle detection over the construction stack
//  4. declarative-metadata (inject tag) resolver contribution
//  5. default tag value
//  6. optional fields zero-fill; everything else is unresolvable
type autowired struct {
	c     *Container
	stack []reflect.Type // classes currently under construction
}

func (a *autowired) class(t reflect.Type, res *classResource, methodOverride string) (*Result, error) {
	for _, s := range a.stack {
		if s == t {
			return nil, fmt.Errorf("%w: %s (chain %s)", ErrCircularDependency, t, a.chain(t))
		}
	}
	a.stack = append(a.stack, t)
	defer func() { a.stack = a.stack[:len(a.stack)-1] }()

	d, err := a.c.shapes.Describe(t)
	if err != nil {
		return nil, err
	}

	ptr := reflect.New(t)
	elem := ptr.Elem()
	var local []reflect.Value // injectable values resolved within this call, shared with the method pass

	for _, f := range d.Fields {
		v, ok, err := a.field(d, f, res, local)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		elem.FieldByIndex(f.Index).Set(v)
		// Reuse applies to constructed instances only. Recording scalars
		// would alias one field's value into every later field of an
		// assignable type, shadowing its attribute and default steps.
		if injectable(f.Type) {
			local = append(local, v)
		}
	}

	// Registered property assignments run after construction and win over
	// whatever the field pass produced.
	if res != nil {
		for name, raw := range res.props {
			if err := setNamedField(a.c, t, elem, name, raw); err != nil {
				return nil, err
			}
		}
	}

	out := &Result{Instance: ptr.Interface()}

	method := methodOverride
	if method == "" && res != nil {
		method = res.method
	}
	if method == "" {
		method = d.EntryPoint
	}
	if method == "" && a.c.opts.defaultMethod != "" {
		if _, ok := reflect.PointerTo(t).MethodByName(a.c.opts.defaultMethod); ok {
			method = a.c.opts.defaultMethod
		}
	}

	if method != "" {
		var explicit []any
		if res != nil && res.method == method {
			explicit = res.methodArgs
		}
		returned, err := a.call(t, ptr, method, explicit, local)
		if err != nil {
			return nil, err
		}
		out.Returned = returned
	}

	a.c.logger.Debug("constructed class", "type", t.String(), "method", method)
	return out, nil
}

func (a *autowired) field(d *introspect.Descriptor, f introspect.Field, res *classResource, local []reflect.Value) (reflect.Value, bool, error) {
	var zero reflect.Value

	// 1. explicit override, used verbatim
	if res != nil {
		if raw, ok := res.ctor[f.Name]; ok {
			raw, err := a.c.expandArg(raw)
			if err != nil {
				return zero, false, fmt.Errorf("constructor argument %q of %s: %w", f.Name, d.Type, err)
			}
			v, err := coerce(raw, f.Type)
			if err != nil {
				return zero, false, fmt.Errorf("%w: constructor argument %q of %s: %v", ErrConstruction, f.Name, d.Type, err)
			}
			return v, true, nil
		}
	}

	// 2. reuse an instance constructed earlier in this call
	if injectable(f.Type) {
		if v, ok := reuse(local, f.Type); ok {
			return v, true, nil
		}
	}

	// 3. type-driven recursion; a cycle aborts immediately, any other
	// failure falls through to the metadata and default steps
	var typedErr error
	if injectable(f.Type) {
		v, err := a.typed(f.Type)
		if err == nil {
			return v, true, nil
		}
		if errors.Is(err, ErrCircularDependency) {
			return zero, false, err
		}
		typedErr = err
	}

	// 4. declarative-metadata contribution; unregistered tag names are a no-op
	if a.c.opts.attributes && f.Attr != nil && f.Attr.Name != "" {
		if resolver, ok := a.c.repo.attributeFor(f.Attr.Name); ok {
			raw, err := resolver.Resolve(AttributeContext{
				Container: a.c,
				Owner:     d.Type,
				Field:     f,
				Arg:       f.Attr.Arg,
			})
			if err != nil {
				return zero, false, fmt.Errorf("attribute %q on %s.%s: %w", f.Attr.Name, d.Type, f.Name, err)
			}
			v, err := coerce(raw, f.Type)
			if err != nil {
				return zero, false, fmt.Errorf("%w: attribute %q on %s.%s: %v", ErrConstruction, f.Attr.Name, d.Type, f.Name, err)
			}
			return v, true, nil
		}
	}

	// 5. declared default
	if f.HasDefault {
		v, err := coerce(f.Default, f.Type)
		if err != nil {
			return zero, false, fmt.Errorf("%w: default for %s.%s: %v", ErrConstruction, d.Type, f.Name, err)
		}
		return v, true, nil
	}

	if f.Optional {
		return zero, false, nil
	}
	if typedErr != nil {
		return zero, false, fmt.Errorf("parameter %q of %s (constructor): %w", f.Name, d.Type, typedErr)
	}
	return zero, false, fmt.Errorf("%w: parameter %q of %s (constructor)", ErrUnresolvableDependency, f.Name, d.Type)
}

// typed resolves a declared type: interfaces through the environment binding
// table, structs and pointers to structs by recursive construction.
func (a *autowired) typed(t reflect.Type) (reflect.Value, error) {
	var zero reflect.Value

	if t.Kind() == reflect.Interface {
		env := a.c.repo.getEnvironment()
		concreteType, ok := a.c.repo.bindingFor(env, t)
		if !ok {
			return zero, fmt.Errorf("%w: %s (environment %q)", ErrInterfaceNotBound, t, env)
		}
		return a.concrete(concreteType)
	}

	st := t
	wantPtr := false
	if t.Kind() == reflect.Pointer {
		st = t.Elem()
		wantPtr = true
	}
	v, err := a.concrete(st)
	if err != nil {
		return zero, err
	}
	if wantPtr {
		return v, nil
	}
	return v.Elem(), nil
}

// concrete resolves a struct type to its canonical *T instance, consulting
// and populating the lifetime cache. A definition registered under the
// type's key takes precedence over plain autowiring and contributes its
// lifetime; otherwise the type defaults to Singleton.
func (a *autowired) concrete(st reflect.Type) (reflect.Value, error) {
	var zero reflect.Value

	id := typeKeyOf(st)
	lifetime := Singleton
	def, hasDef := a.c.repo.getDefinition(id)
	if hasDef {
		lifetime = def.lifetime
	}

	key, cacheable := lifetime.cacheKey(id, a.c.repo.getScope())
	if cacheable {
		if cached, ok, err := a.c.cachedValue(key); err != nil {
			return zero, err
		} else if ok {
			if v, convErr := asPointerTo(cached, st); convErr == nil {
				return v, nil
			}
			// Cached under this key but not this type — rebuild below.
		}
	}

	var instance any
	var err error
	if hasDef {
		instance, err = a.c.resolveDefinitionWith(def, a)
	} else {
		var out *Result
		out, err = a.class(st, a.c.repo.resourceFor(st), "")
		if out != nil {
			instance = out.Instance
		}
	}
	if err != nil {
		return zero, err
	}

	v, err := asPointerTo(instance, st)
	if err != nil {
		return zero, fmt.Errorf("%w: definition %q: %v", ErrUnresolvableDependency, id, err)
	}

	if cacheable {
		a.c.repo.setResolved(key, &resolvedEntry{value: v.Interface()})
	}
	return v, nil
}

// call resolves and invokes a designated method. Explicit arguments are
// positional; a nil slot means "autowire this parameter". The local slice
// carries values resolved during construction, so the constructor and the
// method share one resolution pass.
func (a *autowired) call(owner reflect.Type, recv reflect.Value, method string, explicit []any, local []reflect.Value) (any, error) {
	cb, err := a.c.shapes.Method(owner, method)
	if err != nil {
		return nil, err
	}

	fixed := len(cb.In)
	if cb.Variadic {
		fixed--
	}

	args := make([]reflect.Value, 0, len(cb.In)+1)
	args = append(args, recv)

	for i := 0; i < fixed; i++ {
		pt := cb.In[i]

		if i < len(explicit) && explicit[i] != nil {
			v, err := coerce(explicit[i], pt)
			if err != nil {
				return nil, fmt.Errorf("%w: argument %d of %s.%s: %v", ErrConstruction, i, owner, method, err)
			}
			args = append(args, v)
			continue
		}
		if injectable(pt) {
			if v, ok := reuse(local, pt); ok {
				args = append(args, v)
				continue
			}
			v, err := a.typed(pt)
			if err != nil {
				return nil, fmt.Errorf("parameter %d of %s.%s (method): %w", i, owner, method, err)
			}
			args = append(args, v)
			continue
		}
		return nil, fmt.Errorf("%w: parameter %d of %s.%s (method)", ErrUnresolvableDependency, i, owner, method)
	}

	if cb.Variadic {
		elemType := cb.In[len(cb.In)-1].Elem()
		for i := fixed; i < len(explicit); i++ {
			v, err := coerce(explicit[i], elemType)
			if err != nil {
				return nil, fmt.Errorf("%w: variadic argument %d of %s.%s: %v", ErrConstruction, i, owner, method, err)
			}
			args = append(args, v)
		}
	}

	rets := cb.Func.Call(args)
	if cb.ReturnsErr {
		if errVal := rets[len(rets)-1]; !errVal.IsNil() {
			return nil, fmt.Errorf("%s.%s: %w", owner, method, errVal.Interface().(error))
		}
	}
	if cb.NumOut > boolToInt(cb.ReturnsErr) {
		return rets[0].Interface(), nil
	}
	return nil, nil
}

func (a *autowired) chain(t reflect.Type) string {
	names := make([]string, 0, len(a.stack)+1)
	for _, s := range a.stack {
		names = append(names, s.String())
	}
	names = append(names, t.String())
	return strings.Join(names, " -> ")
}

// ── Shared helpers ────────────────────────────────────────────────────────────

// deferredArg is a constructor-bag value produced by GiveFactory: the
// factory runs at injection time, on every construction of the class.
type deferredArg struct {
	fn func(c *Container) (any, error)
}

func (c *Container) expandArg(raw any) (any, error) {
	if d, ok := raw.(deferredArg); ok {
		return d.fn(c)
	}
	return raw, nil
}

// injectable reports whether a declared type is a candidate for type-driven
// resolution. Plain `any` is not: it matches everything and nothing.
func injectable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Interface:
		return t.NumMethod() > 0
	case reflect.Struct:
		return true
	case reflect.Pointer:
		return t.Elem().Kind() == reflect.Struct
	default:
		return false
	}
}

// reuse finds an already-constructed instance assignable to t. Callers
// gate it on injectable(t): scalars never participate.
func reuse(local []reflect.Value, t reflect.Type) (reflect.Value, bool) {
	for _, v := range local {
		if v.IsValid() && v.Type().AssignableTo(t) {
			return v, true
		}
	}
	return reflect.Value{}, false
}

// coerce adapts a caller-supplied value to the declared type: direct
// assignment, string casting for scalar targets, or numeric conversion.
func coerce(raw any, t reflect.Type) (reflect.Value, error) {
	if raw == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(raw)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if s, ok := raw.(string); ok {
		converted, err := cast.FromType(s, t)
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot cast %q to %s: %w", s, t, err)
		}
		cv := reflect.ValueOf(converted)
		if !cv.Type().AssignableTo(t) {
			return cv.Convert(t), nil
		}
		return cv, nil
	}
	if isNumeric(v.Type()) && isNumeric(t) {
		return v.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("value of type %T is not assignable to %s", raw, t)
}

func isNumeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// asPointerTo normalizes an instance to *T for struct type t.
func asPointerTo(instance any, t reflect.Type) (reflect.Value, error) {
	v := reflect.ValueOf(instance)
	if !v.IsValid() {
		return reflect.Value{}, fmt.Errorf("resolved to nil, want %s", t)
	}
	pt := reflect.PointerTo(t)
	if v.Type() == pt {
		return v, nil
	}
	if v.Type() == t {
		p := reflect.New(t)
		p.Elem().Set(v)
		return p, nil
	}
	if v.Type().AssignableTo(pt) {
		return v.Convert(pt), nil
	}
	return reflect.Value{}, fmt.Errorf("resolved to %T, want %s", instance, pt)
}

func setNamedField(c *Container, t reflect.Type, elem reflect.Value, name string, raw any) error {
	sf, ok := t.FieldByName(name)
	if !ok || !sf.IsExported() {
		return fmt.Errorf("%w: %s has no settable field %q", ErrConstruction, t, name)
	}
	raw, err := c.expandArg(raw)
	if err != nil {
		return fmt.Errorf("property %q of %s: %w", name, t, err)
	}
	v, err := coerce(raw, sf.Type)
	if err != nil {
		return fmt.Errorf("%w: property %q of %s: %v", ErrConstruction, name, t, err)
	}
	elem.FieldByIndex(sf.Index).Set(v)
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
