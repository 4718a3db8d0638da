package container

import (
	"fmt"
	"reflect"
)

// rawStrategy is the non-autowiring fallback used when autowiring is
// disabled container-wide: it constructs the class from the explicitly
// registered constructor and method arguments verbatim, with no
// introspection, no recursion, and no cycle detection. Its only failure
// mode is an argument mismatch, surfaced as a construction error.
type rawStrategy struct {
	c *Container
}

func (r *rawStrategy) class(t reflect.Type, res *classResource, methodOverride string) (*Result, error) {
	ptr := reflect.New(t)
	elem := ptr.Elem()

	if res != nil {
		for name, raw := range res.ctor {
			if err := setNamedField(r.c, t, elem, name, raw); err != nil {
				return nil, err
			}
		}
		for name, raw := range res.props {
			if err := setNamedField(r.c, t, elem, name, raw); err != nil {
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
		return out, nil
	}

	m := ptr.MethodByName(method)
	if !m.IsValid() {
		return nil, fmt.Errorf("%w: %s has no method %q", ErrConstruction, t, method)
	}

	var explicit []any
	if res != nil {
		explicit = res.methodArgs
	}

	mt := m.Type()
	fixed := mt.NumIn()
	if mt.IsVariadic() {
		fixed--
		if len(explicit) < fixed {
			return nil, fmt.Errorf("%w: %s.%s wants at least %d arguments, got %d", ErrConstruction, t, method, fixed, len(explicit))
		}
	} else if len(explicit) != fixed {
		return nil, fmt.Errorf("%w: %s.%s wants %d arguments, got %d", ErrConstruction, t, method, fixed, len(explicit))
	}

	args := make([]reflect.Value, 0, len(explicit))
	for i, raw := range explicit {
		pt := mt.In(min(i, fixed))
		if mt.IsVariadic() && i >= fixed {
			pt = mt.In(fixed).Elem()
		}
		v, err := coerce(raw, pt)
		if err != nil {
			return nil, fmt.Errorf("%w: argument %d of %s.%s: %v", ErrConstruction, i, t, method, err)
		}
		args = append(args, v)
	}

	rets := m.Call(args)
	if n := len(rets); n > 0 {
		if last := rets[n-1]; last.Type() == errType && !last.IsNil() {
			return nil, fmt.Errorf("%s.%s: %w", t, method, last.Interface().(error))
		}
		if rets[0].Type() != errType {
			out.Returned = rets[0].Interface()
		}
	}
	return out, nil
}

var errType = reflect.TypeOf((*error)(nil)).Elem()
