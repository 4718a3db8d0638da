package container

import (
	"reflect"

	"github.com/km-arc/go-injector/introspect"
)

// ContextualBuilder implements the fluent contextual registration API:
// "when this class needs that field, give it this value". Each Give writes
// a single constructor-bag key, merging with whatever is already
// registered for the class.
//
//	c.When(&PhotoProcessor{}).Needs("Storage").Give(&S3Storage{})
//	c.When(&PhotoProcessor{}).Needs("BasePath").Give("/tmp/photos")
type ContextualBuilder struct {
	container *Container
	class     reflect.Type
	needs     string
	err       error
}

// When starts a contextual registration chain for a class (a struct value,
// pointer, or reflect.Type).
func (c *Container) When(class any) *ContextualBuilder {
	b := &ContextualBuilder{container: c}
	t, err := introspect.StructType(class)
	if err != nil {
		b.err = err
		return b
	}
	b.class = t
	return b
}

// Needs names the field the class depends on.
func (b *ContextualBuilder) Needs(field string) *ContextualBuilder {
	b.needs = field
	return b
}

// Give supplies the value injected into the named field. Returns the
// registration error, if any, so chains stay checkable:
//
//	if err := c.When(&Job{}).Needs("Attempts").Give(3); err != nil { … }
func (b *ContextualBuilder) Give(value any) error {
	if b.err != nil {
		return b.err
	}
	return b.container.repo.mergeConstructorArg(b.class, b.needs, value)
}

// GiveFactory defers the value to a factory evaluated at injection time.
func (b *ContextualBuilder) GiveFactory(factory func(c *Container) (any, error)) error {
	if b.err != nil {
		return b.err
	}
	return b.container.repo.mergeConstructorArg(b.class, b.needs, deferredArg{fn: factory})
}
