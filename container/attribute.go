package container

import (
	"reflect"

	"github.com/km-arc/go-injector/introspect"
)

// ── Declarative-metadata resolvers ────────────────────────────────────────────

// AttributeContext is handed to an AttributeResolver when a tagged field is
// being resolved.
type AttributeContext struct {
	// Container is the container performing the resolution.
	Container *Container
	// Owner is the struct type whose field is being injected.
	Owner reflect.Type
	// Field is the introspected target field, including its parsed tag.
	Field introspect.Field
	// Arg is the tag argument — the part after the first colon in
	// `inject:"name:arg"`.
	Arg string
}

// AttributeResolver supplies or transforms the value injected into a field
// carrying an `inject:"name[:arg]"` tag registered under name.
//
//	c.RegisterAttribute("env", myEnvResolver)
//
//	type Mailer struct {
//	    From string `inject:"env:MAIL_FROM"`
//	}
//
// A tag naming an unregistered resolver contributes nothing — it is a
// no-op, not an error, so tags can carry logic-only markers.
type AttributeResolver interface {
	Resolve(ctx AttributeContext) (any, error)
}

// AttributeResolverFunc adapts a plain function to AttributeResolver.
type AttributeResolverFunc func(ctx AttributeContext) (any, error)

func (f AttributeResolverFunc) Resolve(ctx AttributeContext) (any, error) { return f(ctx) }

// RegisterAttribute associates a tag name with a resolver. Guarded by the
// configuration lock.
func (c *Container) RegisterAttribute(name string, resolver AttributeResolver) error {
	return c.repo.registerAttribute(name, resolver)
}
