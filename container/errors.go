package container

import (
	"errors"

	"github.com/km-arc/go-injector/introspect"
)

// Resolution and configuration errors. All failures raised by the container
// wrap one of these sentinels, so callers can classify with errors.Is while
// still getting the offending id / field / class in the message.
var (
	// Configuration errors
	ErrAmbiguousDefinition = errors.New("definition value is textually identical to its id")
	ErrConfigurationLocked = errors.New("container configuration is locked")
	ErrInvalidDefinition   = errors.New("definition is not a value, class, or factory")
	ErrInvalidBinding      = errors.New("invalid interface binding")

	// Resolution errors
	ErrDefinitionNotFound     = errors.New("no definition registered for id")
	ErrUnresolvableDependency = errors.New("dependency cannot be resolved")
	ErrCircularDependency     = errors.New("circular dependency detected")
	ErrInterfaceNotBound      = errors.New("no concrete type bound for interface")
	ErrConstruction           = errors.New("construction failed")

	// Definition store errors
	ErrNoStore = errors.New("no definition store configured")
)

// ErrInvalidSubject mirrors the introspection sentinel so callers only need
// this package to classify every container failure.
var ErrInvalidSubject = introspect.ErrInvalidSubject
