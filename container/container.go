package container

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/km-arc/go-injector/introspect"
)

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the resolution engine: a definition repository plus the
// autowiring machinery that turns ids and struct types into fully-wired
// object graphs.
//
// It supports:
//   - Bind / Instance (values, classes, factories) with Singleton,
//     Transient, and Scoped lifetimes and tag groups
//   - RegisterClass / RegisterMethod / RegisterProperty argument bags
//   - Autowiring of struct fields with override precedence, environment
//     keyed interface bindings, and cycle detection
//   - Lazy placeholders, attribute (inject tag) resolvers, a configuration
//     lock, and an external definition store
type Container struct {
	repo   *repository
	shapes *introspect.Cache
	opts   options
	logger *slog.Logger
	store  Store
}

type options struct {
	autowire      bool
	lazy          bool
	attributes    bool
	defaultMethod string
}

// Option configures a Container at construction time.
type Option func(*Container)

// WithAutowire toggles the autowired strategy. When false the container
// falls back to raw construction from explicitly registered arguments only.
func WithAutowire(on bool) Option { return func(c *Container) { c.opts.autowire = on } }

// WithLazy makes Preload and definition-store restores install deferred
// placeholders instead of resolving eagerly.
func WithLazy(on bool) Option { return func(c *Container) { c.opts.lazy = on } }

// WithAttributes toggles inject-tag resolver contribution during field
// resolution.
func WithAttributes(on bool) Option { return func(c *Container) { c.opts.attributes = on } }

// WithDefaultMethod sets a container-wide call-on method name, invoked
// after construction on every class that has it.
func WithDefaultMethod(name string) Option { return func(c *Container) { c.opts.defaultMethod = name } }

// WithEnvironment sets the initial environment consulted by interface
// bindings.
func WithEnvironment(env string) Option { return func(c *Container) { c.repo.environment = env } }

// WithScope sets the initial scope token.
func WithScope(token string) Option { return func(c *Container) { c.repo.scope = token } }

// WithLogger replaces the container's logger.
func WithLogger(l *slog.Logger) Option { return func(c *Container) { c.logger = l } }

// WithStore attaches an external definition store used by SaveDefinitions
// and LoadDefinitions.
func WithStore(s Store) Option { return func(c *Container) { c.store = s } }

// New creates an empty container. Autowiring and attribute resolution are
// on by default; lazy placeholders are off.
func New(opts ...Option) *Container {
	c := &Container{
		repo:   newRepository(),
		shapes: introspect.New(),
		opts: options{
			autowire:   true,
			attributes: true,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ── Registration ──────────────────────────────────────────────────────────────

// BindOption adjusts a single definition's metadata.
type BindOption func(*definition)

// AsTransient re-runs the full resolution on every Get.
func AsTransient() BindOption { return func(d *definition) { d.lifetime = Transient } }

// AsScoped caches the resolved value per (id, scope token).
func AsScoped() BindOption { return func(d *definition) { d.lifetime = Scoped } }

// WithTags adds the definition to the named tag groups.
func WithTags(tags ...string) BindOption {
	return func(d *definition) { d.tags = append(d.tags, tags...) }
}

// Bind registers a definition under id. The definition may be:
//
//   - a factory func — zero parameters or a single *Container, returning a
//     value and optionally a trailing error;
//   - a class — a reflect.Type of a struct or a typed nil pointer like
//     (*UserRepo)(nil), autowired on resolution;
//   - any other value — bound as a literal.
//
// The default lifetime is Singleton.
//
//	c.Bind("cache", func(c *container.Container) (any, error) {
//	    return cache.NewFile(dir)
//	}, container.AsTransient())
func (c *Container) Bind(id string, def any, opts ...BindOption) error {
	d := &definition{id: id, lifetime: Singleton}

	switch v := def.(type) {
	case nil:
		d.kind = defValue
	case reflect.Type:
		st, err := introspect.StructType(v)
		if err != nil {
			return fmt.Errorf("bind %q: %w", id, err)
		}
		d.kind = defClass
		d.class = st
	default:
		rv := reflect.ValueOf(def)
		switch {
		case rv.Kind() == reflect.Func:
			cb, err := c.shapes.Callable(def)
			if err != nil {
				return fmt.Errorf("bind %q: %w", id, err)
			}
			if err := validFactory(cb); err != nil {
				return fmt.Errorf("bind %q: %w", id, err)
			}
			// The memoized shape may carry a sibling closure from the same
			// source location; invoke this binding's own func value.
			own := *cb
			own.Func = rv
			d.kind = defFactory
			d.factory = &own
		case rv.Kind() == reflect.Pointer && rv.IsNil() && rv.Type().Elem().Kind() == reflect.Struct:
			d.kind = defClass
			d.class = rv.Type().Elem()
		default:
			d.kind = defValue
			d.value = def
		}
	}

	for _, opt := range opts {
		opt(d)
	}
	if err := c.repo.setDefinition(d); err != nil {
		return err
	}
	c.logger.Debug("bound definition", "id", id, "lifetime", d.lifetime.String())
	return nil
}

// Instance binds a pre-built value under id. Sugar for Bind with a literal.
func (c *Container) Instance(id string, value any, opts ...BindOption) error {
	return c.Bind(id, value, opts...)
}

// MustBind is Bind that panics on error, for composition-root wiring.
func (c *Container) MustBind(id string, def any, opts ...BindOption) {
	if err := c.Bind(id, def, opts...); err != nil {
		panic(fmt.Sprintf("container: bind %q: %v", id, err))
	}
}

func validFactory(cb *introspect.Callable) error {
	containerType := reflect.TypeOf((*Container)(nil))
	if len(cb.In) > 1 || (len(cb.In) == 1 && cb.In[0] != containerType) {
		return fmt.Errorf("%w: factory must take no arguments or a single *Container", ErrInvalidDefinition)
	}
	if cb.NumOut == 0 || cb.NumOut > 2 || (cb.NumOut == 2 && !cb.ReturnsErr) {
		return fmt.Errorf("%w: factory must return a value and an optional error", ErrInvalidDefinition)
	}
	return nil
}

// RegisterClass replaces the constructor argument bag for a class: field
// name → value, applied verbatim during autowiring with top precedence.
func (c *Container) RegisterClass(class any, args map[string]any) error {
	t, err := introspect.StructType(class)
	if err != nil {
		return err
	}
	return c.repo.addClassResource(t, kindConstructor, args, "", nil, nil)
}

// RegisterMethod designates a method to invoke after construction, with
// positional arguments. A nil argument slot means "autowire this
// parameter". Replaces any previously registered method wholesale.
func (c *Container) RegisterMethod(class any, method string, args ...any) error {
	t, err := introspect.StructType(class)
	if err != nil {
		return err
	}
	return c.repo.addClassResource(t, kindMethod, nil, method, args, nil)
}

// RegisterProperty merges property assignments for a class, applied after
// construction. Unlike RegisterClass, repeated calls merge key-wise.
func (c *Container) RegisterProperty(class any, props map[string]any) error {
	t, err := introspect.StructType(class)
	if err != nil {
		return err
	}
	return c.repo.addClassResource(t, kindProperty, nil, "", nil, props)
}

// BindInterfaceForEnv maps an interface to a concrete class for one
// environment. iface is a typed nil pointer to the interface, concrete a
// struct value, pointer, or reflect.Type:
//
//	c.BindInterfaceForEnv("prod", (*PaymentGateway)(nil), &Stripe{})
//	c.BindInterfaceForEnv("test", (*PaymentGateway)(nil), &Paypal{})
func (c *Container) BindInterfaceForEnv(env string, iface any, concrete any) error {
	it, err := interfaceType(iface)
	if err != nil {
		return err
	}
	ct, err := introspect.StructType(concrete)
	if err != nil {
		return err
	}
	if !reflect.PointerTo(ct).Implements(it) {
		return fmt.Errorf("%w: %s does not implement %s", ErrInvalidBinding, reflect.PointerTo(ct), it)
	}
	if err := c.repo.bindInterfaceForEnv(env, it, ct); err != nil {
		return err
	}
	c.logger.Debug("bound interface", "env", env, "interface", it.String(), "concrete", ct.String())
	return nil
}

func interfaceType(iface any) (reflect.Type, error) {
	t := reflect.TypeOf(iface)
	if t == nil || t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Interface {
		return nil, fmt.Errorf("%w: pass a typed nil pointer like (*PaymentGateway)(nil)", ErrInvalidBinding)
	}
	return t.Elem(), nil
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Get resolves id, honoring the definition's lifetime policy. For Singleton
// and Scoped ids the resolved value is cached; for Transient every call
// re-runs the full resolution.
func (c *Container) Get(id string) (any, error) {
	def, ok := c.repo.getDefinition(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrDefinitionNotFound, id)
	}

	key, cacheable := def.lifetime.cacheKey(id, c.repo.getScope())
	if cacheable {
		if v, ok, err := c.cachedValue(key); err != nil {
			return nil, err
		} else if ok {
			return v, nil
		}
	}

	v, err := c.resolveDefinition(def)
	if err != nil {
		return nil, err
	}
	if cacheable {
		c.repo.setResolved(key, &resolvedEntry{value: v})
	}
	c.logger.Debug("resolved definition", "id", id, "lifetime", def.lifetime.String(), "scope", key.scope)
	return v, nil
}

// cachedValue reads one resolved cache line, evaluating a lazy placeholder
// exactly once. A failed evaluation clears the entry so the next request
// retries in full.
func (c *Container) cachedValue(key resolvedKey) (any, bool, error) {
	e, ok := c.repo.getResolved(key)
	if !ok {
		return nil, false, nil
	}
	if e.lazy == nil {
		return e.value, true, nil
	}
	v, err := e.lazy.eval()
	if err != nil {
		c.repo.clearResolved(key)
		return nil, false, err
	}
	c.repo.setResolved(key, &resolvedEntry{value: v})
	return v, true, nil
}

// Preload resolves the given ids ahead of use. With the lazy option on it
// installs a deferred placeholder per id instead; the placeholder is
// evaluated, once, by the first Get. Transient ids are skipped: they have
// no cache line to warm.
func (c *Container) Preload(ids ...string) error {
	for _, id := range ids {
		def, ok := c.repo.getDefinition(id)
		if !ok {
			return fmt.Errorf("%w: %q", ErrDefinitionNotFound, id)
		}
		key, cacheable := def.lifetime.cacheKey(id, c.repo.getScope())
		if !cacheable {
			continue
		}
		if _, ok := c.repo.getResolved(key); ok {
			continue
		}
		if c.opts.lazy {
			d := def
			c.repo.setResolved(key, &resolvedEntry{
				lazy: newLazy(id, func() (any, error) { return c.resolveDefinition(d) }),
			})
			continue
		}
		if _, err := c.Get(id); err != nil {
			return err
		}
	}
	return nil
}

// Make constructs a class (or an interface, through the current
// environment's bindings) and returns the fresh instance. Unlike Get, Make
// never reuses or stores a cache line for the subject itself — only its
// recursively resolved dependencies hit the lifetime cache.
func (c *Container) Make(class any) (any, error) {
	out, err := c.MakeWith(class, "")
	if err != nil {
		return nil, err
	}
	return out.Instance, nil
}

// MakeWith is Make with an explicit call-on method override; the method's
// return value is recorded separately from the instance.
func (c *Container) MakeWith(class any, method string) (*Result, error) {
	t := subjectType(class)
	if t != nil && t.Kind() == reflect.Interface {
		if !c.opts.autowire {
			return nil, fmt.Errorf("%w: %s: interface resolution requires autowiring", ErrUnresolvableDependency, t)
		}
		a := &autowired{c: c}
		v, err := a.typed(t)
		if err != nil {
			return nil, err
		}
		return &Result{Instance: v.Interface()}, nil
	}

	st, err := introspect.StructType(class)
	if err != nil {
		return nil, err
	}
	return c.newStrategy().class(st, c.repo.resourceFor(st), method)
}

// Has reports whether a definition is registered under id.
func (c *Container) Has(id string) bool { return c.repo.hasDefinition(id) }

// Tagged resolves every definition registered under tag, in registration
// order.
//
//	reports, err := c.Tagged("reports")
func (c *Container) Tagged(tag string) ([]any, error) {
	ids := c.repo.taggedIDs(tag)
	out := make([]any, 0, len(ids))
	for _, id := range ids {
		v, err := c.Get(id)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// TaggedIDs returns the definition ids registered under tag without
// resolving them.
func (c *Container) TaggedIDs(tag string) []string { return c.repo.taggedIDs(tag) }

func subjectType(class any) reflect.Type {
	var t reflect.Type
	if rt, ok := class.(reflect.Type); ok {
		t = rt
	} else {
		t = reflect.TypeOf(class)
	}
	if t != nil && t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Interface {
		return t.Elem()
	}
	return t
}

// ── Scope, environment, lock ──────────────────────────────────────────────────

// SetScope switches the current scope token. Previously cached Scoped
// entries for other tokens are kept: returning to an earlier token yields
// the instances cached under it.
//
// The scope token is runtime state, not configuration: unlike the
// registration calls and SetEnvironment, it stays writable after Lock.
func (c *Container) SetScope(token string) {
	c.repo.setScope(token)
	c.logger.Debug("scope switched", "scope", token)
}

// Scope returns the current scope token.
func (c *Container) Scope() string { return c.repo.getScope() }

// SetEnvironment sets the environment consulted by interface bindings.
// Guarded by the configuration lock.
func (c *Container) SetEnvironment(env string) error { return c.repo.setEnvironment(env) }

// Environment returns the current environment.
func (c *Container) Environment() string { return c.repo.getEnvironment() }

// Lock freezes the configuration: every subsequent Bind, Register*, or
// binding call fails with ErrConfigurationLocked. Resolution, scope
// switching, and cache eviction remain available.
func (c *Container) Lock() {
	c.repo.lock()
	c.logger.Debug("configuration locked")
}

// IsLocked reports whether Lock has been called.
func (c *Container) IsLocked() bool { return c.repo.isLocked() }

// Forget drops every resolved cache line for id, across all scopes. The
// definition itself stays registered.
func (c *Container) Forget(id string) {
	c.repo.mu.Lock()
	defer c.repo.mu.Unlock()
	c.repo.dropResolvedLocked(id)
}

// Flush drops all resolved cache lines. Definitions, resources, and
// bindings stay registered.
func (c *Container) Flush() { c.repo.flushResolved() }

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve resolves id and type-asserts the result.
//
//	gateway, err := container.Resolve[PaymentGateway](c, "gateway")
func Resolve[T any](c *Container, id string) (T, error) {
	var zero T
	v, err := c.Get(id)
	if err != nil {
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q resolved to %T, want %T", ErrUnresolvableDependency, id, v, zero)
	}
	return typed, nil
}

// MustResolve is Resolve that panics on error.
func MustResolve[T any](c *Container, id string) T {
	v, err := Resolve[T](c, id)
	if err != nil {
		panic(fmt.Sprintf("container: resolve %q: %v", id, err))
	}
	return v
}

// Construct autowires a fresh *T.
//
//	svc, err := container.Construct[CheckoutService](c)
func Construct[T any](c *Container) (*T, error) {
	v, err := c.Make((*T)(nil))
	if err != nil {
		return nil, err
	}
	typed, ok := v.(*T)
	if !ok {
		return nil, fmt.Errorf("%w: constructed %T", ErrUnresolvableDependency, v)
	}
	return typed, nil
}
