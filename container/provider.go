package container

import "fmt"

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider groups related definitions into a unit the host
// application registers at its composition root.
//
// Every provider must implement at minimum Register(). Boot() is called
// after ALL providers have been registered, making it safe to resolve
// other definitions inside Boot().
//
//	type PaymentProvider struct{ container.BaseProvider }
//
//	func (p *PaymentProvider) Register(app *container.Container) error {
//	    return app.Bind("gateway", (*StripeGateway)(nil))
//	}
//
//	func (p *PaymentProvider) Boot(app *container.Container) error {
//	    gw, err := app.Get("gateway")
//	    …
//	}
type ServiceProvider interface {
	// Register binds definitions into the container.
	// Do NOT resolve other definitions here — use Boot() for that.
	Register(app *Container) error

	// Boot is called after all providers are registered.
	// Safe to resolve and use any definition here.
	Boot(app *Container) error

	// Provides returns the ids this provider registers. Used for deferred
	// (lazy) provider loading. Return nil if the provider is always eager.
	Provides() []string

	// IsDeferred returns true if this provider should be loaded lazily —
	// only when one of its Provides() ids is first resolved.
	IsDeferred() bool
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct that provides no-op implementations
// of Boot(), Provides(), and IsDeferred().
// Embed it in your provider and only override what you need.
type BaseProvider struct{}

func (p *BaseProvider) Boot(_ *Container) error { return nil }
func (p *BaseProvider) Provides() []string      { return nil }
func (p *BaseProvider) IsDeferred() bool        { return false }

// ── ProviderRegistry ──────────────────────────────────────────────────────────

// ProviderRegistry manages registration and booting of ServiceProviders,
// including deferred providers whose definitions are only registered when
// one of their ids is first resolved.
type ProviderRegistry struct {
	app        *Container
	eager      []ServiceProvider
	booted     bool
	registered map[ServiceProvider]bool
}

// NewProviderRegistry creates a registry bound to app.
func NewProviderRegistry(app *Container) *ProviderRegistry {
	return &ProviderRegistry{
		app:        app,
		registered: make(map[ServiceProvider]bool),
	}
}

// Register adds a provider and runs its Register() method. Deferred
// providers are intercepted: each of their ids gets a placeholder factory
// that performs the real registration on first Get.
func (r *ProviderRegistry) Register(provider ServiceProvider) error {
	if r.registered[provider] {
		return nil
	}
	r.registered[provider] = true

	if provider.IsDeferred() {
		return r.interceptDeferred(provider)
	}

	if err := provider.Register(r.app); err != nil {
		return err
	}
	r.eager = append(r.eager, provider)

	// If already booted, boot this provider immediately.
	if r.booted {
		return provider.Boot(r.app)
	}
	return nil
}

// interceptDeferred installs, per provided id, a transient factory whose
// first invocation registers the provider for real and re-resolves the id.
func (r *ProviderRegistry) interceptDeferred(provider ServiceProvider) error {
	loaded := false
	for _, id := range provider.Provides() {
		id := id
		err := r.app.Bind(id, func(c *Container) (any, error) {
			if loaded {
				// Register ran but did not replace this placeholder.
				return nil, fmt.Errorf("%w: deferred provider did not register %q", ErrDefinitionNotFound, id)
			}
			loaded = true
			if err := provider.Register(c); err != nil {
				return nil, fmt.Errorf("deferred provider for %q: %w", id, err)
			}
			if r.booted {
				if err := provider.Boot(c); err != nil {
					return nil, fmt.Errorf("deferred provider for %q: %w", id, err)
				}
			}
			return c.Get(id)
		}, AsTransient())
		if err != nil {
			return err
		}
	}
	return nil
}

// Boot calls Boot() on all eager providers.
// Must be called after ALL providers have been registered.
func (r *ProviderRegistry) Boot() error {
	if r.booted {
		return nil
	}
	r.booted = true
	for _, provider := range r.eager {
		if err := provider.Boot(r.app); err != nil {
			return err
		}
	}
	return nil
}

// Booted returns true if Boot() has been called.
func (r *ProviderRegistry) Booted() bool { return r.booted }

// Providers returns all registered eager providers.
func (r *ProviderRegistry) Providers() []ServiceProvider { return r.eager }
