// Package container provides a runtime dependency-resolution engine: a
// mutable definition repository plus a type-driven autowiring resolver
// that turns string ids, struct types, and interfaces into fully-wired
// object graphs.
//
// # Overview
//
// The container manages the instantiation and lifecycle of your
// application's dependencies. A definition is a literal value, a class (a
// struct type, autowired field by field), or a factory. Resolution honors
// caller-declared overrides, environment-keyed interface bindings, struct
// tag metadata, defaults, and per-id lifetimes, with cycle detection over
// the whole construction path.
//
// Because Go has no constructor-parameter reflection, a "class" is a
// struct type and its constructor parameters are its exported fields.
//
// # Container lifecycle
//
//  1. Create: c := container.New()
//  2. Register definitions, class resources, and interface bindings
//  3. Lock: c.Lock() — configuration is frozen, resolution begins
//  4. Resolve: c.Get(id), c.Make(class), container.Resolve[T](c, id)
//
// # Definitions
//
//	// Literal — bound as-is
//	c.Bind("version", "1.4.2")
//
//	// Class — autowired on first Get
//	c.Bind("repo", (*UserRepo)(nil))
//
//	// Factory — invoked on first Get (Singleton) or every Get (Transient)
//	c.Bind("conn", func(c *container.Container) (any, error) {
//	    return dial(container.MustResolve[string](c, "dsn"))
//	}, container.AsTransient())
//
// # Autowiring
//
// Each exported field of a class resolves through, in order: the explicit
// constructor bag, values already resolved in the same call, type-driven
// recursion (interfaces via the current environment's bindings), inject
// tag resolvers, and the default tag. Anything left over is an
// ErrUnresolvableDependency naming the field, the class, and the call
// site.
//
//	type CheckoutService struct {
//	    Gateway  PaymentGateway                       // env-bound interface
//	    Repo     *OrderRepo                           // recursively autowired
//	    Endpoint string `inject:"env:PAYMENT_URL"`    // attribute resolver
//	    Retries  int    `default:"3"`                 // default tag
//	    Note     string `inject:",optional"`          // zero if unresolvable
//	}
//
// # Lifetimes and scopes
//
//	c.Bind("auditor", (*Auditor)(nil))                          // Singleton
//	c.Bind("tx", newTx, container.AsTransient())                // fresh per Get
//	c.Bind("session", (*Session)(nil), container.AsScoped())    // per scope token
//
//	c.SetScope("request-41")
//	a, _ := c.Get("session")
//	c.SetScope("request-42")
//	b, _ := c.Get("session")   // distinct instance
//	c.SetScope("request-41")
//	a2, _ := c.Get("session")  // a again
//
// # Interface bindings
//
//	c.BindInterfaceForEnv("prod", (*PaymentGateway)(nil), &Stripe{})
//	c.BindInterfaceForEnv("test", (*PaymentGateway)(nil), &Paypal{})
//	c.SetEnvironment("prod")
//	gw, _ := c.Make((*PaymentGateway)(nil))  // *Stripe
//
// # Designated methods
//
// A method can be invoked right after construction, its parameters
// resolved by the same algorithm and its return value recorded separately:
//
//	c.RegisterMethod(&ReportJob{}, "Run", nil, "daily") // nil → autowire
//	out, _ := c.MakeWith(&ReportJob{}, "")
//	_ = out.Returned
//
// Classes may also implement introspect.EntryPointer, or the container can
// carry a default via WithDefaultMethod.
//
// # Lazy placeholders
//
// With WithLazy(true), Preload installs deferred placeholders that are
// evaluated exactly once, by the first Get; a failed evaluation clears the
// entry so the next request retries.
//
// # Service providers
//
//	type AppProvider struct{ container.BaseProvider }
//
//	func (p *AppProvider) Register(app *container.Container) error {
//	    return app.Bind("mailer", (*SMTPMailer)(nil))
//	}
//
//	registry := container.NewProviderRegistry(c)
//	_ = registry.Register(&AppProvider{})
//	_ = registry.Boot()
package container
