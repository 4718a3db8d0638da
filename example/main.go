// A small HTTP service showing the container end to end: environment
// switched interface bindings, autowired constructors, scoped lifetimes
// and a service provider. Run it with APP_ENV=production to swap the
// sandbox gateway for the live one without touching the handlers.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/km-arc/go-injector/config"
	"github.com/km-arc/go-injector/container"
)

// ── Domain ──────────────────────────────────────────────────────────────────

// PaymentGateway is the seam the environment binding switches on.
type PaymentGateway interface {
	Charge(amount int) (string, error)
}

// StripeGateway is the production implementation.
type StripeGateway struct {
	APIKey string `inject:"env:STRIPE_API_KEY"`
}

func (g *StripeGateway) Charge(amount int) (string, error) {
	if g.APIKey == "" {
		return "", fmt.Errorf("stripe: missing api key")
	}
	return fmt.Sprintf("stripe:charged:%d", amount), nil
}

// PaypalGateway is the sandbox implementation used locally.
type PaypalGateway struct {
	Sandbox bool `default:"true"`
}

func (g *PaypalGateway) Charge(amount int) (string, error) {
	return fmt.Sprintf("paypal:sandbox=%t:charged:%d", g.Sandbox, amount), nil
}

// OrderService is fully autowired: the container picks the gateway for
// the active environment.
type OrderService struct {
	Gateway PaymentGateway
	Logger  *slog.Logger `inject:"-"`
}

func (s *OrderService) Place(amount int) (string, error) {
	if s.Logger != nil {
		s.Logger.Info("placing order", "amount", amount)
	}
	return s.Gateway.Charge(amount)
}

// ── Provider ────────────────────────────────────────────────────────────────

type PaymentProvider struct {
	container.BaseProvider
	Logger *slog.Logger
}

func (p *PaymentProvider) Register(c *container.Container) error {
	if err := c.BindInterfaceForEnv("local", (*PaymentGateway)(nil), &PaypalGateway{}); err != nil {
		return err
	}
	if err := c.BindInterfaceForEnv("testing", (*PaymentGateway)(nil), &PaypalGateway{}); err != nil {
		return err
	}
	if err := c.BindInterfaceForEnv("production", (*PaymentGateway)(nil), &StripeGateway{}); err != nil {
		return err
	}
	return c.RegisterProperty(&OrderService{}, map[string]any{"Logger": p.Logger})
}

// ── Bootstrap ───────────────────────────────────────────────────────────────

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := config.Load()

	c := container.New(
		container.WithLogger(logger),
		container.WithLazy(true),
	)
	if err := cfg.Apply(c); err != nil {
		logger.Error("config", "err", err)
		os.Exit(1)
	}

	providers := container.NewProviderRegistry(c)
	if err := providers.Register(&PaymentProvider{Logger: logger}); err != nil {
		logger.Error("register", "err", err)
		os.Exit(1)
	}
	if err := providers.Boot(); err != nil {
		logger.Error("boot", "err", err)
		os.Exit(1)
	}

	// Freeze the wiring before serving traffic.
	c.Lock()

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/orders/{amount}", func(w http.ResponseWriter, req *http.Request) {
		amount := 0
		fmt.Sscanf(chi.URLParam(req, "amount"), "%d", &amount)

		svc, err := container.Construct[OrderService](c)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		ref, err := svc.Place(amount)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"reference": ref, "env": c.Environment()})
	})

	addr := config.Get("APP_ADDR", ":8080")
	logger.Info("listening", "addr", addr, "env", cfg.App.Env)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Error("serve", "err", err)
		os.Exit(1)
	}
}
