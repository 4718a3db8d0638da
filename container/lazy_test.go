package container_test

import (
	"errors"
	"testing"

	"github.com/km-arc/go-injector/container"
)

// ── Eager preload ────────────────────────────────────────────────────────────

func TestPreload_Eager(t *testing.T) {
	c := container.New()
	factory, n := counterFactory()
	mustBind(t, c, "svc", factory)

	if err := c.Preload("svc"); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if *n != 1 {
		t.Errorf("factory ran %d times during eager preload, want 1", *n)
	}

	_ = mustGet(t, c, "svc")
	if *n != 1 {
		t.Errorf("factory ran %d times after Get, want still 1", *n)
	}
}

func TestPreload_UnknownID(t *testing.T) {
	c := container.New()
	if err := c.Preload("ghost"); !errors.Is(err, container.ErrDefinitionNotFound) {
		t.Errorf("got %v, want ErrDefinitionNotFound", err)
	}
}

func TestPreload_SkipsTransient(t *testing.T) {
	c := container.New()
	factory, n := counterFactory()
	mustBind(t, c, "svc", factory, container.AsTransient())

	if err := c.Preload("svc"); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if *n != 0 {
		t.Errorf("factory ran %d times, transient ids have no cache line to warm", *n)
	}
}

// ── Lazy placeholders ────────────────────────────────────────────────────────

func TestLazy_DeferredUntilFirstGet(t *testing.T) {
	c := container.New(container.WithLazy(true))
	factory, n := counterFactory()
	mustBind(t, c, "svc", factory)

	if err := c.Preload("svc"); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if *n != 0 {
		t.Fatalf("factory ran %d times before first Get, want 0", *n)
	}

	first := mustGet(t, c, "svc")
	if *n != 1 {
		t.Errorf("factory ran %d times after first Get, want 1", *n)
	}

	second := mustGet(t, c, "svc")
	if *n != 1 {
		t.Errorf("factory ran %d times after second Get, placeholder must evaluate once", *n)
	}
	if first != second {
		t.Errorf("got %v then %v, want the evaluated value cached", first, second)
	}
}

func TestLazy_FailureRetriedInFull(t *testing.T) {
	c := container.New(container.WithLazy(true))
	calls := 0
	mustBind(t, c, "svc", func() (any, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient outage")
		}
		return "recovered", nil
	})

	if err := c.Preload("svc"); err != nil {
		t.Fatalf("preload: %v", err)
	}

	if _, err := c.Get("svc"); err == nil {
		t.Fatal("first Get must surface the evaluation failure")
	}

	// The failed placeholder is cleared; the next request resolves in full.
	got := mustGet(t, c, "svc")
	if got != "recovered" {
		t.Errorf("got %v, want %q", got, "recovered")
	}
	if calls != 2 {
		t.Errorf("factory ran %d times, want 2", calls)
	}
}

func TestLazy_SelfReference(t *testing.T) {
	c := container.New(container.WithLazy(true))
	mustBind(t, c, "svc", func(app *container.Container) (any, error) {
		return app.Get("svc")
	})

	if err := c.Preload("svc"); err != nil {
		t.Fatalf("preload: %v", err)
	}

	_, err := c.Get("svc")
	if !errors.Is(err, container.ErrCircularDependency) {
		t.Errorf("got %v, want ErrCircularDependency", err)
	}
}
