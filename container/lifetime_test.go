package container_test

import (
	"testing"

	"github.com/km-arc/go-injector/container"
)

// ── Singleton ────────────────────────────────────────────────────────────────

func TestSingleton_ResolvedOnce(t *testing.T) {
	c := container.New()
	factory, n := counterFactory()
	mustBind(t, c, "svc", factory)

	first := mustGet(t, c, "svc")
	second := mustGet(t, c, "svc")

	if *n != 1 {
		t.Errorf("factory ran %d times, want 1", *n)
	}
	if first != second {
		t.Errorf("got %v then %v, want the cached value", first, second)
	}
}

func TestSingleton_SharedAcrossScopes(t *testing.T) {
	c := container.New()
	mustBind(t, c, "db", (*Database)(nil))

	c.SetScope("req-1")
	first := mustGet(t, c, "db")
	c.SetScope("req-2")
	second := mustGet(t, c, "db")

	if first != second {
		t.Error("a singleton must ignore the scope token")
	}
}

// ── Transient ────────────────────────────────────────────────────────────────

func TestTransient_FreshPerGet(t *testing.T) {
	c := container.New()
	factory, n := counterFactory()
	mustBind(t, c, "svc", factory, container.AsTransient())

	first := mustGet(t, c, "svc")
	second := mustGet(t, c, "svc")

	if *n != 2 {
		t.Errorf("factory ran %d times, want 2", *n)
	}
	if first == second {
		t.Errorf("got %v twice, want a fresh value per Get", first)
	}
}

func TestTransient_ClassInstances(t *testing.T) {
	c := container.New()
	mustBind(t, c, "db", (*Database)(nil), container.AsTransient())

	first := mustGet(t, c, "db").(*Database)
	second := mustGet(t, c, "db").(*Database)

	if first == second {
		t.Error("transient class resolution must build a fresh instance")
	}
}

// ── Scoped ───────────────────────────────────────────────────────────────────

func TestScoped_PartitionsByToken(t *testing.T) {
	c := container.New()
	mustBind(t, c, "db", (*Database)(nil), container.AsScoped())

	c.SetScope("req-1")
	inFirst := mustGet(t, c, "db").(*Database)
	again := mustGet(t, c, "db").(*Database)
	if inFirst != again {
		t.Error("within one scope the instance must be cached")
	}

	c.SetScope("req-2")
	inSecond := mustGet(t, c, "db").(*Database)
	if inSecond == inFirst {
		t.Error("a new scope token must get a fresh instance")
	}

	// Returning to an earlier token yields its cached instance.
	c.SetScope("req-1")
	back := mustGet(t, c, "db").(*Database)
	if back != inFirst {
		t.Error("an earlier token must keep its cached instance")
	}
}

// ── Get vs Make ──────────────────────────────────────────────────────────────

func TestMake_AlwaysFresh(t *testing.T) {
	c := container.New()
	mustBind(t, c, "db", (*Database)(nil))

	cached := mustGet(t, c, "db")
	if mustGet(t, c, "db") != cached {
		t.Fatal("Get must serve the cached singleton")
	}

	made, err := c.Make(&Database{})
	if err != nil {
		t.Fatalf("make: %v", err)
	}
	if made == cached {
		t.Error("Make must construct a fresh instance even when a cache line exists")
	}
}

// ── Dependency lifetimes ─────────────────────────────────────────────────────

// A definition registered under a type's key contributes its lifetime to
// type-driven resolution of that dependency.
func TestDependency_TransientByDefinition(t *testing.T) {
	c := container.New()
	mustBind(t, c, container.TypeKey(&Database{}), (*Database)(nil), container.AsTransient())

	first, err := container.Construct[UserRepo](c)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	second, err := container.Construct[UserRepo](c)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if first.DB == second.DB {
		t.Error("a transient dependency must be rebuilt per construction")
	}
}

func TestDependency_SingletonByDefault(t *testing.T) {
	c := container.New()

	first, err := container.Construct[UserRepo](c)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	second, err := container.Construct[UserRepo](c)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if first.DB != second.DB {
		t.Error("an unregistered dependency defaults to singleton")
	}
}
