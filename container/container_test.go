package container_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/km-arc/go-injector/container"
)

// ── Bind / Get ───────────────────────────────────────────────────────────────

func TestBind_Literal(t *testing.T) {
	c := container.New()
	mustBind(t, c, "answer", 42)

	if got := mustGet(t, c, "answer"); got != 42 {
		t.Errorf("got %v, want 42", got)
	}
}

func TestBind_NilLiteral(t *testing.T) {
	c := container.New()
	mustBind(t, c, "nothing", nil)

	if got := mustGet(t, c, "nothing"); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestInstance_ReturnsSamePointer(t *testing.T) {
	c := container.New()
	db := &Database{DSN: "postgres://prod"}
	if err := c.Instance("db", db); err != nil {
		t.Fatalf("instance: %v", err)
	}

	if got := mustGet(t, c, "db"); got != any(db) {
		t.Errorf("got %p, want the bound pointer %p", got, db)
	}
}

func TestBind_FactoryShapes(t *testing.T) {
	tests := []struct {
		name    string
		factory any
		ok      bool
	}{
		{"no args, one return", func() string { return "v" }, true},
		{"no args, value+error", func() (int, error) { return 7, nil }, true},
		{"container arg", func(c *container.Container) (any, error) { return "v", nil }, true},
		{"container arg, one return", func(c *container.Container) string { return "v" }, true},
		{"no returns", func() {}, false},
		{"wrong arg type", func(s string) string { return s }, false},
		{"too many args", func(a, b *container.Container) string { return "" }, false},
		{"two non-error returns", func() (int, string) { return 0, "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := container.New()
			err := c.Bind("svc", tt.factory)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, container.ErrInvalidDefinition) {
				t.Errorf("got %v, want ErrInvalidDefinition", err)
			}
		})
	}
}

func TestBind_SiblingClosures(t *testing.T) {
	c := container.New()
	for _, name := range []string{"first", "second"} {
		name := name
		mustBind(t, c, name, func() string { return name })
	}

	if got := mustGet(t, c, "first"); got != "first" {
		t.Errorf("first: got %v, each binding must keep its own closure", got)
	}
	if got := mustGet(t, c, "second"); got != "second" {
		t.Errorf("second: got %v, each binding must keep its own closure", got)
	}
}

func TestBind_FactoryError(t *testing.T) {
	c := container.New()
	boom := errors.New("boom")
	mustBind(t, c, "svc", func() (any, error) { return nil, boom })

	_, err := c.Get("svc")
	if !errors.Is(err, boom) {
		t.Errorf("got %v, want the factory error", err)
	}
}

func TestBind_ClassTypedNil(t *testing.T) {
	c := container.New()
	mustBind(t, c, "repo", (*UserRepo)(nil))

	repo, ok := mustGet(t, c, "repo").(*UserRepo)
	if !ok {
		t.Fatal("expected *UserRepo")
	}
	if repo.DB == nil {
		t.Fatal("expected DB to be autowired")
	}
	if repo.DB.DSN != "file::memory:" {
		t.Errorf("DSN: got %q, want the declared default", repo.DB.DSN)
	}
}

func TestBind_ClassReflectType(t *testing.T) {
	c := container.New()
	mustBind(t, c, "db", reflect.TypeOf(Database{}))

	if _, ok := mustGet(t, c, "db").(*Database); !ok {
		t.Error("expected *Database")
	}
}

func TestBind_AmbiguousDefinition(t *testing.T) {
	c := container.New()

	err := c.Bind("redis", "redis")
	if !errors.Is(err, container.ErrAmbiguousDefinition) {
		t.Errorf("got %v, want ErrAmbiguousDefinition", err)
	}

	// A string value that differs from the id is a plain literal.
	mustBind(t, c, "driver", "redis")
	if got := mustGet(t, c, "driver"); got != "redis" {
		t.Errorf("got %v, want %q", got, "redis")
	}
}

func TestBind_RebindInvalidatesCache(t *testing.T) {
	c := container.New()
	mustBind(t, c, "n", 1)
	_ = mustGet(t, c, "n")

	mustBind(t, c, "n", 2)
	if got := mustGet(t, c, "n"); got != 2 {
		t.Errorf("got %v, want the re-bound value 2", got)
	}
}

func TestGet_UnknownID(t *testing.T) {
	c := container.New()
	_, err := c.Get("ghost")
	if !errors.Is(err, container.ErrDefinitionNotFound) {
		t.Errorf("got %v, want ErrDefinitionNotFound", err)
	}
	if !strings.Contains(err.Error(), `"ghost"`) {
		t.Errorf("error %q should name the id", err)
	}
}

func TestHas(t *testing.T) {
	c := container.New()
	mustBind(t, c, "db", 1)

	if !c.Has("db") {
		t.Error("expected Has(db) true")
	}
	if c.Has("ghost") {
		t.Error("expected Has(ghost) false")
	}
}

// ── Tags ─────────────────────────────────────────────────────────────────────

func TestTagged_ResolvesInRegistrationOrder(t *testing.T) {
	c := container.New()
	mustBind(t, c, "daily", "daily-report", container.WithTags("reports"))
	mustBind(t, c, "weekly", "weekly-report", container.WithTags("reports", "slow"))
	mustBind(t, c, "monthly", "monthly-report", container.WithTags("reports"))

	got, err := c.Tagged("reports")
	if err != nil {
		t.Fatalf("tagged: %v", err)
	}
	want := []any{"daily-report", "weekly-report", "monthly-report"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if ids := c.TaggedIDs("slow"); len(ids) != 1 || ids[0] != "weekly" {
		t.Errorf("TaggedIDs(slow): got %v", ids)
	}
	if got, _ := c.Tagged("ghost"); len(got) != 0 {
		t.Errorf("unknown tag: got %v, want empty", got)
	}
}

func TestTagged_RebindReplacesTagGroups(t *testing.T) {
	c := container.New()
	mustBind(t, c, "job", "v1", container.WithTags("reports", "slow"))
	mustBind(t, c, "other", "x", container.WithTags("reports"))

	// The re-bind keeps "reports" (holding its position) and drops "slow".
	mustBind(t, c, "job", "v2", container.WithTags("reports", "nightly"))

	if ids := c.TaggedIDs("reports"); len(ids) != 2 || ids[0] != "job" || ids[1] != "other" {
		t.Errorf("reports: got %v, want [job other]", ids)
	}
	if ids := c.TaggedIDs("slow"); len(ids) != 0 {
		t.Errorf("slow: got %v, a dropped tag must not keep resolving the id", ids)
	}
	if ids := c.TaggedIDs("nightly"); len(ids) != 1 || ids[0] != "job" {
		t.Errorf("nightly: got %v", ids)
	}

	got, err := c.Tagged("reports")
	if err != nil {
		t.Fatalf("tagged: %v", err)
	}
	if got[0] != "v2" {
		t.Errorf("got %v, want the re-bound value", got[0])
	}
}

// ── Lock ─────────────────────────────────────────────────────────────────────

func TestLock_FreezesConfiguration(t *testing.T) {
	c := newTestContainer(t)
	mustBind(t, c, "db", (*Database)(nil))

	c.Lock()
	if !c.IsLocked() {
		t.Fatal("expected IsLocked true")
	}

	if err := c.Bind("late", 1); !errors.Is(err, container.ErrConfigurationLocked) {
		t.Errorf("Bind: got %v, want ErrConfigurationLocked", err)
	}
	if err := c.RegisterClass(&Database{}, map[string]any{"DSN": "x"}); !errors.Is(err, container.ErrConfigurationLocked) {
		t.Errorf("RegisterClass: got %v, want ErrConfigurationLocked", err)
	}
	if err := c.BindInterfaceForEnv("qa", (*Mailer)(nil), &SMTPMailer{}); !errors.Is(err, container.ErrConfigurationLocked) {
		t.Errorf("BindInterfaceForEnv: got %v, want ErrConfigurationLocked", err)
	}
	if err := c.RegisterAttribute("x", container.AttributeResolverFunc(func(container.AttributeContext) (any, error) { return nil, nil })); !errors.Is(err, container.ErrConfigurationLocked) {
		t.Errorf("RegisterAttribute: got %v, want ErrConfigurationLocked", err)
	}
	if err := c.SetEnvironment("production"); !errors.Is(err, container.ErrConfigurationLocked) {
		t.Errorf("SetEnvironment: got %v, want ErrConfigurationLocked", err)
	}
	if err := c.When(&Database{}).Needs("DSN").Give("x"); !errors.Is(err, container.ErrConfigurationLocked) {
		t.Errorf("Give: got %v, want ErrConfigurationLocked", err)
	}
}

func TestLock_ResolutionStaysAvailable(t *testing.T) {
	c := newTestContainer(t)
	mustBind(t, c, "db", (*Database)(nil))
	c.Lock()

	if _, ok := mustGet(t, c, "db").(*Database); !ok {
		t.Error("Get should keep working after Lock")
	}
	svc, err := container.Construct[NewsletterService](c)
	if err != nil {
		t.Fatalf("construct after lock: %v", err)
	}
	if svc.Mail == nil {
		t.Error("expected Mail wired after lock")
	}

	// Runtime state is not configuration.
	c.SetScope("req-1")
	if c.Scope() != "req-1" {
		t.Error("SetScope should keep working after Lock")
	}
	c.Forget("db")
	c.Flush()
}

// ── Forget / Flush ───────────────────────────────────────────────────────────

func TestForget_DropsOneCacheLine(t *testing.T) {
	c := container.New()
	factory, n := counterFactory()
	mustBind(t, c, "svc", factory)
	mustBind(t, c, "other", func() string { return "other" })

	_ = mustGet(t, c, "svc")
	_ = mustGet(t, c, "other")
	c.Forget("svc")

	_ = mustGet(t, c, "svc")
	if *n != 2 {
		t.Errorf("factory ran %d times, want 2", *n)
	}
}

func TestFlush_DropsAllCacheLines(t *testing.T) {
	c := container.New()
	factory, n := counterFactory()
	mustBind(t, c, "svc", factory)

	_ = mustGet(t, c, "svc")
	c.Flush()
	_ = mustGet(t, c, "svc")

	if *n != 2 {
		t.Errorf("factory ran %d times, want 2", *n)
	}
	if !c.Has("svc") {
		t.Error("Flush must keep definitions registered")
	}
}

// ── Generics helpers ─────────────────────────────────────────────────────────

func TestResolve_Typed(t *testing.T) {
	c := container.New()
	mustBind(t, c, "db", (*Database)(nil))

	db, err := container.Resolve[*Database](c, "db")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if db.DSN != "file::memory:" {
		t.Errorf("DSN: got %q", db.DSN)
	}

	_, err = container.Resolve[string](c, "db")
	if !errors.Is(err, container.ErrUnresolvableDependency) {
		t.Errorf("type mismatch: got %v, want ErrUnresolvableDependency", err)
	}
}

func TestMustResolve_PanicsOnMissing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	container.MustResolve[int](container.New(), "ghost")
}

func TestConstruct_FreshInstancesSharedDeps(t *testing.T) {
	c := container.New()

	first, err := container.Construct[UserRepo](c)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	second, err := container.Construct[UserRepo](c)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	if first == second {
		t.Error("Construct must build a fresh instance per call")
	}
	if first.DB != second.DB {
		t.Error("the Database dependency is a singleton and must be shared")
	}
}

func TestTypeKey(t *testing.T) {
	key := container.TypeKey(&Database{})
	if !strings.HasSuffix(key, ".Database") {
		t.Errorf("got %q, want a package-qualified name", key)
	}
	if key != container.TypeKey(Database{}) {
		t.Error("pointer and value subjects must share a key")
	}
}
