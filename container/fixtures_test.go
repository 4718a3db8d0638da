package container_test

import (
	"fmt"
	"testing"

	"github.com/km-arc/go-injector/container"
)

// ── Shared fixtures ──────────────────────────────────────────────────────────

// Database is the leaf of most test graphs: no dependencies, one defaulted
// scalar.
type Database struct {
	DSN string `default:"file::memory:"`
}

func (d *Database) Ping() string { return "pong:" + d.DSN }

// UserRepo depends on Database by pointer.
type UserRepo struct {
	DB *Database
}

// Mailer is the interface switched by environment bindings.
type Mailer interface {
	Send(to string) string
}

type SMTPMailer struct {
	Host string `default:"smtp.local"`
}

func (m *SMTPMailer) Send(to string) string { return "smtp:" + to + "@" + m.Host }

type SendgridMailer struct {
	Key string `default:"sg-test"`
}

func (m *SendgridMailer) Send(to string) string { return "sendgrid:" + to }

// NewsletterService exercises a mixed graph: a concrete dependency and an
// interface dependency.
type NewsletterService struct {
	Repo *UserRepo
	Mail Mailer
}

func (s *NewsletterService) Deliver(to string) string { return s.Mail.Send(to) }

// chicken / egg form the canonical dependency cycle.
type chicken struct {
	Egg *egg
}

type egg struct {
	Chicken *chicken
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// newTestContainer builds a container with the Mailer bindings installed
// for the "testing" and "production" environments, current env "testing".
func newTestContainer(t *testing.T, opts ...container.Option) *container.Container {
	t.Helper()
	opts = append([]container.Option{container.WithEnvironment("testing")}, opts...)
	c := container.New(opts...)
	mustBindMailers(t, c)
	return c
}

func mustBindMailers(t *testing.T, c *container.Container) {
	t.Helper()
	if err := c.BindInterfaceForEnv("testing", (*Mailer)(nil), &SMTPMailer{}); err != nil {
		t.Fatalf("bind testing mailer: %v", err)
	}
	if err := c.BindInterfaceForEnv("production", (*Mailer)(nil), &SendgridMailer{}); err != nil {
		t.Fatalf("bind production mailer: %v", err)
	}
}

func mustBind(t *testing.T, c *container.Container, id string, def any, opts ...container.BindOption) {
	t.Helper()
	if err := c.Bind(id, def, opts...); err != nil {
		t.Fatalf("bind %q: %v", id, err)
	}
}

func mustGet(t *testing.T, c *container.Container, id string) any {
	t.Helper()
	v, err := c.Get(id)
	if err != nil {
		t.Fatalf("get %q: %v", id, err)
	}
	return v
}

// counterFactory returns a factory that counts its invocations.
func counterFactory() (func() string, *int) {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("built-%d", n)
	}, &n
}
