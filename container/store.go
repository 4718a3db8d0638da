package container

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Store is the external cache boundary used to persist pre-resolved
// definitions across process runs. The container treats it as an opaque
// key/value store; implementations live in the cache package.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// definitionsKey is the store key the container persists its definition
// snapshot under.
const definitionsKey = "injector:definitions"

// storedDefinition is the persisted form of a literal definition. Classes
// and factories are never persisted — they are live code, re-registered by
// the application at bootstrap.
type storedDefinition struct {
	ID       string   `yaml:"id"`
	Value    any      `yaml:"value"`
	Lifetime string   `yaml:"lifetime"`
	Tags     []string `yaml:"tags,omitempty"`
}

// SaveDefinitions writes the container's literal definitions to the
// configured store.
func (c *Container) SaveDefinitions(ctx context.Context) error {
	if c.store == nil {
		return ErrNoStore
	}

	c.repo.mu.RLock()
	stored := make([]storedDefinition, 0, len(c.repo.definitions))
	for _, d := range c.repo.definitions {
		if d.kind != defValue {
			continue
		}
		stored = append(stored, storedDefinition{
			ID:       d.id,
			Value:    d.value,
			Lifetime: d.lifetime.String(),
			Tags:     d.tags,
		})
	}
	c.repo.mu.RUnlock()

	data, err := yaml.Marshal(stored)
	if err != nil {
		return fmt.Errorf("encode definitions: %w", err)
	}
	if err := c.store.Set(ctx, definitionsKey, data); err != nil {
		return fmt.Errorf("persist definitions: %w", err)
	}
	c.logger.Debug("saved definitions", "count", len(stored))
	return nil
}

// LoadDefinitions restores previously saved literal definitions. Loading
// is configuration, so it fails after Lock. With the lazy option on, the
// restored ids are left unresolved until first use, which they are anyway:
// literals carry no construction cost.
func (c *Container) LoadDefinitions(ctx context.Context) error {
	if c.store == nil {
		return ErrNoStore
	}

	data, ok, err := c.store.Get(ctx, definitionsKey)
	if err != nil {
		return fmt.Errorf("read definitions: %w", err)
	}
	if !ok {
		return nil
	}

	var stored []storedDefinition
	if err := yaml.Unmarshal(data, &stored); err != nil {
		return fmt.Errorf("decode definitions: %w", err)
	}

	for _, s := range stored {
		opts := []BindOption{WithTags(s.Tags...)}
		switch s.Lifetime {
		case Transient.String():
			opts = append(opts, AsTransient())
		case Scoped.String():
			opts = append(opts, AsScoped())
		}
		if err := c.Bind(s.ID, s.Value, opts...); err != nil {
			return fmt.Errorf("restore %q: %w", s.ID, err)
		}
	}
	c.logger.Debug("loaded definitions", "count", len(stored))
	return nil
}
