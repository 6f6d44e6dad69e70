package gateway

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomyedwab/asyncsql/backend/sqlite"
	"github.com/tomyedwab/asyncsql/conf"
	"github.com/tomyedwab/asyncsql/data"
	"github.com/tomyedwab/asyncsql/sqlqueue"
)

// Entry is one named statement served by the gateway.
type Entry struct {
	Config    conf.StatementConfig
	Statement sqlqueue.Statement
}

// Params allocates a parameter row shaped after the entry's parameter columns.
func (e *Entry) Params() *data.Row {
	return data.NewRow(conf.Types(e.Config.Params), conf.Sizes(e.Config.Params))
}

// Results allocates a result container for the entry, or nil when the
// statement is executed for effect.
func (e *Entry) Results() *data.SetContainer[*data.Row] {
	if len(e.Config.Results) == 0 {
		return nil
	}
	types, sizes := conf.Types(e.Config.Results), conf.Sizes(e.Config.Results)
	return data.NewContainer(func() *data.Row { return data.NewRow(types, sizes) })
}

// Columns returns the configured result column names.
func (e *Entry) Columns() []string {
	cols := make([]string, len(e.Config.Results))
	for i, col := range e.Config.Results {
		cols[i] = col.Name
	}
	return cols
}

// Catalog maps statement names to prepared statements.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	order   []string
}

func NewCatalog() *Catalog {
	return &Catalog{entries: make(map[string]*Entry)}
}

// PrepareCatalog prepares every configured statement through reg.
func PrepareCatalog(ctx context.Context, reg *sqlite.Registry, stmts []conf.StatementConfig) (*Catalog, error) {
	c := NewCatalog()
	for _, sc := range stmts {
		stmt, err := reg.Prepare(ctx, sc.SQL)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare statement %s: %w", sc.Name, err)
		}
		if err := c.Add(sc, stmt); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add registers stmt under cfg.Name.
func (c *Catalog) Add(cfg conf.StatementConfig, stmt sqlqueue.Statement) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[cfg.Name]; exists {
		return fmt.Errorf("statement %s already registered", cfg.Name)
	}
	c.entries[cfg.Name] = &Entry{Config: cfg, Statement: stmt}
	c.order = append(c.order, cfg.Name)
	return nil
}

func (c *Catalog) Get(name string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// List returns the entries in registration order.
func (c *Catalog) List() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Entry, len(c.order))
	for i, name := range c.order {
		out[i] = c.entries[name]
	}
	return out
}
