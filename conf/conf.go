// Package conf holds the configuration of an asyncsql server: the database,
// the worker pool and the catalog of named statements it serves.
package conf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tomyedwab/asyncsql/data"
	"github.com/tomyedwab/asyncsql/sqlqueue"
)

const (
	DefaultWorkers     = 4
	DefaultPolicy      = "drain"
	DefaultMessageType = 1
)

type Config struct {
	Database    string            `json:"database"`              // SQLite DSN or file path
	Schema      string            `json:"schema,omitempty"`      // SQL run once at startup
	SchemaFile  string            `json:"schema_file,omitempty"` // Alternative to Schema
	Workers     int               `json:"workers,omitempty"`
	Policy      string            `json:"policy,omitempty"` // "drain" or "drop"
	MessageType int               `json:"message_type,omitempty"`
	Statements  []StatementConfig `json:"statements"`
}

// StatementConfig describes one named statement. A statement without results
// is executed for effect and reports the insert id and affected row count.
type StatementConfig struct {
	Name    string         `json:"name"`
	SQL     string         `json:"sql"`
	Params  []ColumnConfig `json:"params,omitempty"`
	Results []ColumnConfig `json:"results,omitempty"`
}

type ColumnConfig struct {
	Name string         `json:"name,omitempty"`
	Type data.FieldType `json:"type"`
	Size int            `json:"size,omitempty"` // Required for char and binary kinds
}

func NewDefaultConfig() *Config {
	return &Config{
		Workers:     DefaultWorkers,
		Policy:      DefaultPolicy,
		MessageType: DefaultMessageType,
	}
}

// Load reads a JSON configuration file on top of the defaults and validates
// it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg := NewDefaultConfig()
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.SchemaFile != "" {
		schema, err := os.ReadFile(cfg.SchemaFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema %s: %w", cfg.SchemaFile, err)
		}
		cfg.Schema = string(schema)
		cfg.SchemaFile = ""
	}
	return cfg, nil
}

func (c *Config) Validate() error { //nolint:gocyclo
	if c.Database == "" {
		return NewInvalidConfigurationError("Database must be specified")
	}
	if c.Workers < 1 {
		return NewInvalidConfigurationError("Workers must be >= 1")
	}
	if _, err := c.PoolPolicy(); err != nil {
		return err
	}
	if c.Schema != "" && c.SchemaFile != "" {
		return NewInvalidConfigurationError("Schema and SchemaFile are mutually exclusive")
	}
	seen := make(map[string]bool, len(c.Statements))
	for i, st := range c.Statements {
		if st.Name == "" {
			return NewInvalidConfigurationError(fmt.Sprintf("Statement %d has no name", i))
		}
		if strings.ContainsAny(st.Name, "/ ") {
			return NewInvalidConfigurationError(fmt.Sprintf("Statement name %q must not contain '/' or spaces", st.Name))
		}
		if seen[st.Name] {
			return NewInvalidConfigurationError(fmt.Sprintf("Statement %s is defined more than once", st.Name))
		}
		seen[st.Name] = true
		if strings.TrimSpace(st.SQL) == "" {
			return NewInvalidConfigurationError(fmt.Sprintf("Statement %s has no SQL", st.Name))
		}
		if err := validateColumns(st.Name, "parameter", st.Params); err != nil {
			return err
		}
		if err := validateColumns(st.Name, "result", st.Results); err != nil {
			return err
		}
	}
	return nil
}

func validateColumns(stmt, kind string, cols []ColumnConfig) error {
	for i, col := range cols {
		if !col.Type.Valid() {
			return NewInvalidConfigurationError(fmt.Sprintf("Statement %s %s %d has an invalid type", stmt, kind, i))
		}
		if col.Type.IsFixed() && col.Size < 1 {
			return NewInvalidConfigurationError(fmt.Sprintf("Statement %s %s %d of type %s must have size >= 1", stmt, kind, i, col.Type))
		}
		if !col.Type.IsFixed() && col.Size != 0 {
			return NewInvalidConfigurationError(fmt.Sprintf("Statement %s %s %d of type %s cannot have a size", stmt, kind, i, col.Type))
		}
	}
	return nil
}

// PoolPolicy maps the Policy string onto a worker pool termination policy.
func (c *Config) PoolPolicy() (sqlqueue.Policy, error) {
	switch strings.ToLower(c.Policy) {
	case "", "drain":
		return sqlqueue.Drain, nil
	case "drop":
		return sqlqueue.Drop, nil
	}
	return 0, NewInvalidConfigurationError(fmt.Sprintf("Policy must be either drain or drop, got %q", c.Policy))
}

// Types returns the field kinds of cols in order.
func Types(cols []ColumnConfig) []data.FieldType {
	types := make([]data.FieldType, len(cols))
	for i, col := range cols {
		types[i] = col.Type
	}
	return types
}

// Sizes returns the fixed sizes of cols in order.
func Sizes(cols []ColumnConfig) []int {
	sizes := make([]int, len(cols))
	for i, col := range cols {
		sizes[i] = col.Size
	}
	return sizes
}
