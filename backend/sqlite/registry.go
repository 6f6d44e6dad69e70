package sqlite

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/tomyedwab/asyncsql/sqlqueue"
)

// Registry tracks the statements prepared on one database and connection so
// they can be looked up by id and closed together.
type Registry struct {
	db     *sqlx.DB
	conn   *sqlqueue.Connection
	logger *zap.Logger

	mu    sync.Mutex
	stmts map[uuid.UUID]*Statement
}

// NewRegistry creates an empty Registry. The provided db must be an active
// connection to an SQLite database.
func NewRegistry(db *sqlx.DB, conn *sqlqueue.Connection, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		db:     db,
		conn:   conn,
		logger: logger.With(zap.String("component", "Registry")),
		stmts:  make(map[uuid.UUID]*Statement),
	}
}

// Prepare compiles query and registers the resulting statement.
func (r *Registry) Prepare(ctx context.Context, query string) (*Statement, error) {
	stmt, err := Prepare(ctx, r.db, r.conn, query)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.stmts[stmt.ID()] = stmt
	r.mu.Unlock()
	r.logger.Debug("Prepared statement", zap.Stringer("stmt", stmt.ID()), zap.String("sql", query))
	return stmt, nil
}

// Get returns the statement registered under id.
func (r *Registry) Get(id uuid.UUID) (*Statement, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stmt, ok := r.stmts[id]
	return stmt, ok
}

// Len returns the number of registered statements.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stmts)
}

// Close closes and unregisters the statement with the given id. Closing an
// unknown id is not an error.
func (r *Registry) Close(id uuid.UUID) error {
	r.mu.Lock()
	stmt, ok := r.stmts[id]
	delete(r.stmts, id)
	r.mu.Unlock()
	if !ok {
		return nil
	}
	if err := stmt.Close(); err != nil {
		return fmt.Errorf("close statement %s: %w", id, err)
	}
	return nil
}

// CloseAll closes every registered statement and returns the first error.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	stmts := r.stmts
	r.stmts = make(map[uuid.UUID]*Statement)
	r.mu.Unlock()

	var firstErr error
	for id, stmt := range stmts {
		if err := stmt.Close(); err != nil {
			r.logger.Warn("Failed to close statement", zap.Stringer("stmt", id), zap.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("close statement %s: %w", id, err)
			}
		}
	}
	return firstErr
}
