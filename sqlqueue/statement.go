package sqlqueue

import (
	"context"

	"github.com/tomyedwab/asyncsql/data"
)

// Executor runs a statement synchronously on the calling goroutine. It binds
// params, runs the backend operation and populates results, insertID and rows.
// Any of the four may be nil, meaning the caller has no use for it. Backend
// failures are reported as *ExecutionError.
type Executor interface {
	Execute(ctx context.Context, params data.Set, results data.Container, insertID, rows *uint64) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, params data.Set, results data.Container, insertID, rows *uint64) error

func (f ExecutorFunc) Execute(ctx context.Context, params data.Set, results data.Container, insertID, rows *uint64) error {
	return f(ctx, params, results, insertID, rows)
}

// Statement is a prepared operation that can run synchronously through
// Execute or be queued on its Connection through Enqueue.
//
// Enqueue returns immediately and never runs the statement on the calling
// goroutine. Ownership of params, results, insertID and rows passes to the
// queued work item: the caller must not touch them until cb has been called.
type Statement interface {
	Executor
	Enqueue(params data.Set, results data.Container, insertID, rows *uint64, cb Callback)
}

// NewStatement binds exec to the worker pool of conn.
func NewStatement(exec Executor, conn *Connection) Statement {
	return &statement{Executor: exec, conn: conn}
}

type statement struct {
	Executor
	conn *Connection
}

func (s *statement) Enqueue(params data.Set, results data.Container, insertID, rows *uint64, cb Callback) {
	s.conn.Queue(&Query{
		Statement:  s.Executor,
		Parameters: params,
		Results:    results,
		InsertID:   insertID,
		Rows:       rows,
		Callback:   cb,
	})
}
