package sqlqueue

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomyedwab/asyncsql/data"
)

// Query is one queued statement execution. It owns its buffers from the
// moment it is queued until its Callback returns.
type Query struct {
	ID         uuid.UUID
	Statement  Executor
	Parameters data.Set
	Results    data.Container
	InsertID   *uint64
	Rows       *uint64
	Callback   Callback
	Enqueued   time.Time
}
