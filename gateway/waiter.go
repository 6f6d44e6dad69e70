package gateway

import (
	"context"

	"github.com/tomyedwab/asyncsql/sqlqueue"
)

// Waiter lets a goroutine block until an enqueued statement completes. The
// callback never blocks the worker, even if nobody waits any more.
type Waiter struct {
	done chan sqlqueue.Message
}

func NewWaiter() *Waiter {
	return &Waiter{done: make(chan sqlqueue.Message, 1)}
}

// Callback returns the completion callback to pass to Enqueue. It must be used
// for a single statement.
func (w *Waiter) Callback() sqlqueue.Callback {
	return func(msg sqlqueue.Message) {
		select {
		case w.done <- msg:
		default:
		}
	}
}

// Wait returns the completion message, or ctx's error if it ends first. After
// an error the enqueued buffers still belong to the worker.
func (w *Waiter) Wait(ctx context.Context) (sqlqueue.Message, error) {
	select {
	case msg := <-w.done:
		return msg, nil
	case <-ctx.Done():
		return sqlqueue.Message{}, ctx.Err()
	}
}
