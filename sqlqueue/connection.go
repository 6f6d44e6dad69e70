package sqlqueue

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// State is the lifecycle state of a Connection's worker pool.
type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Policy decides what Terminate does with queries that no worker has claimed.
type Policy int

const (
	// Drain makes workers empty the queue before they exit, so every queued
	// callback fires before Terminate returns.
	Drain Policy = iota
	// Drop discards unclaimed queries. Their callbacks are never invoked.
	Drop
)

// Config holds configuration options for a Connection.
type Config struct {
	Name    string      // Optional, labels logs and metrics, defaults to "default"
	Type    int         // Tag copied into every completion Message
	Workers int         // Number of workers, must be positive
	Policy  Policy      // Optional, defaults to Drain
	Logger  *zap.Logger // Optional, defaults to a no-op logger
	// WorkerInit is an optional hook run by every worker before it reports
	// ready, for example to set up per-worker backend state. An error makes
	// Start fail.
	WorkerInit func(ctx context.Context, worker int) error
}

// Connection owns a FIFO queue of Query items and a fixed pool of worker
// goroutines that drain it. Items may be queued at any time; they are buffered
// while the pool is stopped and executed once it is started.
type Connection struct {
	name       string
	typeVal    int
	maxWorkers int
	policy     Policy
	workerInit func(ctx context.Context, worker int) error
	logger     *zap.Logger
	metrics    *connMetrics

	// queue
	queueMu sync.Mutex
	queue   []*Query
	wake    chan struct{}

	// lifecycle, Start and Terminate hold lifeMu for their whole duration
	lifeMu     sync.Mutex
	stop       chan struct{}
	drainOnEnd bool
	nextWorker int
	wg         sync.WaitGroup

	state atomic.Int32
	live  atomic.Int32
}

// NewConnection creates a stopped Connection.
func NewConnection(config Config) (*Connection, error) {
	if config.Workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", config.Workers)
	}
	if config.Policy != Drain && config.Policy != Drop {
		return nil, fmt.Errorf("unknown termination policy %d", config.Policy)
	}
	name := config.Name
	if name == "" {
		name = "default"
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Connection{
		name:       name,
		typeVal:    config.Type,
		maxWorkers: config.Workers,
		policy:     config.Policy,
		workerInit: config.WorkerInit,
		logger:     logger.With(zap.String("component", "Connection"), zap.String("connection", name)),
		metrics:    newConnMetrics(name),
		wake:       make(chan struct{}, 1),
	}, nil
}

// Name returns the configured connection name.
func (c *Connection) Name() string { return c.name }

// Type returns the tag carried by this connection's completion messages.
func (c *Connection) Type() int { return c.typeVal }

// State returns the current lifecycle state.
func (c *Connection) State() State { return State(c.state.Load()) }

// Workers returns the number of live workers.
func (c *Connection) Workers() int { return int(c.live.Load()) }

// Pending returns the number of queued items no worker has claimed yet.
func (c *Connection) Pending() int {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	return len(c.queue)
}

// Start brings the pool up to its configured size and blocks until every new
// worker has reported ready. Calling Start on a running pool does nothing. If
// a worker fails to initialize, the workers already started are stopped and
// the error is returned.
func (c *Connection) Start() error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	deficit := c.maxWorkers - c.Workers()
	if deficit <= 0 {
		return nil
	}
	c.setState(StateStarting)
	if c.stop == nil {
		c.stop = make(chan struct{})
		c.drainOnEnd = false
	}

	ready := make(chan error, deficit)
	for i := 0; i < deficit; i++ {
		id := c.nextWorker
		c.nextWorker++
		c.wg.Add(1)
		go c.worker(id, c.stop, ready)
	}

	var startErr error
	for i := 0; i < deficit; i++ {
		if err := <-ready; err != nil && startErr == nil {
			startErr = err
		}
	}
	if startErr != nil {
		c.logger.Error("Failed to start worker pool", zap.Error(startErr))
		c.shutdown(false)
		return errors.Wrap(startErr, "failed to start worker")
	}

	c.setState(StateRunning)
	c.logger.Info("Worker pool started", zap.Int("workers", c.Workers()), zap.Int("pending", c.Pending()))
	return nil
}

// Terminate stops every worker and blocks until all of them have exited. A
// worker in the middle of a statement finishes it first. Unclaimed items are
// handled according to the configured Policy. Terminate on a stopped pool does
// nothing; the pool can be started again afterwards.
func (c *Connection) Terminate() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.stop == nil {
		return
	}
	c.shutdown(c.policy == Drain)
	if c.policy == Drop {
		if n := c.discard(); n > 0 {
			c.logger.Warn("Dropped pending queries at termination", zap.Int("dropped", n))
		}
	}
	c.logger.Info("Worker pool terminated", zap.Int("pending", c.Pending()))
}

// shutdown signals all workers and waits for them. Must hold lifeMu.
func (c *Connection) shutdown(drain bool) {
	c.drainOnEnd = drain
	close(c.stop)
	c.setState(StateStopping)
	c.wg.Wait()
	c.stop = nil
	c.setState(StateStopped)
}

// Queue appends q to the tail of the queue and wakes one waiting worker.
func (c *Connection) Queue(q *Query) {
	if q == nil {
		return
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	q.Enqueued = time.Now()

	c.queueMu.Lock()
	c.queue = append(c.queue, q)
	c.metrics.pending.Inc()
	c.signal()
	c.queueMu.Unlock()

	c.metrics.queued.Inc()
}

// signal posts a wake-up token. The token channel holds at most one token, so
// a worker that finds the queue empty and then waits cannot miss an item queued
// in between.
func (c *Connection) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// pop removes the head of the queue, or returns nil when it is empty. When
// items remain it passes the wake-up on to another worker.
func (c *Connection) pop() *Query {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	if len(c.queue) == 0 {
		return nil
	}
	q := c.queue[0]
	c.queue[0] = nil
	c.queue = c.queue[1:]
	if len(c.queue) > 0 {
		c.signal()
	}
	c.metrics.pending.Dec()
	return q
}

func (c *Connection) discard() int {
	c.queueMu.Lock()
	defer c.queueMu.Unlock()
	n := len(c.queue)
	for i := range c.queue {
		c.queue[i] = nil
	}
	c.queue = nil
	c.metrics.dropped.Add(float64(n))
	c.metrics.pending.Sub(float64(n))
	return n
}

type workerKey struct{}

// WorkerID returns the id of the worker whose context ctx is. Executors use it
// to find per-worker state set up by Config.WorkerInit.
func WorkerID(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(workerKey{}).(int)
	return id, ok
}

func (c *Connection) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Connection) worker(id int, stop <-chan struct{}, ready chan<- error) {
	defer c.wg.Done()
	logger := c.logger.With(zap.Int("worker", id))
	ctx := context.WithValue(context.Background(), workerKey{}, id)

	if c.workerInit != nil {
		if err := c.workerInit(ctx, id); err != nil {
			ready <- errors.Wrapf(err, "worker %d", id)
			return
		}
	}
	c.live.Add(1)
	c.metrics.workers.Inc()
	defer func() {
		c.live.Add(-1)
		c.metrics.workers.Dec()
	}()
	ready <- nil
	logger.Debug("Worker ready")

	for {
		select {
		case <-stop:
			c.exitWorker(ctx, logger)
			return
		default:
		}

		q := c.pop()
		if q == nil {
			select {
			case <-c.wake:
			case <-stop:
				c.exitWorker(ctx, logger)
				return
			}
			continue
		}
		c.process(ctx, q, logger)
	}
}

// exitWorker runs after the stop signal. drainOnEnd was written before stop
// was closed.
func (c *Connection) exitWorker(ctx context.Context, logger *zap.Logger) {
	if c.drainOnEnd {
		for q := c.pop(); q != nil; q = c.pop() {
			c.process(ctx, q, logger)
		}
	}
	logger.Debug("Worker exiting")
}

func (c *Connection) process(ctx context.Context, q *Query, logger *zap.Logger) {
	started := time.Now()
	c.metrics.waitTime.Observe(started.Sub(q.Enqueued).Seconds())

	err := execute(ctx, q)
	c.metrics.execTime.Observe(time.Since(started).Seconds())

	msg := successMessage(c.typeVal)
	if err != nil {
		c.metrics.failed.Inc()
		logger.Debug("Query failed", zap.Stringer("query", q.ID), zap.Error(err))
		msg = failureMessage(c.typeVal, err)
	} else {
		c.metrics.succeeded.Inc()
	}
	if q.Callback == nil {
		return
	}
	if perr := deliver(q.Callback, msg); perr != nil {
		logger.Error("Query callback panicked", zap.Stringer("query", q.ID), zap.Error(perr))
	}
}

// execute runs the query's statement, converting a panic into an error so one
// bad item cannot take its worker down.
func execute(ctx context.Context, q *Query) (err error) {
	if q.Statement == nil {
		return errors.New("query has no statement")
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic executing statement: %v", r)
		}
	}()
	return q.Statement.Execute(ctx, q.Parameters, q.Results, q.InsertID, q.Rows)
}

func deliver(cb Callback, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("%v", r)
		}
	}()
	cb(msg)
	return nil
}
