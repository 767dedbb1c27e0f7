package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rajan-marasini/task-kanban/domain"
)

const defaultPersistTimeout = 15 * time.Second

// State is the drag lifecycle state of a Controller.
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	if s == Dragging {
		return "dragging"
	}
	return "idle"
}

// TargetKind tags the element under the pointer.
type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetTask
	TargetColumn
)

// Target identifies whatever is under the pointer during a drag.
type Target struct {
	ID   string
	Kind TargetKind
}

// OverTask targets a task card.
func OverTask(id string) Target { return Target{ID: id, Kind: TargetTask} }

// OverColumn targets a column background.
func OverColumn(id string) Target { return Target{ID: id, Kind: TargetColumn} }

// Present reports whether the pointer is over a drop target at all.
func (t Target) Present() bool { return t.ID != "" && t.Kind != TargetNone }

// DropResult is the outcome of the single write issued for a drop.
type DropResult struct {
	Placement Placement
	Task      domain.Task
	// Err is the persistence failure, if any. The optimistic board is left
	// in place and the write is not retried.
	Err error
	// ResyncErr is set when the write succeeded but the refetch did not.
	ResyncErr error
}

// Drop tracks the asynchronous write issued by DragEnd.
type Drop struct {
	Placement Placement

	done   chan struct{}
	result DropResult
}

func newDrop(p Placement) *Drop {
	return &Drop{Placement: p, done: make(chan struct{})}
}

func (d *Drop) finish(r DropResult) {
	d.result = r
	close(d.done)
}

// Done is closed once the write and the follow-up refetch have finished.
func (d *Drop) Done() <-chan struct{} { return d.done }

// Result returns the outcome. It is only meaningful after Done is closed.
func (d *Drop) Result() DropResult {
	select {
	case <-d.done:
		return d.result
	default:
		return DropResult{Placement: d.Placement}
	}
}

// Wait blocks until the drop resolves or ctx ends.
func (d *Drop) Wait(ctx context.Context) (DropResult, error) {
	select {
	case <-d.done:
		return d.result, nil
	case <-ctx.Done():
		return DropResult{Placement: d.Placement}, ctx.Err()
	}
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for persistence outcomes.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithPersistTimeout bounds every write and refetch issued after a drop.
func WithPersistTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Controller turns drag lifecycle events into optimistic Store mutations and
// one persistence request per drop. All Store access goes through mu; drag
// events are applied synchronously while writes run on their own goroutine.
type Controller struct {
	mu       sync.Mutex
	store    *Store
	gateway  Gateway
	logger   *log.Logger
	timeout  time.Duration
	state    State
	active   *domain.Task
	lastOver Target

	// fetchGen is stamped on every refetch when it starts; appliedGen is the
	// newest refetch written into the store. Older results are discarded.
	fetchGen   uint64
	appliedGen uint64
	// deferred holds a refetch that landed mid-drag. It is applied when the
	// gesture ends so the hover arrangement is not replaced under the pointer.
	deferred *boardFetch

	inflight sync.WaitGroup
}

type boardFetch struct {
	columns []domain.Column
	tasks   []domain.Task
}

// NewController builds a controller over an empty board. Call Load to fetch
// the initial state.
func NewController(gw Gateway, opts ...Option) *Controller {
	c := &Controller{
		store:   NewStore(),
		gateway: gw,
		logger:  log.StandardLogger(),
		timeout: defaultPersistTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load populates the board from the store.
func (c *Controller) Load(ctx context.Context) error {
	return c.Resync(ctx)
}

// Resync refetches the full board and replaces the local state with it.
// A result that arrives while a drag is in progress is held until DragEnd.
func (c *Controller) Resync(ctx context.Context) error {
	c.mu.Lock()
	c.fetchGen++
	gen := c.fetchGen
	c.mu.Unlock()

	columns, tasks, err := c.gateway.FetchBoard(ctx)
	if err != nil {
		return fmt.Errorf("fetch board: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen < c.appliedGen {
		c.logger.WithFields(log.Fields{"generation": gen, "applied": c.appliedGen}).Debug("discarding stale board refetch")
		return nil
	}
	c.appliedGen = gen
	if c.state == Dragging {
		c.deferred = &boardFetch{columns: columns, tasks: tasks}
		c.logger.WithField("generation", gen).Debug("refetch deferred until the drag ends")
		return nil
	}
	c.deferred = nil
	c.applyFetch(columns, tasks)
	return nil
}

func (c *Controller) applyFetch(columns []domain.Column, tasks []domain.Task) {
	if skipped := c.store.Resync(columns, tasks); skipped > 0 {
		c.logger.WithField("skipped", skipped).Warn("tasks without a known column were left out of the board")
	}
}

// flushDeferred applies a refetch held back during a drag. When keepID is
// set, that task is put back at the column and index the gesture left it in.
// Callers hold mu.
func (c *Controller) flushDeferred(keepID string) {
	if c.deferred == nil {
		return
	}
	f := c.deferred
	c.deferred = nil

	col, idx, kept := "", 0, false
	if keepID != "" {
		col, idx, kept = c.store.Locate(keepID)
	}
	c.applyFetch(f.columns, f.tasks)
	if !kept {
		return
	}
	cur, _, ok := c.store.Locate(keepID)
	if !ok {
		return
	}
	if cur != col {
		c.store.MoveAcrossColumns(keepID, col, idx)
		return
	}
	c.store.MoveWithinColumn(keepID, idx)
}

// DragStart records the dragged task and enters Dragging. Unknown ids are
// ignored.
func (c *Controller) DragStart(activeID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.store.Task(activeID)
	if !ok {
		return false
	}
	c.active = &t
	c.state = Dragging
	c.lastOver = Target{}
	return true
}

// DragOver applies the provisional arrangement for the element under the
// pointer. It ignores an absent target, a self target, events outside a
// drag, and a repeat of the target it last applied. It reports whether the
// board changed.
func (c *Controller) DragOver(activeID string, over Target) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !over.Present() || over.ID == activeID {
		return false
	}
	if c.state != Dragging || c.active == nil || c.active.ID != activeID {
		return false
	}
	if over == c.lastOver {
		return false
	}
	c.lastOver = over

	col, idx, ok := c.store.Locate(activeID)
	if !ok {
		return false
	}

	switch over.Kind {
	case TargetTask:
		overCol, overIdx, ok := c.store.Locate(over.ID)
		if !ok {
			return false
		}
		moved := false
		if overCol != col {
			moved = c.store.MoveAcrossColumns(activeID, overCol, idx)
		}
		// The dragged task takes the index the hovered task had when the
		// pointer reached it.
		return c.store.MoveWithinColumn(activeID, overIdx) || moved
	case TargetColumn:
		if over.ID == col {
			return false
		}
		return c.store.MoveAcrossColumns(activeID, over.ID, idx)
	}
	return false
}

// DragEnd leaves the drag and, when the pointer was released over a target,
// persists the dragged task's current column and index. The controller is
// Idle afterwards even for an end event that does not match the current
// drag, but only the dragged task is ever persisted. It returns nil when
// nothing is sent.
func (c *Controller) DragEnd(activeID string, over Target) *Drop {
	c.mu.Lock()
	matches := c.state == Dragging && c.active != nil && c.active.ID == activeID
	c.active = nil
	c.state = Idle
	c.lastOver = Target{}

	if !matches {
		c.flushDeferred("")
		c.mu.Unlock()
		c.logger.WithField("task", activeID).Debug("drag end for a task that is not being dragged; nothing persisted")
		return nil
	}
	if !over.Present() {
		c.flushDeferred(activeID)
		c.mu.Unlock()
		c.logger.WithField("task", activeID).Debug("drag released outside any target; nothing persisted")
		return nil
	}
	placement, ok := Allocate(c.store, activeID)
	c.flushDeferred(activeID)
	if !ok {
		c.mu.Unlock()
		return nil
	}
	drop := newDrop(placement)
	c.inflight.Add(1)
	c.mu.Unlock()

	go c.persist(drop)
	return drop
}

func (c *Controller) persist(drop *Drop) {
	defer c.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	p := drop.Placement
	fields := log.Fields{"task": p.TaskID, "column": p.ColumnID, "position": p.Position}
	task, err := c.gateway.PatchTask(ctx, p.TaskID, p.Patch())
	if err != nil {
		entry := c.logger.WithFields(fields).WithError(err)
		if errors.Is(err, domain.ErrNotFound) {
			entry.Warn("dropped task no longer exists; board kept until next refresh")
		} else {
			entry.Error("failed to persist drop")
		}
		drop.finish(DropResult{Placement: p, Err: err})
		return
	}

	c.logger.WithFields(fields).Debug("drop persisted")
	res := DropResult{Placement: p, Task: task}
	if err := c.Resync(ctx); err != nil {
		c.logger.WithFields(fields).WithError(err).Warn("refetch after drop failed")
		res.ResyncErr = err
	}
	drop.finish(res)
}

// Wait blocks until every in-flight drop has resolved.
func (c *Controller) Wait() {
	c.inflight.Wait()
}

// CreateTask validates and creates a task, appending it to its column when
// no position is given, then refetches the board.
func (c *Controller) CreateTask(ctx context.Context, n domain.NewTask) (domain.Task, error) {
	if err := n.Validate(); err != nil {
		return domain.Task{}, err
	}
	c.mu.Lock()
	if !c.store.HasColumn(n.ColumnID) {
		c.mu.Unlock()
		return domain.Task{}, &domain.ValidationError{Field: "columnId", Reason: "unknown column " + n.ColumnID}
	}
	if n.Position == nil {
		pos := AppendPosition(c.store, n.ColumnID)
		n.Position = &pos
	}
	c.mu.Unlock()

	task, err := c.gateway.CreateTask(ctx, n)
	if err != nil {
		return domain.Task{}, err
	}
	c.resyncAfterWrite(ctx, task.ID)
	return task, nil
}

// UpdateTask sends the fields of patch that differ from the local copy of
// the task. An empty remainder sends nothing.
func (c *Controller) UpdateTask(ctx context.Context, id string, patch domain.TaskPatch) (domain.Task, error) {
	if err := patch.Validate(); err != nil {
		return domain.Task{}, err
	}
	c.mu.Lock()
	cur, ok := c.store.Task(id)
	if ok && patch.ColumnID != nil && !c.store.HasColumn(*patch.ColumnID) {
		c.mu.Unlock()
		return domain.Task{}, &domain.ValidationError{Field: "columnId", Reason: "unknown column " + *patch.ColumnID}
	}
	c.mu.Unlock()
	if !ok {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}

	patch = patch.Prune(cur)
	if patch.Empty() {
		return cur, nil
	}
	task, err := c.gateway.PatchTask(ctx, id, patch)
	if err != nil {
		return domain.Task{}, err
	}
	c.resyncAfterWrite(ctx, id)
	return task, nil
}

// DeleteTask removes the task from the store and refetches the board.
func (c *Controller) DeleteTask(ctx context.Context, id string) error {
	if err := c.gateway.DeleteTask(ctx, id); err != nil {
		return err
	}
	c.resyncAfterWrite(ctx, id)
	return nil
}

func (c *Controller) resyncAfterWrite(ctx context.Context, taskID string) {
	if err := c.Resync(ctx); err != nil {
		c.logger.WithField("task", taskID).WithError(err).Warn("refetch after write failed")
	}
}

// State returns the current drag state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Active returns the task being dragged, as it was when the drag started.
func (c *Controller) Active() (domain.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return domain.Task{}, false
	}
	return *c.active, true
}

// Snapshot returns the tasks in render order.
func (c *Controller) Snapshot() []domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Snapshot()
}

// Columns returns the columns in position order.
func (c *Controller) Columns() []domain.Column {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Columns()
}

// Lane returns the ordered tasks of one column.
func (c *Controller) Lane(columnID string) []domain.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Lane(columnID)
}

// Task looks a task up in the local board.
func (c *Controller) Task(id string) (domain.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Task(id)
}

// Locate returns the column and lane index of a task in the local board.
func (c *Controller) Locate(id string) (string, int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Locate(id)
}
