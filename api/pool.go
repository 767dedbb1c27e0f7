package api

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rajan-marasini/task-kanban/domain"
)

// DispatcherConfig sizes the change feed worker pool.
type DispatcherConfig struct {
	Workers        int
	Buffer         int
	Timeout        time.Duration
	HandoffTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.Buffer < 0 {
		c.Buffer = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Dispatcher publishes change events off the request path. Events are handed
// to a bounded worker pool; when the buffer stays full past the handoff
// timeout the event is published inline instead. Failures are logged and
// never retried.
type Dispatcher struct {
	pub  ChangePublisher
	log  *log.Logger
	cfg  DispatcherConfig
	jobs chan domain.ChangeEvent
	wg   sync.WaitGroup
	once sync.Once
}

// NewDispatcher starts the worker pool.
func NewDispatcher(pub ChangePublisher, logger *log.Logger, cfg DispatcherConfig) *Dispatcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	cfg = cfg.withDefaults()
	d := &Dispatcher{
		pub:  pub,
		log:  logger,
		cfg:  cfg,
		jobs: make(chan domain.ChangeEvent, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	logger.Infof("change dispatcher started, workers: %d, buffer: %d, timeout: %v, handoff: %v", cfg.Workers, cfg.Buffer, cfg.Timeout, cfg.HandoffTimeout)
	return d
}

func (d *Dispatcher) worker(id int) {
	defer d.wg.Done()
	for ev := range d.jobs {
		d.publish(ev, id)
	}
}

func (d *Dispatcher) publish(ev domain.ChangeEvent, worker int) {
	ctx, cancel := context.WithTimeout(context.Background(), d.cfg.Timeout)
	defer cancel()
	if err := d.pub.Publish(ctx, ev); err != nil {
		d.log.WithFields(log.Fields{
			"type":   ev.Type,
			"task":   ev.TaskID,
			"worker": worker,
		}).WithError(err).Error("publish change event failed")
	}
}

// Dispatch queues ev for publishing. A nil Dispatcher drops the event.
func (d *Dispatcher) Dispatch(ev domain.ChangeEvent) {
	if d == nil {
		return
	}
	if d.tryEnqueue(ev) {
		return
	}
	d.log.WithField("task", ev.TaskID).Warn("change buffer saturated; publishing inline")
	d.publish(ev, -1)
}

// Close stops accepting events and waits for queued ones to be published.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() { close(d.jobs) })
	d.wg.Wait()
}

func (d *Dispatcher) tryEnqueue(ev domain.ChangeEvent) bool {
	if ok, closed := trySendNonBlocking(d.jobs, ev); closed {
		return false
	} else if ok {
		return true
	}
	if d.cfg.HandoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(d.cfg.HandoffTimeout)
	defer timer.Stop()
	ok, _ := sendWithTimer(d.jobs, ev, timer.C)
	return ok
}

// The send helpers report closed when the channel was closed by Close.
func trySendNonBlocking(ch chan domain.ChangeEvent, ev domain.ChangeEvent) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- ev:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan domain.ChangeEvent, ev domain.ChangeEvent, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- ev:
		return true, false
	case <-timer:
		return false, false
	}
}
