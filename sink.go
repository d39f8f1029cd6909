package main

import (
	"context"
	"log"
	"sync"

	"touchtone/command"
	"touchtone/dtmf"
	"touchtone/publish"
)

// dispatcher hands keys from the capture loop to consumers that may block
// (HTTP commands, MQTT). Send never blocks; keys that do not fit in the
// queue are dropped.
type dispatcher struct {
	keys   chan dtmf.Keypress
	handle func(context.Context, dtmf.Keypress)
	wg     sync.WaitGroup

	mu      sync.Mutex
	dropped int
}

func newDispatcher(size int, handle func(context.Context, dtmf.Keypress)) *dispatcher {
	return &dispatcher{
		keys:   make(chan dtmf.Keypress, size),
		handle: handle,
	}
}

// Start drains the queue until Close.
func (d *dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for k := range d.keys {
			d.handle(ctx, k)
		}
	}()
}

func (d *dispatcher) Send(k dtmf.Keypress) {
	select {
	case d.keys <- k:
	default:
		d.mu.Lock()
		d.dropped++
		n := d.dropped
		d.mu.Unlock()
		log.Printf("dispatch: queue full, dropped key %c (%d total)", k.Key, n)
	}
}

// Dropped returns the number of keys lost to a full queue.
func (d *dispatcher) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

// Close waits for the queued keys to be handled.
func (d *dispatcher) Close() {
	close(d.keys)
	d.wg.Wait()
}

// consumer is the slow side of the pipeline: it publishes keys and feeds
// the command decoder. Both are optional.
type consumer struct {
	publisher publish.Publisher
	commands  *command.Decoder

	// called on the dispatcher goroutine
	onPending func(pending string)
	onResult  func(r command.Result)
}

func (c *consumer) handle(ctx context.Context, k dtmf.Keypress) {
	if c.publisher != nil {
		if err := c.publisher.PublishKeypress(k); err != nil {
			log.Printf("publish error: %v", err)
		}
	}

	if c.commands == nil {
		return
	}

	r, done := c.commands.Key(ctx, k.Key)
	if c.onPending != nil {
		c.onPending(c.commands.Pending())
	}
	if !done {
		return
	}

	log.Printf("command: %v", r)

	if c.onResult != nil {
		c.onResult(*r)
	}

	if c.publisher != nil {
		if err := c.publisher.PublishCommand(*r); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
}
