// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// EventKind identifies an Event.
type EventKind int

const (
	EventConnect EventKind = iota + 1
	EventData
	EventClose
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventData:
		return "data"
	case EventClose:
		return "close"
	case EventError:
		return "error"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is delivered to subscribers. Data is set for EventData and Err
// for EventError.
type Event struct {
	Kind EventKind
	User string
	Data []byte
	Err  error
}

// dispatcher delivers events to subscribers in emission order from its
// own goroutine.
type dispatcher struct {
	mu          sync.Mutex
	queue       []Event
	subscribers map[uint64]func(Event)
	nextID      uint64
	wake        chan struct{}
	closed      bool
	done        chan struct{}
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		subscribers: make(map[uint64]func(Event)),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) subscribe(handler func(Event)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	id := d.nextID
	d.subscribers[id] = handler
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.subscribers, id)
			d.mu.Unlock()
		})
	}
}

func (d *dispatcher) emit(event Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, event)
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// close delivers what is queued, then stops the goroutine.
func (d *dispatcher) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
	<-d.done
}

func (d *dispatcher) run() {
	defer close(d.done)
	for range d.wake {
		for {
			d.mu.Lock()
			if len(d.queue) == 0 {
				closed := d.closed
				d.mu.Unlock()
				if closed {
					return
				}
				break
			}
			event := d.queue[0]
			d.queue = d.queue[1:]
			handlers := make([]func(Event), 0, len(d.subscribers))
			for _, id := range slices.Sorted(maps.Keys(d.subscribers)) {
				handlers = append(handlers, d.subscribers[id])
			}
			d.mu.Unlock()

			for _, handler := range handlers {
				handler(event)
			}
		}
	}
}
