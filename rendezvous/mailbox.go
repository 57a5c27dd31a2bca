// Copyright 2026 The Ion Authors
// SPDX-License-Identifier: Apache-2.0

package rendezvous

import "sync"

// mailbox runs posted work items one at a time, in posting order, on a
// single goroutine. Posting never blocks; the queue is unbounded.
type mailbox struct {
	mu     sync.Mutex
	work   []func()
	wake   chan struct{}
	closed bool
	done   chan struct{}
}

func newMailbox() *mailbox {
	m := &mailbox{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go m.run()
	return m
}

// post queues fn. It returns false, dropping fn, once the mailbox is
// closed.
func (m *mailbox) post(fn func()) bool {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false
	}
	m.work = append(m.work, fn)
	m.mu.Unlock()
	m.signal()
	return true
}

// call runs fn on the mailbox goroutine and waits for it. It must not
// be called from a work item.
func (m *mailbox) call(fn func()) error {
	finished := make(chan struct{})
	if !m.post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	<-finished
	return nil
}

// close runs what is already queued, then stops the goroutine.
func (m *mailbox) close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		<-m.done
		return
	}
	m.closed = true
	m.mu.Unlock()
	m.signal()
	<-m.done
}

func (m *mailbox) signal() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *mailbox) run() {
	defer close(m.done)
	for range m.wake {
		for {
			m.mu.Lock()
			if len(m.work) == 0 {
				closed := m.closed
				m.mu.Unlock()
				if closed {
					return
				}
				break
			}
			fn := m.work[0]
			m.work[0] = nil
			m.work = m.work[1:]
			m.mu.Unlock()

			fn()
		}
	}
}
