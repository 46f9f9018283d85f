// SPDX-License-Identifier: AGPL-3.0-only

// Package stream carries progress events from one engine run to a single
// consumer, in emission order, with a guaranteed end-of-stream sentinel.
package stream

import (
	"sync"

	"github.com/sriram687/adya-mcp-hackathon/internal/model"
)

// Emitter is a single-producer, single-consumer ordered event channel.
// Event, Result, Fail and End must be called from the producer goroutine;
// Abandon may be called from the consumer side at any time.
type Emitter struct {
	ch        chan *model.StreamEvent
	abandoned chan struct{}
	abandonMu sync.Mutex
	endOnce   sync.Once
}

// NewEmitter creates an emitter with the given channel buffer.
func NewEmitter(buffer int) *Emitter {
	if buffer <= 0 {
		buffer = 1
	}
	return &Emitter{
		ch:        make(chan *model.StreamEvent, buffer),
		abandoned: make(chan struct{}),
	}
}

// Events is the consumer side. It is closed after the COMPLETED sentinel.
func (e *Emitter) Events() <-chan *model.StreamEvent {
	return e.ch
}

// Event queues one event. Events sent after the consumer abandoned the
// stream are dropped.
func (e *Emitter) Event(ev *model.StreamEvent) {
	select {
	case e.ch <- ev:
	case <-e.abandoned:
	}
}

// Start emits the stream preamble.
func (e *Emitter) Start() {
	e.Event(&model.StreamEvent{
		Status:          true,
		StreamingStatus: model.StreamStarted,
		Action:          model.ActionNone,
	})
}

// Result emits the terminal payload of a successful run.
func (e *Emitter) Result(resp *model.ExecutionResponse) {
	e.Event(&model.StreamEvent{
		Data:            resp.Data,
		Error:           resp.Error,
		Status:          resp.Status,
		StreamingStatus: model.StreamInProgress,
		Action:          model.ActionAIResponse,
	})
}

// Fail emits a terminal error event. data may be nil (validation failures)
// or the partial run data accumulated before the failure.
func (e *Emitter) Fail(data any, errMsg string) {
	e.Event(&model.StreamEvent{
		Data:            data,
		Error:           model.ErrString(errMsg),
		Status:          false,
		StreamingStatus: model.StreamError,
		Action:          model.ActionError,
	})
}

// End emits the COMPLETED sentinel and closes the channel. Safe to call more
// than once; only the first call has effect.
func (e *Emitter) End() {
	e.endOnce.Do(func() {
		e.Event(&model.StreamEvent{
			Status:          true,
			StreamingStatus: model.StreamCompleted,
			Action:          model.ActionNone,
		})
		close(e.ch)
	})
}

// Abandon marks the consumer gone so pending and future producer sends do
// not block. Idempotent.
func (e *Emitter) Abandon() {
	e.abandonMu.Lock()
	defer e.abandonMu.Unlock()
	select {
	case <-e.abandoned:
	default:
		close(e.abandoned)
	}
}
