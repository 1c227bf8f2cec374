// Package stream externalizes a turn as an ordered NDJSON event stream:
// metadata -> content* -> done on success, metadata -> error on failure,
// with clarify and done as mutually exclusive terminals.
package stream

// #region imports
import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// #endregion

// #region events

// Event is one self-describing stream record.
type Event struct {
	Type                string         `json:"type"`
	Token               string         `json:"token,omitempty"`
	ClarifyingQuestions []string       `json:"clarifying_questions,omitempty"`
	Confidence          *float64       `json:"confidence,omitempty"`
	Citations           []string       `json:"citations,omitempty"`
	Message             string         `json:"message,omitempty"`
	Meta                map[string]any `json:"meta,omitempty"`
}

const (
	typeMetadata = "metadata"
	typeContent  = "content"
	typeClarify  = "clarify"
	typeDone     = "done"
	typeError    = "error"
)

// #endregion events

// #region emitter

type emitterState int

const (
	stateStart emitterState = iota
	stateOpen               // metadata written
	stateClosed             // terminal written
)

// Emitter writes one turn's events to w, enforcing the ordering contract.
type Emitter struct {
	w     io.Writer
	flush func()
	state emitterState
}

// NewEmitter creates an emitter over w. flush may be nil; when set it is
// called after every event (HTTP streaming).
func NewEmitter(w io.Writer, flush func()) *Emitter {
	return &Emitter{w: w, flush: flush}
}

func (e *Emitter) write(ev Event) error {
	line, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := e.w.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if e.flush != nil {
		e.flush()
	}
	return nil
}

// Metadata opens the stream. Must be the first event.
func (e *Emitter) Metadata(meta map[string]any) error {
	if e.state != stateStart {
		return fmt.Errorf("metadata must open the stream")
	}
	e.state = stateOpen
	return e.write(Event{Type: typeMetadata, Meta: meta})
}

// Token emits one content increment. Field name is `token`, exclusively.
func (e *Emitter) Token(token string) error {
	if e.state != stateOpen {
		return fmt.Errorf("content outside open stream")
	}
	return e.write(Event{Type: typeContent, Token: token})
}

// Clarify terminates the stream with clarifying questions.
func (e *Emitter) Clarify(questions []string) error {
	if e.state != stateOpen {
		return fmt.Errorf("clarify outside open stream")
	}
	e.state = stateClosed
	return e.write(Event{Type: typeClarify, ClarifyingQuestions: questions})
}

// Done terminates the stream with the calibrated confidence and citations.
func (e *Emitter) Done(confidence float64, citations []string) error {
	if e.state != stateOpen {
		return fmt.Errorf("done outside open stream")
	}
	e.state = stateClosed
	return e.write(Event{Type: typeDone, Confidence: &confidence, Citations: citations})
}

// Error terminates the stream with a top-level error. Only total pipeline
// failures reach here; everything else degrades into a routed action.
func (e *Emitter) Error(message string) error {
	if e.state == stateClosed {
		return fmt.Errorf("stream already terminated")
	}
	if e.state == stateStart {
		if err := e.write(Event{Type: typeMetadata}); err != nil {
			return err
		}
	}
	e.state = stateClosed
	return e.write(Event{Type: typeError, Message: message})
}

// Closed reports whether a terminal event has been written.
func (e *Emitter) Closed() bool {
	return e.state == stateClosed
}

// #endregion emitter

// #region conversation-locks

// Locks serializes turns per conversation id: no turn may emit content
// before a prior turn's terminal event on the same conversation.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLocks creates the per-conversation lock registry.
func NewLocks() *Locks {
	return &Locks{locks: make(map[string]*sync.Mutex)}
}

// Acquire blocks until the conversation is free and returns its release.
func (l *Locks) Acquire(conversationID string) func() {
	l.mu.Lock()
	m, ok := l.locks[conversationID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[conversationID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// #endregion conversation-locks
