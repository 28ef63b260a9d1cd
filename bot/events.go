// Package bot turns inbound chat-platform events into course, intake and
// appeal operations. Handlers are registered per event kind on a Dispatcher;
// all collaborators are injected, nothing is read from globals.
package bot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/aktamov/davomat/core"
)

type EventKind string

const (
	EventMedia  EventKind = "media"
	EventButton EventKind = "button"
	EventText   EventKind = "text"
)

// Event is one normalized inbound update from the chat platform.
type Event struct {
	Kind EventKind

	ChatID     int64
	ThreadID   int64
	MessageID  int64
	SenderName string

	Text        string // text events
	Data        string // button events: opaque callback payload
	MediaRef    string // media events: platform file reference
	ContentType string
}

type HandlerFunc func(Event) error

// Dispatcher routes events to the handler registered for their kind. A
// handler panic or error is contained here: logged, never propagated to the
// transport.
type Dispatcher struct {
	handlers map[EventKind]HandlerFunc
	logger   core.Logger
}

func NewDispatcher(logger core.Logger) *Dispatcher {
	return &Dispatcher{
		handlers: make(map[EventKind]HandlerFunc),
		logger:   logger,
	}
}

func (d *Dispatcher) Register(kind EventKind, fn HandlerFunc) {
	d.handlers[kind] = fn
}

func (d *Dispatcher) Dispatch(e Event) {
	fn, ok := d.handlers[e.Kind]
	if !ok {
		d.logger.Debug(fmt.Sprintf("no handler for %s event, dropped", e.Kind))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(fmt.Sprintf("handler panic on %s event from chat %d: %v", e.Kind, e.ChatID, r))
		}
	}()

	if err := fn(e); err != nil {
		if errors.Is(err, core.ErrAlreadyHandled) {
			d.logger.Debug(fmt.Sprintf("%s event from chat %d already handled", e.Kind, e.ChatID))
			return
		}
		d.logger.Error(fmt.Sprintf("handling %s event from chat %d", e.Kind, e.ChatID), err)
	}
}

// button payloads are "<action>:<id>"
func packData(action string, id int) string {
	return action + ":" + strconv.Itoa(id)
}

func unpackData(data string) (string, int) {
	action, raw, ok := strings.Cut(data, ":")
	if !ok {
		return data, 0
	}
	id, err := strconv.Atoi(raw)
	if err != nil {
		return data, 0
	}
	return action, id
}
