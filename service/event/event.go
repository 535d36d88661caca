package event

import (
	"time"

	"github.com/viant/ruleflow/internal/clock"
)

// Context identifies what an event is about.
type Context struct {
	ProcessID string `json:"processID"`
	ServiceID string `json:"serviceID"`
	EventType string `json:"eventType"`
	Trigger   string `json:"trigger,omitempty"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: clock.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
