package event

import (
	"fmt"
	"time"
)

// EventTypeTransition marks a process state change notification.
const EventTypeTransition = "transition"

// ChannelPublic is used when a process has neither operator nor entity.
const ChannelPublic = "public"

// Notification tells interested parties that a process changed state.
// Summary is a short renderable text; raw context is never included.
type Notification struct {
	ProcessID string    `json:"processId"`
	Seq       int64     `json:"seq"`
	ServiceID string    `json:"serviceId"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Channel   string    `json:"channel"`
	Summary   string    `json:"summary"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Channel returns the audience of a process: its operator, else its entity,
// else the public channel.
func Channel(operatorID, entityID string) string {
	switch {
	case operatorID != "":
		return "operator:" + operatorID
	case entityID != "":
		return "entity:" + entityID
	default:
		return ChannelPublic
	}
}

// Summarize renders a one line transition summary.
func Summarize(serviceID string, seq int64, from, to string) string {
	return fmt.Sprintf("%v #%d: %v -> %v", serviceID, seq, from, to)
}
