package model

import "time"

// Snapshot is an append-only record of the context a process was evaluated with.
type Snapshot struct {
	ProcessID string                 `json:"processId"`
	Version   int                    `json:"version"`
	Trigger   string                 `json:"trigger"`
	Context   map[string]interface{} `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Clone returns a copy with a cloned context map.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	ret := *s
	ret.Context = CloneMap(s.Context)
	return &ret
}
