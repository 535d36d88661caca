package model

import "time"

// Resource is a finite shared resource tracked by the ledger.
type Resource struct {
	ID           string     `json:"id" yaml:"id"`
	Name         string     `json:"name" yaml:"name"`
	Capacity     int        `json:"capacity" yaml:"capacity"`
	CurrentUsage int        `json:"currentUsage" yaml:"currentUsage"`
	BusyUntil    *time.Time `json:"busyUntil,omitempty" yaml:"busyUntil,omitempty"`
	UpdatedAt    time.Time  `json:"updatedAt" yaml:"updatedAt"`
}

// Available returns the number of free units.
func (r *Resource) Available() int {
	if free := r.Capacity - r.CurrentUsage; free > 0 {
		return free
	}
	return 0
}

// Clone returns a copy.
func (r *Resource) Clone() *Resource {
	if r == nil {
		return nil
	}
	ret := *r
	if r.BusyUntil != nil {
		busy := *r.BusyUntil
		ret.BusyUntil = &busy
	}
	return &ret
}
