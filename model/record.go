package model

import "fmt"

// RecordKind enumerates business record types a process can link to.
type RecordKind string

const (
	RecordKindForm     RecordKind = "form"
	RecordKindCustomer RecordKind = "customer"
	RecordKindContract RecordKind = "contract"
	RecordKindDocument RecordKind = "document"
)

// Valid reports whether k is a known record kind.
func (k RecordKind) Valid() bool {
	switch k {
	case RecordKindForm, RecordKindCustomer, RecordKindContract, RecordKindDocument:
		return true
	}
	return false
}

// RecordRef is a typed reference to a business record owned by an external
// collaborator.
type RecordRef struct {
	Kind RecordKind `json:"kind" yaml:"kind"`
	ID   string     `json:"id" yaml:"id"`
}

// Validate checks the reference.
func (r *RecordRef) Validate() error {
	if r == nil {
		return nil
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("unsupported record kind: %q", r.Kind)
	}
	if r.ID == "" {
		return fmt.Errorf("record %v: id was empty", r.Kind)
	}
	return nil
}

func (r *RecordRef) String() string {
	if r == nil {
		return ""
	}
	return string(r.Kind) + ":" + r.ID
}
