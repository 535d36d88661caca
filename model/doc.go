// Package model contains the definitions the scheduler reads but never
// writes: services, their rules and triggering events, shared resources, the
// tagged record reference linking a process to a business record, and the
// append-only context snapshots.
//
// Definitions are typically loaded from a YAML bundle (see service/meta) or
// persisted by an external administration tool through the DAO contracts.
package model
