// Package idgen wraps the identifier generators so that they can be stubbed
// in tests. Process identities are UUIDs; process sequence numbers come from a
// snowflake node so that they increase monotonically within a node.
// It lives under `internal` because callers should treat identifiers as
// opaque values.
package idgen
