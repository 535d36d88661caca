// Package allocator is the resource ledger. It is the only service allowed to
// change a resource's current usage; every allocate or release holds an
// exclusive per-resource lock across the whole read-modify-write so that
// usage never leaves the [0, capacity] range, while operations on different
// resources proceed in parallel.
package allocator
