package messaging

// Vendor names a queue implementation.
type Vendor string
