// Package audit implements the internal audit event model and the buffered
// async dispatcher the engine uses to forward events to a caller-provided
// sink. Emission never blocks the authentication path: the dispatcher either
// buffers, drops (with accounting), or honors context cancellation.
package audit
