package network

import "errors"

// ErrQueueFull is returned when the outbound send queue has no room
// left (the equivalent of the original's xRingbufferSendFromISR
// failing because the ring buffer is full).
var ErrQueueFull = errors.New("network: outbound send queue full")
