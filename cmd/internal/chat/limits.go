package chat

import "time"

const (
	// Max bytes per websocket frame read (hard limit).
	maxFrameBytes = 64 << 10 // 64 KiB

	// Per-subscriber frame buffer when config does not override it.
	defaultBusQueueSize = 128

	// Socket write deadline when config does not override it.
	defaultWriteTimeout = 5 * time.Second
)
