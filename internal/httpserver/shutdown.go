package httpserver

import "time"

// ShutdownTimeout controls how long to wait for graceful shutdowns, covering
// both in-flight requests and background workflows.
var ShutdownTimeout = 15 * time.Second
