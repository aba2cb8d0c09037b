// Package lifecycle defines shared timing for start and stop hooks.
package lifecycle

import "time"

// DefaultTimeout bounds graceful shutdown of servers and connection pools.
const DefaultTimeout = 10 * time.Second
