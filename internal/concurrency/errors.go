// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Error definitions for concurrency module.

package concurrency

import "errors"

// ErrQueueClosed indicates the queue has been shut down.
var ErrQueueClosed = errors.New("queue is closed")

// ErrAffinityUnsupported is returned where threads cannot be pinned.
var ErrAffinityUnsupported = errors.New("cpu affinity not supported on this platform")
