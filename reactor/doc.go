// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package reactor provides the readiness reactor behind the multiplexer:
// epoll on Linux with an eventfd used to tear the wait down from another
// goroutine.
package reactor
