// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral reactor constants.

package reactor

// DefaultMaxEvents bounds the readiness events collected by one Wait call.
const DefaultMaxEvents = 128
