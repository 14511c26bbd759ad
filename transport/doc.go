// Author: momentics <momentics@gmail.com>
// SPDX-License-Identifier: MIT

// Package transport provides raw non-blocking TCP sockets for the
// multiplexer: a listening socket bound to one port and the accepted
// stream sockets, both driven directly on file descriptors.
package transport
