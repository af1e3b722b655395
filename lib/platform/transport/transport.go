package transport

import "errors"

var ErrClosed = errors.New("use of closed connection")
