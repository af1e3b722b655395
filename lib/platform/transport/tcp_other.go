//go:build !linux

package transport

import (
	"errors"

	"example.com/peerwire/lib/core/adapter/transport"
	"example.com/peerwire/lib/core/domain"
)

var ErrUnsupported = errors.New("non-blocking tcp transport needs linux")

func Dial(domain.Host) (transport.Pollable, error) {
	return nil, ErrUnsupported
}
