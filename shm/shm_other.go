//go:build !linux

package shm

import "errors"

// Supported reports whether SysV shared memory is available on this platform.
const Supported = false

var errUnsupported = errors.New("shm: not supported on this platform")

func (m *Memory) Attach() error {
	return errUnsupported
}

func (m *Memory) Detach() error {
	return nil
}

func (m *Memory) Remove() error {
	return nil
}
