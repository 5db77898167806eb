//go:build !linux

package raspberry

import "rf433/pkg/port"

func openCdev(Config) (port.Line, error) {
	return nil, ErrUnsupported
}

func openMem(Config) (port.Line, error) {
	return nil, ErrUnsupported
}
