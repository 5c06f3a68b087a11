//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd)

package residency

import "errors"

// unsupportedSystem is used where mincore(2) does not exist. Every
// measurement fails at the size query, before anything is acquired,
// and is reported as a residency query failure.
type unsupportedSystem struct{}

func hostSystem() system {
	return unsupportedSystem{}
}

func (unsupportedSystem) fstat(int) (fileInfo, error) {
	return fileInfo{}, errors.ErrUnsupported
}

func (unsupportedSystem) mmap(int, int) ([]byte, error) {
	return nil, errors.ErrUnsupported
}

func (unsupportedSystem) munmap([]byte) error {
	return errors.ErrUnsupported
}

func (unsupportedSystem) allocVector(int) ([]byte, error) {
	return nil, errors.ErrUnsupported
}

func (unsupportedSystem) freeVector([]byte) error {
	return errors.ErrUnsupported
}

func (unsupportedSystem) mincore([]byte, []byte) error {
	return errors.ErrUnsupported
}
