//go:build linux || darwin || dragonfly || freebsd || netbsd || openbsd

package residency

import (
	"golang.org/x/sys/unix"
)

type unixSystem struct{}

func hostSystem() system {
	return unixSystem{}
}

func (unixSystem) fstat(fd int) (fileInfo, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return fileInfo{}, err
	}
	return fileInfo{
		size:    st.Size,
		regular: st.Mode&unix.S_IFMT == unix.S_IFREG,
	}, nil
}

// mmap creates a shared, no-access view of the file. Nothing ever
// dereferences it; it only gives mincore(2) an address range.
func (unixSystem) mmap(fd int, length int) ([]byte, error) {
	return unix.Mmap(fd, 0, length, unix.PROT_NONE, unix.MAP_SHARED)
}

func (unixSystem) munmap(b []byte) error {
	return unix.Munmap(b)
}

// allocVector takes the vector from an anonymous mapping so that
// exhaustion comes back as ENOMEM instead of a fatal runtime error.
func (unixSystem) allocVector(n int) ([]byte, error) {
	return unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
}

func (unixSystem) freeVector(vec []byte) error {
	return unix.Munmap(vec)
}

func (unixSystem) mincore(b, vec []byte) error {
	return mincore(b, vec)
}
