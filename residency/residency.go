// Package residency reports how much of an open file currently lives
// in the operating system's page cache.
//
// The probe maps the file with PROT_NONE so that nothing it does can
// fault a page in, asks the kernel for the per-page residency vector
// with mincore(2), and reduces that vector to a count of resident
// pages. The mapping and the vector only exist for the duration of a
// single call and are released on every return path.
//
//	p := residency.New()
//	res, err := p.Measure(int(f.Fd()))
//	if errors.Is(err, residency.ErrEmptyFile) { ... }
//	fmt.Printf("%d/%d pages cached\n", res.Cached, res.Total)
//
// The probe borrows the descriptor: it never reads, writes, seeks or
// closes it. If another goroutine truncates or closes the file between
// the size query and the mapping, the call fails with whatever the
// kernel reports; that window is inherent to the technique.
package residency

import (
	"errors"
	"math"
	"os"
	"sync"
)

// pageSize is queried once; it is constant for the life of the process.
var pageSize = sync.OnceValue(os.Getpagesize)

// PageSize returns the platform page size in bytes.
func PageSize() int {
	return pageSize()
}

// Pages returns the number of pages of the given size needed to cover
// n bytes, i.e. ceil(n / page).
func Pages(n int64, page int) int64 {
	if n <= 0 || page <= 0 {
		return 0
	}
	p := int64(page)
	return (n + p - 1) / p
}

// Result is the outcome of one measurement.
type Result struct {
	// Cached is the number of pages found resident in RAM.
	Cached int64 `json:"cached"`
	// Total is the number of pages covering the file's size.
	Total int64 `json:"total"`
}

// Ratio returns Cached/Total, or 0 for an empty result.
func (r Result) Ratio() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Cached) / float64(r.Total)
}

// Prober measures page-cache residency for an open file descriptor.
type Prober interface {
	Measure(fd int) (Result, error)
}

var errNotRegular = errors.New("not a regular file")

// fileInfo is the subset of fstat(2) the probe needs.
type fileInfo struct {
	size    int64
	regular bool
}

// system is the set of OS operations the probe is composed from.
// Every resource handed out by mmap or allocVector is given back
// through munmap or freeVector exactly once.
type system interface {
	fstat(fd int) (fileInfo, error)
	mmap(fd int, length int) ([]byte, error)
	munmap(b []byte) error
	allocVector(n int) ([]byte, error)
	freeVector(vec []byte) error
	mincore(b, vec []byte) error
}

// Probe is the default Prober backed by mincore(2). A Probe holds no
// mutable state and is safe for concurrent use.
type Probe struct {
	sys      system
	pageSize int
}

var _ Prober = (*Probe)(nil)

// Option configures a Probe.
type Option func(*Probe)

// New returns a Probe for the current platform.
func New(opts ...Option) *Probe {
	p := &Probe{
		sys:      hostSystem(),
		pageSize: PageSize(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Measure returns the number of resident and total pages of the file
// behind fd.
func (p *Probe) Measure(fd int) (Result, error) {
	var cached int64
	total, err := p.scan(fd, func(vec []byte) {
		cached = countResident(vec)
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Cached: cached, Total: total}, nil
}

// MeasureFile is Measure for an *os.File. The descriptor is held via
// SyscallConn for the duration of the call so it cannot be closed
// underneath the probe by the os package.
func (p *Probe) MeasureFile(f *os.File) (Result, error) {
	var (
		res  Result
		merr error
	)
	if err := control(f, func(fd int) { res, merr = p.Measure(fd) }); err != nil {
		return Result{}, err
	}
	return res, merr
}

// MeasurePath opens path read-only, measures it and closes it.
func (p *Probe) MeasurePath(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, &Error{Kind: IOUnavailable, Op: "open", FD: -1, Err: err}
	}
	defer f.Close()
	return p.MeasureFile(f)
}

// Residency is like Measure but also returns which pages are resident.
func (p *Probe) Residency(fd int) (*Map, error) {
	m := newMap(p.pageSize)
	total, err := p.scan(fd, m.fill)
	if err != nil {
		return nil, err
	}
	m.Total = total
	return m, nil
}

// ResidencyFile is Residency for an *os.File.
func (p *Probe) ResidencyFile(f *os.File) (*Map, error) {
	var (
		m    *Map
		merr error
	)
	if err := control(f, func(fd int) { m, merr = p.Residency(fd) }); err != nil {
		return nil, err
	}
	return m, merr
}

// scan runs the size query, mapping, allocation and residency query,
// hands the populated vector to visit, and returns the page count. The
// vector passed to visit is only valid for the duration of the call.
func (p *Probe) scan(fd int, visit func(vec []byte)) (int64, error) {
	fi, err := p.sys.fstat(fd)
	if errors.Is(err, errors.ErrUnsupported) {
		return 0, &Error{Kind: ResidencyQueryFailed, Op: "mincore", FD: fd, Err: err}
	}
	if err != nil {
		return 0, &Error{Kind: IOUnavailable, Op: "fstat", FD: fd, Err: err}
	}
	if !fi.regular {
		return 0, &Error{Kind: IOUnavailable, Op: "fstat", FD: fd, Err: errNotRegular}
	}
	if fi.size == 0 {
		return 0, &Error{Kind: EmptyFile, Op: "fstat", FD: fd}
	}
	if fi.size > math.MaxInt {
		return 0, &Error{Kind: MappingFailed, Op: "mmap", FD: fd, Err: errTooLarge}
	}

	mapping, err := p.sys.mmap(fd, int(fi.size))
	if err != nil {
		return 0, &Error{Kind: MappingFailed, Op: "mmap", FD: fd, Err: err}
	}
	defer p.sys.munmap(mapping)

	total := Pages(fi.size, p.pageSize)

	vec, err := p.sys.allocVector(int(total))
	if err != nil {
		return 0, &Error{Kind: OutOfMemory, Op: "alloc", FD: fd, Err: err}
	}
	defer p.sys.freeVector(vec)

	if err := p.sys.mincore(mapping, vec); err != nil {
		return 0, &Error{Kind: ResidencyQueryFailed, Op: "mincore", FD: fd, Err: err}
	}

	if int64(len(vec)) > total {
		vec = vec[:total]
	}
	visit(vec)
	return total, nil
}

var errTooLarge = errors.New("file too large to map")

// countResident counts entries whose resident bit is set. The loop is
// bounded by the vector itself, never by a recomputed page count.
func countResident(vec []byte) int64 {
	var n int64
	for _, b := range vec {
		if b&1 != 0 {
			n++
		}
	}
	return n
}

// control runs fn with the raw descriptor of f while the os package
// holds a reference to it.
func control(f *os.File, fn func(fd int)) error {
	rc, err := f.SyscallConn()
	if err != nil {
		return &Error{Kind: IOUnavailable, Op: "fstat", FD: -1, Err: err}
	}
	if err := rc.Control(func(fd uintptr) { fn(int(fd)) }); err != nil {
		return &Error{Kind: IOUnavailable, Op: "fstat", FD: -1, Err: err}
	}
	return nil
}
