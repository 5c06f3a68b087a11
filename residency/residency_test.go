//go:build linux

package residency_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/frobware/go-pagecache/residency"
)

// writeFile creates a file of size bytes under t.TempDir and returns
// it opened read-only.
func writeFile(t *testing.T, size int) *os.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{'x'}, size), 0o644))
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestPages(t *testing.T) {
	tests := []struct {
		n    int64
		page int
		want int64
	}{
		{n: 0, page: 4096, want: 0},
		{n: 1, page: 4096, want: 1},
		{n: 4096, page: 4096, want: 1},
		{n: 4097, page: 4096, want: 2},
		{n: 65536, page: 16384, want: 4},
		{n: 65537, page: 16384, want: 5},
		{n: 10, page: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, residency.Pages(tt.n, tt.page), "Pages(%d, %d)", tt.n, tt.page)
	}
}

func TestPageSize(t *testing.T) {
	assert.Equal(t, os.Getpagesize(), residency.PageSize())
	assert.Equal(t, residency.PageSize(), residency.PageSize())
}

func TestMeasure_FullyReadFileIsCached(t *testing.T) {
	size := 16*residency.PageSize() + 123
	f := writeFile(t, size)

	_, err := io.Copy(io.Discard, f)
	require.NoError(t, err)

	res, err := residency.New().MeasureFile(f)
	require.NoError(t, err)

	want := residency.Pages(int64(size), residency.PageSize())
	assert.Equal(t, want, res.Total)
	// Allow a little slack for eviction under memory pressure.
	assert.GreaterOrEqual(t, res.Cached, want-2)
	assert.LessOrEqual(t, res.Cached, res.Total)
}

func TestMeasure_EvictedFileIsMostlyCold(t *testing.T) {
	size := 64 * residency.PageSize()
	f := writeFile(t, size)

	// Dirty pages cannot be dropped; flush them first.
	require.NoError(t, unix.Fdatasync(int(f.Fd())))
	if err := unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED); err != nil {
		t.Skipf("fadvise not supported: %v", err)
	}

	res, err := residency.New().MeasureFile(f)
	require.NoError(t, err)
	assert.Equal(t, int64(64), res.Total)
	if res.Cached > res.Total/4 {
		t.Logf("kernel kept %d/%d pages after FADV_DONTNEED", res.Cached, res.Total)
	}
	assert.LessOrEqual(t, res.Cached, res.Total)
}

func TestMeasure_EmptyFile(t *testing.T) {
	f := writeFile(t, 0)

	_, err := residency.New().MeasureFile(f)
	require.Error(t, err)
	assert.ErrorIs(t, err, residency.ErrEmptyFile)
	assert.Equal(t, residency.EmptyFile, residency.KindOf(err))
}

func TestMeasure_ClosedDescriptor(t *testing.T) {
	f := writeFile(t, 100)
	fd := int(f.Fd())
	require.NoError(t, f.Close())

	_, err := residency.New().Measure(fd)
	require.Error(t, err)
	assert.ErrorIs(t, err, residency.ErrIOUnavailable)

	var perr *residency.Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, unix.EBADF, perr.Errno())
}

func TestMeasureFile_ClosedFile(t *testing.T) {
	f := writeFile(t, 100)
	require.NoError(t, f.Close())

	_, err := residency.New().MeasureFile(f)
	assert.ErrorIs(t, err, residency.ErrIOUnavailable)
}

func TestMeasure_Directory(t *testing.T) {
	d, err := os.Open(t.TempDir())
	require.NoError(t, err)
	defer d.Close()

	_, err = residency.New().MeasureFile(d)
	assert.ErrorIs(t, err, residency.ErrIOUnavailable)
}

func TestMeasure_Idempotent(t *testing.T) {
	size := 5*residency.PageSize() - 1
	f := writeFile(t, size)
	p := residency.New()

	first, err := p.MeasureFile(f)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		res, err := p.MeasureFile(f)
		require.NoError(t, err)
		assert.Equal(t, first.Total, res.Total)
		assert.LessOrEqual(t, res.Cached, res.Total)
	}
}

func TestMeasure_DoesNotMoveFileOffset(t *testing.T) {
	f := writeFile(t, 3*residency.PageSize())
	_, err := f.Seek(42, io.SeekStart)
	require.NoError(t, err)

	_, err = residency.New().MeasureFile(f)
	require.NoError(t, err)

	off, err := f.Seek(0, io.SeekCurrent)
	require.NoError(t, err)
	assert.Equal(t, int64(42), off)
}

func TestMeasurePath(t *testing.T) {
	f := writeFile(t, 2*residency.PageSize())

	res, err := residency.New().MeasurePath(f.Name())
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Total)

	_, err = residency.New().MeasurePath(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, residency.ErrIOUnavailable)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestResidencyFile(t *testing.T) {
	f := writeFile(t, 4*residency.PageSize())
	_, err := io.Copy(io.Discard, f)
	require.NoError(t, err)

	m, err := residency.New().ResidencyFile(f)
	require.NoError(t, err)
	assert.Equal(t, int64(4), m.Total)
	assert.Equal(t, uint64(m.Cached), m.Bitmap().GetCardinality())

	var covered uint64
	for _, r := range m.Ranges() {
		covered += r.Len()
	}
	assert.Equal(t, uint64(m.Cached), covered)
}

func TestResult_Ratio(t *testing.T) {
	assert.Equal(t, 0.0, residency.Result{}.Ratio())
	assert.Equal(t, 0.25, residency.Result{Cached: 1, Total: 4}.Ratio())
}
