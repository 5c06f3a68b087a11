package pagecache

import "fmt"

// ErrSampleNotFound is returned when a sample ID is not in the store.
type ErrSampleNotFound struct {
	ID int64
}

func (e ErrSampleNotFound) Error() string {
	return fmt.Sprintf("sample %d does not exist", e.ID)
}

// ErrTmpDirMissing is returned when the sentinel directory does not
// exist or is not a directory.
type ErrTmpDirMissing struct {
	Path string
}

func (e ErrTmpDirMissing) Error() string {
	return fmt.Sprintf("sentinel directory %s does not exist", e.Path)
}
