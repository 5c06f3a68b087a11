// Package lock keeps a single TTL monitor per sentinel directory.
//
// Two monitors sharing a directory would delete each other's sentinel
// files and report nonsense, so the daemon runs under an exclusive
// flock(2) on a lock file. The lock file doubles as a pid file: once
// the lock is held the holder's pid is written into it, which lets a
// losing process say who it lost to.
//
// A Scope is only handed out by Run and is proof that the lock is
// held for as long as the callback runs.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"
)

// ErrHeld is returned when another process holds the lock and the
// wait period expired.
var ErrHeld = errors.New("lock held by another process")

var errBusy = errors.New("lock busy")

// Scope represents the region in which the lock is held. It cannot be
// implemented outside this package.
type Scope interface {
	// Path returns the lock file path.
	Path() string

	scopeMarker()
}

type scope struct {
	path string
}

func (*scope) scopeMarker() {}

func (s *scope) Path() string { return s.path }

// Run acquires the exclusive lock at path, runs fn, then releases it.
// If another process holds the lock Run retries with exponential
// backoff for up to wait; a zero wait tries exactly once. fn receives
// ctx unchanged: the wait bound applies to acquisition only.
func Run(ctx context.Context, path string, wait time.Duration, fn func(context.Context, Scope) error) error {
	fl, err := acquire(ctx, path, wait)
	if err != nil {
		return err
	}
	defer fl.Unlock()

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid to lock file: %w", err)
	}

	return fn(ctx, &scope{path: path})
}

func acquire(ctx context.Context, path string, wait time.Duration) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(path)
	try := func() error {
		ok, err := fl.TryLock()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("flock %s: %w", path, err))
		}
		if !ok {
			return errBusy
		}
		return nil
	}

	if wait <= 0 {
		if err := try(); err != nil {
			return nil, heldOrErr(path, err)
		}
		return fl, nil
	}

	actx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 25 * time.Millisecond
	eb.MaxInterval = 500 * time.Millisecond
	eb.MaxElapsedTime = 0

	err := backoff.Retry(try, backoff.WithContext(eb, actx))
	switch {
	case err == nil:
		return fl, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		return nil, heldOrErr(path, err)
	}
}

func heldOrErr(path string, err error) error {
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return perm.Err
	}
	if !errors.Is(err, errBusy) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if pid, perr := Holder(path); perr == nil {
		return fmt.Errorf("%w: pid %d (%s)", ErrHeld, pid, path)
	}
	return fmt.Errorf("%w: %s", ErrHeld, path)
}

// Holder returns the pid recorded in the lock file at path. The pid
// is only meaningful while the lock is actually held.
func Holder(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("lock file %s does not contain a pid: %w", path, err)
	}
	return pid, nil
}
