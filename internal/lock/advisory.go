// Package lock provides the exclusive guard held while a batch runs.
package lock

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"
)

var (
	// ErrLockTimeout is returned when the guard could not be acquired
	// because another instance is holding it.
	ErrLockTimeout = errors.New("lock acquisition timed out")

	// ErrNotHeld is returned when releasing a guard that is not held.
	ErrNotHeld = errors.New("lock is not held")

	// ErrAlreadyHeld is returned when acquiring a guard twice. Guards are not reentrant.
	ErrAlreadyHeld = errors.New("lock is already held")
)

// AttributionVariable is the session variable holding the work source of
// the connection that owns the lock. It is visible to operators through
// performance_schema.user_variables_by_thread.
const AttributionVariable = "@batchopt_attribution"

// releaseTimeout bounds RELEASE_LOCK when the caller's context is gone.
const releaseTimeout = 5 * time.Second

// AdvisoryGuard is an exclusive guard backed by a MySQL advisory lock.
//
// GET_LOCK() locks belong to a session, so the guard pins one connection
// from the pool for as long as the lock is held. The lock is released
// automatically if that connection dies.
type AdvisoryGuard struct {
	db          *sql.DB
	lockName    string
	mu          sync.Mutex
	conn        *sql.Conn
	attribution string
}

// NewAdvisoryGuard creates a guard for the named lock.
// The lock is not acquired until Acquire is called.
func NewAdvisoryGuard(db *sql.DB, lockName string) *AdvisoryGuard {
	return &AdvisoryGuard{
		db:       db,
		lockName: lockName,
	}
}

// SetAttribution records the work source stored on the lock's session.
func (g *AdvisoryGuard) SetAttribution(source string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.attribution = source
}

// Acquire waits up to timeout for the lock. A negative timeout waits forever.
//
// MySQL GET_LOCK() return values:
//   - 1: Lock was obtained successfully
//   - 0: Timeout was reached without obtaining the lock
//   - NULL: An error occurred (e.g., out of memory, thread killed)
func (g *AdvisoryGuard) Acquire(ctx context.Context, timeout time.Duration) error {
	if g.db == nil {
		return fmt.Errorf("database is nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn != nil {
		return fmt.Errorf("%w: %q", ErrAlreadyHeld, g.lockName)
	}

	conn, err := g.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to reserve connection for lock: %w", err)
	}

	if g.attribution != "" {
		if _, err := conn.ExecContext(ctx, "SET "+AttributionVariable+" = ?", g.attribution); err != nil {
			_ = conn.Close()
			return fmt.Errorf("failed to set lock attribution: %w", err)
		}
	}

	var result sql.NullInt64
	err = conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", g.lockName, timeoutSeconds(timeout)).Scan(&result)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to execute GET_LOCK: %w", err)
	}

	if !result.Valid {
		_ = conn.Close()
		return fmt.Errorf("GET_LOCK returned NULL for lock %q (possible database error)", g.lockName)
	}

	switch result.Int64 {
	case 1:
		g.conn = conn
		return nil
	case 0:
		_ = conn.Close()
		return fmt.Errorf("%w: lock %q is held by another instance", ErrLockTimeout, g.lockName)
	default:
		_ = conn.Close()
		return fmt.Errorf("unexpected GET_LOCK return value: %d", result.Int64)
	}
}

// Release releases the lock and returns the pinned connection to the pool.
//
// MySQL RELEASE_LOCK() return values:
//   - 1: Lock was released successfully
//   - 0: Lock was not established by this thread (not held)
//   - NULL: Named lock did not exist
func (g *AdvisoryGuard) Release() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.conn == nil {
		return fmt.Errorf("%w: %q", ErrNotHeld, g.lockName)
	}
	conn := g.conn
	g.conn = nil
	defer func() { _ = conn.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	var result sql.NullInt64
	if err := conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", g.lockName).Scan(&result); err != nil {
		return fmt.Errorf("failed to execute RELEASE_LOCK: %w", err)
	}

	if !result.Valid {
		return fmt.Errorf("RELEASE_LOCK returned NULL for lock %q (lock did not exist)", g.lockName)
	}
	if result.Int64 != 1 {
		return fmt.Errorf("%w: %q was not owned by this session", ErrNotHeld, g.lockName)
	}
	return nil
}

// IsHeld returns true if this guard currently holds the lock.
func (g *AdvisoryGuard) IsHeld() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.conn != nil
}

// LockName returns the name of the advisory lock.
func (g *AdvisoryGuard) LockName() string {
	return g.lockName
}

// IsFree reports whether nobody holds the named lock. It does not take the lock.
func IsFree(ctx context.Context, db *sql.DB, lockName string) (bool, error) {
	var result sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT IS_FREE_LOCK(?)", lockName).Scan(&result); err != nil {
		return false, fmt.Errorf("failed to execute IS_FREE_LOCK: %w", err)
	}
	if !result.Valid {
		return false, fmt.Errorf("IS_FREE_LOCK returned NULL for lock %q", lockName)
	}
	return result.Int64 == 1, nil
}

// GuardName builds a namespaced lock name, replacing characters outside
// [A-Za-z0-9_-] so the result is stable across instances.
// Example: GuardName("nightly dexopt") -> "batchopt:nightly_dexopt"
func GuardName(name string) string {
	sanitized := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
	return "batchopt:" + sanitized
}

// timeoutSeconds converts a wait duration to GET_LOCK's whole seconds,
// rounding up so a short positive timeout still waits.
func timeoutSeconds(timeout time.Duration) int {
	if timeout < 0 {
		return -1
	}
	return int(math.Ceil(timeout.Seconds()))
}
