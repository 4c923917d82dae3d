// Package lock provides per-key advisory locks used to serialize bookings on a vehicle.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockTimeout is returned when a lock could not be taken before the wait elapsed.
var ErrLockTimeout = errors.New("lock wait timed out")

// Locker takes an exclusive lock on key. The returned func releases it and is safe to call once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// VehicleKey is the lock key of a vehicle.
func VehicleKey(vehicleID string) string {
	return "lock:vehicle:" + vehicleID
}

// waitContext bounds ctx by wait when wait is positive.
func waitContext(ctx context.Context, wait time.Duration) (context.Context, context.CancelFunc) {
	if wait <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, wait)
}
