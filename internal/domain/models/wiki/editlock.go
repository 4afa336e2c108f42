package wiki

import (
	"time"
)

// LockDuration is how long an advisory edit lock stays active.
const LockDuration = 30 * time.Minute

// EditLock is an advisory lock indicating a user is editing a page or
// directory. Exactly one of PageID or DirectoryID is set. Locks expire
// after LockDuration and are released on successful save.
type EditLock struct {
	ID          string    `json:"id" db:"id"`
	PageID      *string   `json:"page_id,omitempty" db:"page_id"`
	DirectoryID *string   `json:"directory_id,omitempty" db:"directory_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time `json:"expires_at" db:"expires_at"`
}

// Active reports whether the lock has not yet expired.
func (l *EditLock) Active(now time.Time) bool {
	return l.ExpiresAt.After(now)
}
