package chat

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Presence is the shared set of currently-connected usernames.
//
// Concurrency guarantees:
// - Join/Leave/Snapshot are atomic with respect to each other.
// - The lock is never held across I/O; callers publish snapshots themselves
//   after the call returns (state is separated from notification).
//
// Uniqueness is intentionally NOT enforced: two sessions may claim the same
// username and the set keeps a single entry for both.
type Presence struct {
	mu    sync.Mutex
	users map[string]struct{}
}

// NewPresence constructs an empty presence set.
func NewPresence() *Presence {
	return &Presence{users: make(map[string]struct{})}
}

// Join inserts username and returns the updated snapshot.
func (p *Presence) Join(username string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.users[username] = struct{}{}
	return p.snapshotLocked()
}

// Leave removes username. Removing an absent name is a no-op.
func (p *Presence) Leave(username string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.users, username)
}

// Snapshot returns the current set of usernames.
func (p *Presence) Snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.snapshotLocked()
}

// snapshotLocked returns a sorted copy. Sorted order keeps snapshots
// reproducible for clients and tests.
func (p *Presence) snapshotLocked() []string {
	out := lo.Keys(p.users)
	sort.Strings(out)
	return out
}
