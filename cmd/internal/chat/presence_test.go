package chat

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPresence_JoinReturnsSnapshot(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	p := NewPresence()
	req.Empty(p.Snapshot())

	req.Equal([]string{"alice"}, p.Join("alice"))
	req.Equal([]string{"alice", "bob"}, p.Join("bob"))

	// Snapshots are sorted regardless of join order.
	req.Equal([]string{"alice", "bob", "carol"}, p.Join("carol"))
	req.Equal([]string{"alice", "bob", "carol"}, p.Snapshot())
}

func TestPresence_LeaveIsIdempotent(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	p := NewPresence()
	p.Join("alice")

	p.Leave("alice")
	req.Empty(p.Snapshot())

	// Leaving an absent name is a no-op, not an error.
	p.Leave("alice")
	p.Leave("ghost")
	req.Empty(p.Snapshot())
}

func TestPresence_DuplicateJoinKeepsOneEntry(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	p := NewPresence()
	p.Join("alice")
	req.Equal([]string{"alice"}, p.Join("alice"))

	// A single leave clears the shared entry (last writer wins semantics).
	p.Leave("alice")
	req.Empty(p.Snapshot())
}

func TestPresence_ConcurrentJoinLeave(t *testing.T) {
	t.Parallel()
	req := require.New(t)

	p := NewPresence()

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("user-%02d", i)
			for j := 0; j < 100; j++ {
				p.Join(name)
				// Snapshots taken mid-churn must never tear.
				for _, u := range p.Snapshot() {
					req.NotEmpty(u)
				}
				if j%2 == 1 {
					p.Leave(name)
				}
			}
		}(i)
	}
	wg.Wait()

	// Every worker's last operation was a leave on odd iterations; with 100
	// iterations the final j=99 is odd, so the set ends empty.
	req.Empty(p.Snapshot())
}
