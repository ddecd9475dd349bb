package handler

import "sync"

// repoLocks hands out one mutex per repository so runs of a command for the
// same repo never overlap while different repos proceed concurrently.
type repoLocks struct {
	mu    sync.Mutex             // Protects the locks map
	locks map[string]*sync.Mutex // Per-repo locks
}

func newRepoLocks() *repoLocks {
	return &repoLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// lock blocks until the lock for slug is held and returns its release.
func (rl *repoLocks) lock(slug string) func() {
	rl.mu.Lock()
	l, exists := rl.locks[slug]
	if !exists {
		l = &sync.Mutex{}
		rl.locks[slug] = l
	}
	rl.mu.Unlock()

	l.Lock()
	return l.Unlock
}
