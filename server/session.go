package main

import (
	"sync"
)

const maxRuns = 500

// RunManager tracks live runs by ID
type RunManager struct {
	mu   sync.RWMutex
	runs map[string]*Run
}

// NewRunManager creates a new RunManager
func NewRunManager() *RunManager {
	return &RunManager{
		runs: make(map[string]*Run),
	}
}

// Add registers r and starts its loop. Returns false if the limit is
// reached.
func (rm *RunManager) Add(r *Run) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if len(rm.runs) >= maxRuns {
		return false
	}
	rm.runs[r.ID] = r
	go r.Loop()
	return true
}

// Get returns a run by ID
func (rm *RunManager) Get(id string) *Run {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return rm.runs[id]
}

// Finish ends and forgets a run. It returns the banking result if this
// call ended it.
func (rm *RunManager) Finish(id string) (RunEndedMsg, bool) {
	rm.mu.Lock()
	r, ok := rm.runs[id]
	delete(rm.runs, id)
	rm.mu.Unlock()
	if !ok {
		return RunEndedMsg{}, false
	}
	return r.End()
}

// Count returns the number of live runs
func (rm *RunManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.runs)
}

// IDs returns the IDs of all live runs
func (rm *RunManager) IDs() []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	ids := make([]string, 0, len(rm.runs))
	for id := range rm.runs {
		ids = append(ids, id)
	}
	return ids
}
