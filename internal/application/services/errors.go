package services

import "errors"

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrNotInitialized means the operation requires an initialized
	// structure; the caller should run Initialize or Refresh first.
	ErrNotInitialized = errors.New("content structure not initialized")

	// ErrInitFailed marks the terminal error state after initialization
	// exhausted its retries. Only an explicit Refresh clears it.
	ErrInitFailed = errors.New("content structure initialization failed")

	// ErrNotFound covers missing nodes, paths, and snapshots.
	ErrNotFound = errors.New("not found")

	// ErrCycleDetected rejects a move that would make a node its own
	// ancestor.
	ErrCycleDetected = errors.New("move would create a cycle")

	// ErrStructureInvalid reports a detected invariant violation.
	ErrStructureInvalid = errors.New("structure invariant violated")
)
