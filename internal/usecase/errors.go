package usecase

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the orchestrator. Failures wrap an operation kind
// (ErrIndexingFailed, ErrSearchFailed) together with a cause kind
// (ErrStoreUnavailable, ErrEmbeddingFailed), so errors.Is matches both.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("vector store unavailable")
	ErrEmbeddingFailed  = errors.New("embedding failed")
	ErrIndexingFailed   = errors.New("indexing failed")
	ErrSearchFailed     = errors.New("search failed")
)

// BatchError reports the chunk at which a batched import stopped. Chunks
// before it are committed; chunks after it were never attempted.
type BatchError struct {
	Batch     int    // 1-based index of the failed chunk
	FirstID   uint64 // first document id in the failed chunk
	LastID    uint64 // last document id in the failed chunk
	Committed int    // documents committed before the failure
	Err       error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (ids %d-%d) failed after %d committed documents: %v",
		e.Batch, e.FirstID, e.LastID, e.Committed, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
