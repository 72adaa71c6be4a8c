package matrix

import (
	"errors"
)

// Failure classes of an editing session. Each is wrapped around the
// underlying cause, so callers can branch with errors.Is while the message
// keeps the detail.
var (
	// ErrLoadFailed: the matrix data fetch failed; no partial state was applied.
	ErrLoadFailed = errors.New("matrix load failed")
	// ErrModeSaveFailed: persisting the split flag was rejected; the flag
	// keeps its previous value.
	ErrModeSaveFailed = errors.New("split mode update failed")
	// ErrSaveFailed: the allocation payload was rejected; local edits are
	// kept so the operator can retry.
	ErrSaveFailed = errors.New("allocation save failed")
)
