package store

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the document does not exist at the given path.
	ErrNotFound = errors.New("document not found")
	// ErrConflict means the revision passed to WriteIf no longer
	// matches the stored one: another writer got there first.
	ErrConflict = errors.New("revision conflict")
)

// UpstreamError is a non-2xx answer from the backing store that is
// neither a missing document nor a revision conflict.
type UpstreamError struct {
	Op     string
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: upstream returned %d: %s", e.Op, e.Status, e.Body)
}

// ConditionalStore is read plus compare-and-swap write against a
// single document addressed by path. The revision token returned by
// Read must be passed back to WriteIf; a stale token fails the write
// with ErrConflict and no retry is performed at this layer.
type ConditionalStore interface {
	// Read returns the document content and its current revision
	// token, or ErrNotFound.
	Read(ctx context.Context, path string) (content []byte, revision string, err error)

	// WriteIf replaces the document only if revision still matches.
	// An empty revision means the document is expected not to exist
	// yet and the write creates it. message is the human-readable
	// change description recorded with the write.
	WriteIf(ctx context.Context, path string, content []byte, revision, message string) error
}
