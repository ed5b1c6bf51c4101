package workspace

import (
	"fmt"
	"path/filepath"

	"github.com/ben-ranford/why/internal/safeio"
)

// DefaultMaxFileBytes bounds a single source file.
const DefaultMaxFileBytes int64 = 2 << 20

// InputUnavailableError reports a file that could not be read: missing,
// unreadable, outside the root or above the size limit.
type InputUnavailableError struct {
	File string
	Err  error
}

func (e *InputUnavailableError) Error() string {
	return fmt.Sprintf("input unavailable: %s: %v", e.File, e.Err)
}

func (e *InputUnavailableError) Unwrap() error {
	return e.Err
}

// Reader reads collected files relative to a repository root.
type Reader struct {
	root     string
	maxBytes int64
}

// NewReader returns a Reader for root. A maxBytes of zero uses
// DefaultMaxFileBytes; a negative value disables the limit.
func NewReader(root string, maxBytes int64) *Reader {
	if maxBytes == 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &Reader{root: root, maxBytes: maxBytes}
}

func (r *Reader) ReadFile(id string) ([]byte, error) {
	data, err := safeio.ReadFileUnderLimit(r.root, filepath.Join(r.root, filepath.FromSlash(id)), r.maxBytes)
	if err != nil {
		return nil, &InputUnavailableError{File: id, Err: err}
	}
	return data, nil
}
