package netutil

import (
	"errors"
	"fmt"
	"io"

	"github.com/inhies/go-bytesize"
)

// LimitedReader wraps an io.Reader with a maximum size limit.
// A body of exactly Limit bytes reads cleanly; the first byte past the
// limit produces a SizeLimitExceededError.
type LimitedReader struct {
	R     io.Reader // underlying reader
	Limit int64     // max bytes accepted
	read  int64     // bytes read so far
}

// NewLimitedReader creates a new LimitedReader that will accept at most limit bytes.
func NewLimitedReader(r io.Reader, limit int64) *LimitedReader {
	return &LimitedReader{
		R:     r,
		Limit: limit,
	}
}

// Read implements io.Reader with size limit enforcement.
func (l *LimitedReader) Read(p []byte) (int, error) {
	if l.read > l.Limit {
		return 0, &SizeLimitExceededError{Limit: l.Limit, Read: l.read}
	}

	// One byte of headroom detects overflow without buffering the rest.
	remaining := l.Limit + 1 - l.read
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}

	n, err := l.R.Read(p)
	l.read += int64(n)
	if l.read > l.Limit {
		return n, &SizeLimitExceededError{Limit: l.Limit, Read: l.read}
	}
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (l *LimitedReader) BytesRead() int64 {
	return l.read
}

// SizeLimitExceededError is returned when the size limit is exceeded.
type SizeLimitExceededError struct {
	Limit int64
	Read  int64
}

func (e *SizeLimitExceededError) Error() string {
	return fmt.Sprintf("size limit exceeded: read %d bytes, limit is %d bytes (%s)",
		e.Read, e.Limit, bytesize.ByteSize(e.Limit))
}

// IsSizeLimitExceededError returns true if the error is a SizeLimitExceededError.
func IsSizeLimitExceededError(err error) bool {
	var sizeLimitErr *SizeLimitExceededError
	return errors.As(err, &sizeLimitErr)
}
