// Package buffers provides efficient memory management utilities for buffer pooling.
package buffers

import (
	"sync"
)

const (
	// DefaultBufferSize sizes buffers used for staging tree copies and
	// archive entry writes.
	DefaultBufferSize = 32 * 1024
	// SmallBufferSize sizes buffers used for line-based operations such
	// as control-file field parsing.
	SmallBufferSize = 1024
)

// Buffer pools for different use cases to reduce garbage collection pressure.
var (
	// DefaultBufferPool provides buffers for general file operations (32KB).
	DefaultBufferPool = sync.Pool{
		New: func() any {
			return make([]byte, DefaultBufferSize)
		},
	}

	// SmallBufferPool provides smaller buffers for line-based operations (1KB).
	SmallBufferPool = sync.Pool{
		New: func() any {
			return make([]byte, SmallBufferSize)
		},
	}
)

// GetSmallBuffer returns a buffer from the small buffer pool.
func GetSmallBuffer() []byte {
	return SmallBufferPool.Get().([]byte)
}

// PutSmallBuffer returns a buffer to the small buffer pool.
func PutSmallBuffer(buf []byte) {
	if len(buf) == SmallBufferSize {
		SmallBufferPool.Put(buf) //nolint:staticcheck // SA6002: sync.Pool expects value, not pointer
	}
}

// GetDefaultBuffer returns a buffer from the default buffer pool.
func GetDefaultBuffer() []byte {
	return DefaultBufferPool.Get().([]byte)
}

// PutDefaultBuffer returns a buffer to the default buffer pool.
func PutDefaultBuffer(buf []byte) {
	if len(buf) == DefaultBufferSize {
		DefaultBufferPool.Put(buf) //nolint:staticcheck // SA6002: sync.Pool expects value, not pointer
	}
}
