package cache

import "errors"

var (
	// ErrNotFound indicates that the requested annotation was not found.
	ErrNotFound = errors.New("annotation not found")

	// ErrNoRecords indicates an attempt to save an empty batch.
	ErrNoRecords = errors.New("no records to save")

	// ErrStoreClosed indicates that the store backend is closed.
	ErrStoreClosed = errors.New("store is closed")

	// ErrRootNotWritable indicates the cache root directory cannot be
	// created or written. This is a setup failure and fatal to the caller.
	ErrRootNotWritable = errors.New("cache root not writable")
)
