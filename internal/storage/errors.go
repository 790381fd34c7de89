package storage

import "errors"

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("key not found")

// ErrClosed is returned by operations on a store after Close.
var ErrClosed = errors.New("store is closed")
