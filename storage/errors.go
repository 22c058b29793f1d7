package storage

import "errors"

// ErrNotFound is returned when a resource cannot be found.
var ErrNotFound = errors.New("key not found")

// ErrAlreadyExists is returned when trying to store an entity under a key
// that already holds one.
var ErrAlreadyExists = errors.New("key already exists")

// ErrDataMismatch is returned when a stored record disagrees with the value
// being written for the same key.
var ErrDataMismatch = errors.New("data for key is different")
