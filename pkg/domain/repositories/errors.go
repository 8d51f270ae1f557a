package repositories

import "errors"

// ErrNotFound is returned when a repository has no record for the requested key
var ErrNotFound = errors.New("not found")
