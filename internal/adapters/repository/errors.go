package repository

import "errors"

// ErrNotFound is returned when no matching record exists.
var ErrNotFound = errors.New("not found")
