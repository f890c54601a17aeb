package store

import "errors"

// ErrNotFound is returned when a referenced project entity does not exist.
// Jobs treat it as a data-integrity signal and abort without side effects.
var ErrNotFound = errors.New("not found")
