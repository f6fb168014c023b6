package storage

import "errors"

// ErrNoActiveDatabase indicates a CRUD call arrived before any session's
// database was created or loaded. This is a sequencing bug in the caller,
// not a user-facing condition.
var ErrNoActiveDatabase = errors.New("no active database")
