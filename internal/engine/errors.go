package engine

import "errors"

// ErrEngineLoad indicates the embedded SQLite runtime could not be brought
// up. Nothing above the engine can work after this; callers surface it and
// stop, no retry.
var ErrEngineLoad = errors.New("engine load failed")

// ErrCorruptDatabase indicates a byte buffer is not a valid serialized
// database image.
var ErrCorruptDatabase = errors.New("corrupt database image")
