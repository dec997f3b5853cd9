package engine

import "errors"

// ErrKeyNotFound is returned by Remove when the key is not present. Get
// reports an absent key with ok=false and a nil error instead.
var ErrKeyNotFound = errors.New("engine: key not found")

// ErrEngineMismatch is returned by Open when a store directory was
// previously tagged with a different engine than the one opening it.
var ErrEngineMismatch = errors.New("engine: store directory tagged for a different engine")

// ErrCommandNotSupported is returned by Get when a keydir entry decodes to
// a record that is not a Set: the keydir is supposed to only ever point at
// the latest Set for a key, so this indicates on-disk or in-memory
// inconsistency rather than a normal operational error.
var ErrCommandNotSupported = errors.New("engine: command not supported")
